package accounts_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/service/accounts"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*accounts.Service, *testutil.MemUsers) {
	t.Helper()
	users := testutil.NewMemUsers()
	return accounts.New(users, zap.NewNop(), accounts.WithBcryptCost(bcrypt.MinCost)), users
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func strPtr(s string) *string { return &s }

func register(t *testing.T, svc *accounts.Service, username, email string) primitive.ObjectID {
	t.Helper()
	u, err := svc.Register(context.Background(), accounts.RegisterInput{
		Username: username,
		Email:    email,
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return u.ID
}

func TestRegister_HashesPassword(t *testing.T) {
	svc, _ := newService(t)

	u, err := svc.Register(context.Background(), accounts.RegisterInput{
		Username: "ada_l",
		Email:    "Ada@Example.com",
		Password: "correct-horse",
		Bio:      "<b>Maths</b> fan",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.PasswordHash == "" || u.PasswordHash == "correct-horse" {
		t.Fatalf("password not hashed: %q", u.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct-horse")) != nil {
		t.Fatal("stored hash does not verify")
	}
	if u.Bio != "<b>Maths</b> fan" {
		t.Errorf("bio = %q", u.Bio)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newService(t)

	tests := []struct {
		name string
		in   accounts.RegisterInput
	}{
		{"short username", accounts.RegisterInput{Username: "ab", Email: "a@b.co", Password: "correct-horse"}},
		{"long username", accounts.RegisterInput{Username: strings.Repeat("u", 21), Email: "a@b.co", Password: "correct-horse"}},
		{"bad username chars", accounts.RegisterInput{Username: "ada-l", Email: "a@b.co", Password: "correct-horse"}},
		{"bad email", accounts.RegisterInput{Username: "ada", Email: "not-an-email", Password: "correct-horse"}},
		{"short password", accounts.RegisterInput{Username: "ada", Email: "a@b.co", Password: "short"}},
		{"common password", accounts.RegisterInput{Username: "ada", Email: "a@b.co", Password: "password"}},
		{"long bio", accounts.RegisterInput{Username: "ada", Email: "a@b.co", Password: "correct-horse", Bio: strings.Repeat("b", 201)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.in)
			wantKind(t, err, apperr.InvalidArgument)
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc, "ada", "ada@example.com")

	_, err := svc.Register(context.Background(), accounts.RegisterInput{
		Username: "ADA", Email: "other@example.com", Password: "correct-horse",
	})
	wantKind(t, err, apperr.Conflict)
	if !strings.Contains(apperr.Message(err), "username") {
		t.Errorf("message = %q", apperr.Message(err))
	}

	_, err = svc.Register(context.Background(), accounts.RegisterInput{
		Username: "grace", Email: "ADA@example.com", Password: "correct-horse",
	})
	wantKind(t, err, apperr.Conflict)
	if !strings.Contains(apperr.Message(err), "email") {
		t.Errorf("message = %q", apperr.Message(err))
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	id := register(t, svc, "ada", "ada@example.com")

	for _, login := range []string{"ada", "ADA", "ada@example.com", " Ada@Example.com "} {
		u, err := svc.Authenticate(ctx, login, "correct-horse")
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", login, err)
		}
		if u.ID != id {
			t.Fatalf("Authenticate(%q) = %v, want %v", login, u.ID, id)
		}
	}

	_, err := svc.Authenticate(ctx, "ada", "wrong-horse")
	wantKind(t, err, apperr.Unauthenticated)
	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	wantKind(t, err, apperr.Unauthenticated)
	_, err = svc.Authenticate(ctx, "", "")
	wantKind(t, err, apperr.Unauthenticated)
}

func TestGetProfile_EmailOnlyForSelf(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	ada := register(t, svc, "ada", "ada@example.com")
	grace := register(t, svc, "grace", "grace@example.com")

	own, err := svc.GetProfile(ctx, ada, ada)
	if err != nil {
		t.Fatalf("GetProfile(self): %v", err)
	}
	if own.Email != "ada@example.com" {
		t.Errorf("own email = %q", own.Email)
	}

	public, err := svc.GetProfile(ctx, ada, grace)
	if err != nil {
		t.Fatalf("GetProfile(other): %v", err)
	}
	if public.Email != "" || public.Username != "ada" {
		t.Errorf("public profile = %+v", public)
	}

	_, err = svc.GetProfile(ctx, primitive.NewObjectID(), ada)
	wantKind(t, err, apperr.NotFound)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	ada := register(t, svc, "ada", "ada@example.com")
	register(t, svc, "grace", "grace@example.com")

	p, err := svc.UpdateProfile(ctx, ada, accounts.ProfileInput{
		Bio:            strPtr("Analytical engines"),
		ProfilePicture: strPtr("https://cdn.example.com/ada.png"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if p.Bio != "Analytical engines" || p.Username != "ada" {
		t.Errorf("profile = %+v", p)
	}

	_, err = svc.UpdateProfile(ctx, ada, accounts.ProfileInput{Username: strPtr("Grace")})
	wantKind(t, err, apperr.Conflict)

	_, err = svc.UpdateProfile(ctx, ada, accounts.ProfileInput{ProfilePicture: strPtr("javascript:alert(1)")})
	wantKind(t, err, apperr.InvalidArgument)

	_, err = svc.UpdateProfile(ctx, ada, accounts.ProfileInput{Bio: strPtr(strings.Repeat("b", 201))})
	wantKind(t, err, apperr.InvalidArgument)

	_, err = svc.UpdateProfile(ctx, primitive.NilObjectID, accounts.ProfileInput{})
	wantKind(t, err, apperr.Unauthenticated)
}
