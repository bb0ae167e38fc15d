package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/indexes"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		Username: "Ada_L",
		Email:    " Ada@Example.com ",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.UsernameCI != "ada_l" {
		t.Errorf("UsernameCI = %q, want ada_l", created.UsernameCI)
	}
	if created.EmailCI != "ada@example.com" {
		t.Errorf("EmailCI = %q", created.EmailCI)
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_Duplicates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	if _, err := store.Create(ctx, models.User{Username: "ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := store.Create(ctx, models.User{Username: "ADA", Email: "other@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateUsername) {
		t.Errorf("duplicate username: got %v", err)
	}
	_, err = store.Create(ctx, models.User{Username: "grace", Email: "ADA@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Errorf("duplicate email: got %v", err)
	}
}

func TestStore_GetByLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{Username: "grace", Email: "grace@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, login := range []string{"grace", "GRACE", "Grace@Example.com"} {
		got, err := store.GetByLogin(ctx, login)
		if err != nil {
			t.Errorf("GetByLogin(%q): %v", login, err)
			continue
		}
		if got.ID != u.ID {
			t.Errorf("GetByLogin(%q) = %v, want %v", login, got.ID, u.ID)
		}
	}

	if _, err := store.GetByLogin(ctx, "nobody"); err != mongo.ErrNoDocuments {
		t.Errorf("expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{Username: "alan", Email: "alan@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	bio := "Enigma enthusiast"
	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Bio != bio || got.Username != "alan" {
		t.Errorf("got bio=%q username=%q", got.Bio, got.Username)
	}

	if _, err := store.UpdateProfile(ctx, primitive.NewObjectID(), userstore.ProfileUpdate{Bio: &bio}); err != mongo.ErrNoDocuments {
		t.Errorf("missing user: expected ErrNoDocuments, got %v", err)
	}
}

func TestStore_Summaries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.Create(ctx, models.User{Username: "a_user", Email: "a@example.com", PasswordHash: "secret"})
	b, _ := store.Create(ctx, models.User{Username: "b_user", Email: "b@example.com"})

	got, err := store.Summaries(ctx, []primitive.ObjectID{a.ID, b.ID, primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Summaries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[a.ID].Username != "a_user" || got[b.ID].Username != "b_user" {
		t.Errorf("unexpected summaries: %+v", got)
	}
}
