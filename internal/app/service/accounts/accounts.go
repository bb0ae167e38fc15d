// Package accounts implements registration, sign-in credential checks and
// profile maintenance.
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/authutil"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepo is the user storage used by the service.
type UserRepo interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd userstore.ProfileUpdate) (*models.User, error)
}

// Profile is a user as shown to a viewer. Email is only set for the
// user's own profile.
type Profile struct {
	ID             primitive.ObjectID `json:"id"`
	Username       string             `json:"username"`
	Email          string             `json:"email,omitempty"`
	Bio            string             `json:"bio"`
	ProfilePicture string             `json:"profile_picture,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Bio      string
}

// ProfileInput carries profile changes; nil fields are left alone.
type ProfileInput struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
}

type Service struct {
	users UserRepo
	log   *zap.Logger
	now   func() time.Time
	cost  int

	// dummyHash is compared against when the login is unknown so both
	// paths cost one bcrypt comparison.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the cost used for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func New(users UserRepo, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		users: users,
		log:   logger,
		now:   time.Now,
		cost:  bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	if h, err := authutil.HashPasswordCost("studyhub-unknown-login", s.cost); err == nil {
		s.dummyHash = h
	}
	return s
}

func passwordErr(err error) error {
	switch {
	case errors.Is(err, authutil.ErrPasswordTooShort):
		return apperr.Invalidf("password must be at least %d characters", authutil.MinPasswordLength)
	case errors.Is(err, authutil.ErrPasswordTooLong):
		return apperr.Invalidf("password is too long")
	case errors.Is(err, authutil.ErrPasswordCommon):
		return apperr.Invalidf("password is too common")
	}
	return apperr.Invalidf("invalid password")
}

func conflictErr(err error, msg string) error {
	switch {
	case errors.Is(err, userstore.ErrDuplicateUsername):
		return apperr.Conflictf("username is already taken")
	case errors.Is(err, userstore.ErrDuplicateEmail):
		return apperr.Conflictf("email is already registered")
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFoundf("user not found")
	}
	return apperr.Wrap(err, msg)
}

// Register creates an account and returns it.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Bio = strings.TrimSpace(in.Bio)

	var v inputval.Result
	v.Check(inputval.IsValidUsername(in.Username), "username",
		"username must be 3-20 letters, digits or underscores")
	v.Check(inputval.IsValidEmail(in.Email), "email", "email is invalid")
	v.Check(inputval.Len(in.Bio) <= inputval.BioMax, "bio", "bio is too long")
	if err := v.Err(); err != nil {
		return models.User{}, err
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		return models.User{}, passwordErr(err)
	}

	hash, err := authutil.HashPasswordCost(in.Password, s.cost)
	if err != nil {
		return models.User{}, apperr.Wrap(err, "hash password")
	}
	now := s.now().UTC()
	u, err := s.users.Create(ctx, models.User{
		ID:           primitive.NewObjectID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Bio:          in.Bio,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return models.User{}, conflictErr(err, "create user")
	}
	s.log.Info("account registered", zap.String("user_id", u.ID.Hex()))
	return u, nil
}

// Authenticate returns the user whose username or email is login and whose
// password matches. Any mismatch is Unauthenticated.
func (s *Service) Authenticate(ctx context.Context, login, password string) (models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return models.User{}, apperr.Unauthenticatedf("invalid credentials")
	}
	u, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, mongo.ErrNoDocuments) {
		authutil.CheckPassword(password, s.dummyHash)
		return models.User{}, apperr.Unauthenticatedf("invalid credentials")
	}
	if err != nil {
		return models.User{}, apperr.Wrap(err, "load user")
	}
	if !authutil.CheckPassword(password, u.PasswordHash) {
		return models.User{}, apperr.Unauthenticatedf("invalid credentials")
	}
	return *u, nil
}

// GetProfile returns userID's profile as seen by viewerID.
func (s *Service) GetProfile(ctx context.Context, userID, viewerID primitive.ObjectID) (Profile, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, conflictErr(err, "load user")
	}
	return ProfileOf(*u, viewerID == u.ID), nil
}

// UpdateProfile changes userID's own profile.
func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (Profile, error) {
	if userID.IsZero() {
		return Profile{}, apperr.Unauthenticatedf("sign in required")
	}

	var (
		v   inputval.Result
		upd userstore.ProfileUpdate
	)
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		v.Check(inputval.IsValidUsername(name), "username",
			"username must be 3-20 letters, digits or underscores")
		upd.Username = &name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		v.Check(inputval.Len(bio) <= inputval.BioMax, "bio", "bio is too long")
		upd.Bio = &bio
	}
	if in.ProfilePicture != nil {
		pic := strings.TrimSpace(*in.ProfilePicture)
		v.Check(pic == "" || strings.HasPrefix(pic, "https://") || strings.HasPrefix(pic, "/"),
			"profile_picture", "profile picture must be an https or site-relative URL")
		upd.ProfilePicture = &pic
	}
	if err := v.Err(); err != nil {
		return Profile{}, err
	}

	u, err := s.users.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return Profile{}, conflictErr(err, "update profile")
	}
	return ProfileOf(*u, true), nil
}

// ProfileOf builds the view of u; self includes the email.
func ProfileOf(u models.User, self bool) Profile {
	p := Profile{
		ID:             u.ID,
		Username:       u.Username,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
	if self {
		p.Email = u.Email
	}
	return p
}
