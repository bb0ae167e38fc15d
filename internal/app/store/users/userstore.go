package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// FoldEmail is the case-insensitive key stored in email_ci.
func FoldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByLogin looks up a user by username or email, case-insensitively.
// Returns mongo.ErrNoDocuments if neither matches.
func (s *Store) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	login = strings.TrimSpace(login)
	filter := bson.M{"$or": []bson.M{
		{"username_ci": text.Fold(login)},
		{"email_ci": FoldEmail(login)},
	}}
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. Duplicate usernames or emails return
// ErrDuplicateUsername / ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.UsernameCI = text.Fold(u.Username)
	u.EmailCI = FoldEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		return models.User{}, dupErr(err)
	}
	return u, nil
}

// ProfileUpdate lists the mutable profile fields; nil fields are left as is.
type ProfileUpdate struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
}

// UpdateProfile applies upd and returns the updated user.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Username != nil {
		set["username"] = *upd.Username
		set["username_ci"] = text.Fold(*upd.Username)
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		set["profile_picture"] = *upd.ProfilePicture
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		return nil, dupErr(err)
	}
	return &u, nil
}

// Summaries returns the public identity of each existing user in ids.
// Unknown ids are absent from the map.
func (s *Store) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"username": 1, "profile_picture": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var us models.UserSummary
		if err := cur.Decode(&us); err != nil {
			return nil, err
		}
		out[us.ID] = us
	}
	return out, cur.Err()
}

func dupErr(err error) error {
	if !wafflemongo.IsDup(err) && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), "email_ci") {
		return ErrDuplicateEmail
	}
	return ErrDuplicateUsername
}
