package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	userstore "github.com/dalemusser/studyhub/internal/app/store/users"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calling it again on the same request adds to the existing parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test documents directly into a test database.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user named username with a derived email.
func (f *Fixtures) CreateUser(ctx context.Context, username string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	email := username + "@example.com"
	u := models.User{
		ID:         primitive.NewObjectID(),
		Username:   username,
		UsernameCI: text.Fold(username),
		Email:      email,
		EmailCI:    userstore.FoldEmail(email),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup inserts a group created by creator; members are added after
// the creator.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, creator primitive.ObjectID, members ...primitive.ObjectID) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		Description: name + " study group",
		Category:    models.CategoryScience,
		Icon:        models.GroupIcons[0],
		CreatorID:   creator,
		Members:     append([]primitive.ObjectID{creator}, members...),
		Messages:    []models.Message{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateEvent inserts an event in groupID spanning start to end.
func (f *Fixtures) CreateEvent(ctx context.Context, groupID, creator primitive.ObjectID, title string, start, end time.Time) models.Event {
	f.t.Helper()

	e := models.Event{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		CreatorID: creator,
		Title:     title,
		Start:     start.UTC(),
		End:       end.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("events").InsertOne(ctx, e); err != nil {
		f.t.Fatalf("failed to create test event: %v", err)
	}
	return e
}

// CreatePost inserts a feed post by author.
func (f *Fixtures) CreatePost(ctx context.Context, author primitive.ObjectID, content string) models.Post {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  author,
		Content:   content,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("posts").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test post: %v", err)
	}
	return p
}
