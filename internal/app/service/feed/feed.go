// Package feed implements the social feed: posts, comments and likes.
package feed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultListLimit bounds ListPosts.
const DefaultListLimit = 100

// PostRepo is the post storage used by the service.
type PostRepo interface {
	Create(ctx context.Context, p models.Post) (models.Post, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Post, error)
	List(ctx context.Context, limit int64) ([]models.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (models.Post, error)
	AddComment(ctx context.Context, postID primitive.ObjectID, c models.Comment) (models.Post, error)
	RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) (models.Post, error)
	ToggleCommentLike(ctx context.Context, postID, commentID, userID primitive.ObjectID) (models.Post, error)
}

// UserDirectory resolves user ids to public identities.
type UserDirectory interface {
	Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

type CommentView struct {
	ID        primitive.ObjectID   `json:"id"`
	Author    models.UserSummary   `json:"author"`
	Content   string               `json:"content"`
	Likes     []primitive.ObjectID `json:"likes"`
	LikeCount int                  `json:"like_count"`
	CreatedAt time.Time            `json:"created_at"`
}

type PostView struct {
	ID        primitive.ObjectID   `json:"id"`
	Author    models.UserSummary   `json:"author"`
	Content   string               `json:"content"`
	Likes     []primitive.ObjectID `json:"likes"`
	LikeCount int                  `json:"like_count"`
	Comments  []CommentView        `json:"comments"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type Service struct {
	posts PostRepo
	users UserDirectory
	log   *zap.Logger
	now   func() time.Time
	limit int64
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithListLimit caps how many posts ListPosts returns.
func WithListLimit(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

func New(posts PostRepo, users UserDirectory, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		posts: posts,
		users: users,
		log:   logger,
		now:   time.Now,
		limit: DefaultListLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func cleanContent(raw string, max int) (string, error) {
	content := htmlsanitize.Sanitize(strings.TrimSpace(raw))
	var v inputval.Result
	v.Check(htmlsanitize.PlainText(content) != "", "content", "content is required")
	v.Check(inputval.Len(content) <= max, "content", "content is too long")
	return content, v.Err()
}

// CreatePost publishes a post by userID.
func (s *Service) CreatePost(ctx context.Context, userID primitive.ObjectID, content string) (PostView, error) {
	if userID.IsZero() {
		return PostView{}, apperr.Unauthenticatedf("sign in required")
	}
	content, err := cleanContent(content, inputval.PostMax)
	if err != nil {
		return PostView{}, err
	}
	now := s.now().UTC()
	p, err := s.posts.Create(ctx, models.Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  userID,
		Content:   content,
		Likes:     []primitive.ObjectID{},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return PostView{}, apperr.Wrap(err, "create post")
	}
	return s.one(ctx, p)
}

// ListPosts returns the newest posts first.
func (s *Service) ListPosts(ctx context.Context) ([]PostView, error) {
	ps, err := s.posts.List(ctx, s.limit)
	if err != nil {
		return nil, apperr.Wrap(err, "list posts")
	}
	return s.resolve(ctx, ps)
}

// DeletePost removes a post. Author only.
func (s *Service) DeletePost(ctx context.Context, postID, userID primitive.ObjectID) error {
	p, err := s.load(ctx, postID, userID)
	if err != nil {
		return err
	}
	if p.AuthorID != userID {
		return apperr.Forbiddenf("only the author can delete this post")
	}
	if _, err := s.posts.Delete(ctx, postID); err != nil {
		return apperr.Wrap(err, "delete post")
	}
	return nil
}

// ToggleLike likes the post for userID, or removes the like if present.
func (s *Service) ToggleLike(ctx context.Context, postID, userID primitive.ObjectID) (PostView, error) {
	if userID.IsZero() {
		return PostView{}, apperr.Unauthenticatedf("sign in required")
	}
	p, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return PostView{}, postErr(err, "toggle like")
	}
	return s.one(ctx, p)
}

// AddComment appends a comment by userID.
func (s *Service) AddComment(ctx context.Context, postID, userID primitive.ObjectID, content string) (PostView, error) {
	if userID.IsZero() {
		return PostView{}, apperr.Unauthenticatedf("sign in required")
	}
	content, err := cleanContent(content, inputval.CommentMax)
	if err != nil {
		return PostView{}, err
	}
	p, err := s.posts.AddComment(ctx, postID, models.Comment{
		ID:        primitive.NewObjectID(),
		AuthorID:  userID,
		Content:   content,
		Likes:     []primitive.ObjectID{},
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return PostView{}, postErr(err, "add comment")
	}
	return s.one(ctx, p)
}

// DeleteComment removes a comment. Comment author only.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID, userID primitive.ObjectID) (PostView, error) {
	p, err := s.load(ctx, postID, userID)
	if err != nil {
		return PostView{}, err
	}
	var found *models.Comment
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			found = &p.Comments[i]
			break
		}
	}
	if found == nil {
		return PostView{}, apperr.NotFoundf("comment not found")
	}
	if found.AuthorID != userID {
		return PostView{}, apperr.Forbiddenf("only the author can delete this comment")
	}

	updated, err := s.posts.RemoveComment(ctx, postID, commentID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return PostView{}, apperr.NotFoundf("comment not found")
	}
	if err != nil {
		return PostView{}, apperr.Wrap(err, "delete comment")
	}
	return s.one(ctx, updated)
}

// ToggleCommentLike likes or unlikes a comment for userID.
func (s *Service) ToggleCommentLike(ctx context.Context, postID, commentID, userID primitive.ObjectID) (PostView, error) {
	if userID.IsZero() {
		return PostView{}, apperr.Unauthenticatedf("sign in required")
	}
	p, err := s.posts.ToggleCommentLike(ctx, postID, commentID, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return PostView{}, apperr.NotFoundf("comment not found")
	}
	if err != nil {
		return PostView{}, apperr.Wrap(err, "toggle comment like")
	}
	return s.one(ctx, p)
}

func (s *Service) load(ctx context.Context, postID, userID primitive.ObjectID) (models.Post, error) {
	if userID.IsZero() {
		return models.Post{}, apperr.Unauthenticatedf("sign in required")
	}
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return models.Post{}, postErr(err, "load post")
	}
	return p, nil
}

func postErr(err error, msg string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("post not found")
	}
	return apperr.Wrap(err, msg)
}

func (s *Service) one(ctx context.Context, p models.Post) (PostView, error) {
	vs, err := s.resolve(ctx, []models.Post{p})
	if err != nil {
		return PostView{}, err
	}
	return vs[0], nil
}

func (s *Service) resolve(ctx context.Context, ps []models.Post) ([]PostView, error) {
	var ids []primitive.ObjectID
	for _, p := range ps {
		ids = append(ids, p.AuthorID)
		for _, c := range p.Comments {
			ids = append(ids, c.AuthorID)
		}
	}
	people, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(err, "resolve authors")
	}

	out := make([]PostView, len(ps))
	for i, p := range ps {
		comments := make([]CommentView, len(p.Comments))
		for j, c := range p.Comments {
			comments[j] = CommentView{
				ID:        c.ID,
				Author:    models.LookupSummary(people, c.AuthorID),
				Content:   c.Content,
				Likes:     nonNil(c.Likes),
				LikeCount: len(c.Likes),
				CreatedAt: c.CreatedAt,
			}
		}
		out[i] = PostView{
			ID:        p.ID,
			Author:    models.LookupSummary(people, p.AuthorID),
			Content:   p.Content,
			Likes:     nonNil(p.Likes),
			LikeCount: len(p.Likes),
			Comments:  comments,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
	}
	return out, nil
}

func nonNil(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}
