// internal/app/features/feed/handler.go
package feed

import (
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	feedsvc "github.com/dalemusser/studyhub/internal/app/service/feed"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the social feed.
type Handler struct {
	Feed   *feedsvc.Service
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(feed *feedsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Feed:   feed,
		ErrLog: errLog,
		Log:    logger,
	}
}

type contentRequest struct {
	Content string `json:"content"`
}

func (h *Handler) param(w http.ResponseWriter, r *http.Request, key, what string) (primitive.ObjectID, bool) {
	id, err := uierrors.ObjectID(chi.URLParam(r, key), what)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return id, false
	}
	return id, true
}

// ServeList returns the newest posts first.
// GET /api/posts
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Feed.ListPosts(r.Context())
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, posts)
}

// HandleCreate publishes a post.
// POST /api/posts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p, err := h.Feed.CreatePost(r.Context(), auth.UserID(r), req.Content)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.Created(w, p)
}

// HandleDelete removes a post.
// DELETE /api/posts/{postID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.param(w, r, "postID", "post")
	if !ok {
		return
	}
	if err := h.Feed.DeletePost(r.Context(), postID, auth.UserID(r)); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.NoContent(w)
}

// HandleLike toggles the caller's like.
// POST /api/posts/{postID}/like
func (h *Handler) HandleLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.param(w, r, "postID", "post")
	if !ok {
		return
	}
	p, err := h.Feed.ToggleLike(r.Context(), postID, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, p)
}

// HandleComment adds a comment.
// POST /api/posts/{postID}/comments
func (h *Handler) HandleComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.param(w, r, "postID", "post")
	if !ok {
		return
	}
	var req contentRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p, err := h.Feed.AddComment(r.Context(), postID, auth.UserID(r), req.Content)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.Created(w, p)
}

// HandleDeleteComment removes a comment.
// DELETE /api/posts/{postID}/comments/{commentID}
func (h *Handler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.param(w, r, "postID", "post")
	if !ok {
		return
	}
	commentID, ok := h.param(w, r, "commentID", "comment")
	if !ok {
		return
	}
	p, err := h.Feed.DeleteComment(r.Context(), postID, commentID, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, p)
}

// HandleCommentLike toggles the caller's like on a comment.
// POST /api/posts/{postID}/comments/{commentID}/like
func (h *Handler) HandleCommentLike(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.param(w, r, "postID", "post")
	if !ok {
		return
	}
	commentID, ok := h.param(w, r, "commentID", "comment")
	if !ok {
		return
	}
	p, err := h.Feed.ToggleCommentLike(r.Context(), postID, commentID, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, p)
}
