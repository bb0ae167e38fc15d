// internal/app/features/feed/routes.go
package feed

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/posts.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Delete("/{postID}", h.HandleDelete)
		pr.Post("/{postID}/like", h.HandleLike)

		pr.Post("/{postID}/comments", h.HandleComment)
		pr.Delete("/{postID}/comments/{commentID}", h.HandleDeleteComment)
		pr.Post("/{postID}/comments/{commentID}/like", h.HandleCommentLike)
	})
	return r
}
