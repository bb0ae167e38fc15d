// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/auth.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	if h.RegisterLimiter != nil {
		r.With(h.RegisterLimiter.Middleware).Post("/register", h.HandleRegister)
	} else {
		r.Post("/register", h.HandleRegister)
	}
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	return r
}
