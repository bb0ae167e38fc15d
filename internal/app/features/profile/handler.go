// internal/app/features/profile/handler.go
package profile

import (
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	accountsvc "github.com/dalemusser/studyhub/internal/app/service/accounts"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler owns all user profile handlers.
type Handler struct {
	Accounts *accountsvc.Service
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs a Handler bound to the accounts service and logger.
func NewHandler(accounts *accountsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts: accounts,
		Log:      logger,
		ErrLog:   errLog,
	}
}

type updateRequest struct {
	Username       *string `json:"username"`
	Bio            *string `json:"bio"`
	ProfilePicture *string `json:"profile_picture"`
}

// ServeMe returns the caller's own profile.
// GET /api/users/me
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r)
	p, err := h.Accounts.GetProfile(r.Context(), uid, uid)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, p)
}

// HandleUpdateMe changes the caller's profile.
// PATCH /api/users/me
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p, err := h.Accounts.UpdateProfile(r.Context(), auth.UserID(r), accountsvc.ProfileInput{
		Username:       req.Username,
		Bio:            req.Bio,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, p)
}

// ServeUser returns another user's public profile.
// GET /api/users/{id}
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	id, err := uierrors.ObjectID(chi.URLParam(r, "id"), "user")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	p, err := h.Accounts.GetProfile(r.Context(), id, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, p)
}
