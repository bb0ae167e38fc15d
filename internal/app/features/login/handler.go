// internal/app/features/login/handler.go
package login

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	accountsvc "github.com/dalemusser/studyhub/internal/app/service/accounts"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves registration, sign-in and sign-out.
type Handler struct {
	Accounts   *accountsvc.Service
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	// RegisterLimiter, if set, throttles account creation per client IP.
	RegisterLimiter *ratelimit.Limiter
	ErrLog          *uierrors.ErrorLogger
	Log             *zap.Logger
}

func NewHandler(accounts *accountsvc.Service, sm *auth.SessionManager, limiter *ratelimit.LoginLimiter, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts:   accounts,
		SessionMgr: sm,
		Limiter:    limiter,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      accountsvc.Profile `json:"user"`
}

// HandleRegister creates an account and signs it in.
// POST /api/auth/register
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	u, err := h.Accounts.Register(r.Context(), accountsvc.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Bio:      req.Bio,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	resp, ok := h.startSession(w, r, u)
	if !ok {
		return
	}
	respond.Created(w, resp)
}

// HandleLogin checks credentials and starts a session.
// POST /api/auth/login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, req.Login); !ok {
			h.Log.Warn("login rate limited",
				zap.String("ip", ratelimit.ClientIP(r)),
				zap.String("login", req.Login))
			ratelimit.WriteLimited(w, msg)
			return
		}
	}

	u, err := h.Accounts.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetAccount(req.Login)
	}
	resp, ok := h.startSession(w, r, u)
	if !ok {
		return
	}
	respond.OK(w, resp)
}

// HandleLogout clears the session cookie. Bearer tokens simply expire.
// POST /api/auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("clear session failed", zap.Error(err))
	}
	respond.NoContent(w)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, u models.User) (sessionResponse, bool) {
	su := auth.SessionUser{ID: u.ID.Hex(), Username: u.Username}
	token, exp, err := h.SessionMgr.IssueToken(su)
	if err != nil {
		h.Log.Error("issue token failed", zap.Error(err), zap.String("user_id", su.ID))
		respond.Fail(w, http.StatusInternalServerError, "internal", "internal error")
		return sessionResponse{}, false
	}
	if err := h.SessionMgr.SignIn(w, r, su); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", su.ID))
		respond.Fail(w, http.StatusInternalServerError, "internal", "internal error")
		return sessionResponse{}, false
	}
	h.Log.Info("user signed in", zap.String("user_id", su.ID))
	return sessionResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      accountsvc.ProfileOf(u, true),
	}, true
}
