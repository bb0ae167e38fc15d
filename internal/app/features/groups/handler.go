// internal/app/features/groups/handler.go
package groups

import (
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	groupsvc "github.com/dalemusser/studyhub/internal/app/service/groups"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves group management endpoints.
type Handler struct {
	Groups *groupsvc.Service
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(groups *groupsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups: groups,
		ErrLog: errLog,
		Log:    logger,
	}
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Icon        string `json:"icon"`
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Icon        *string `json:"icon"`
}

func (h *Handler) groupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := uierrors.ObjectID(chi.URLParam(r, "id"), "group")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return id, false
	}
	return id, true
}

// ServeList lists all groups, optionally by category.
// GET /api/groups?category=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	gs, err := h.Groups.ListGroups(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, gs)
}

// ServeMine lists the caller's groups.
// GET /api/groups/mine
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	gs, err := h.Groups.ListMyGroups(r.Context(), auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, gs)
}

// HandleCreate creates a group owned by the caller.
// POST /api/groups
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	g, err := h.Groups.CreateGroup(r.Context(), auth.UserID(r), groupsvc.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Icon:        req.Icon,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.Created(w, g)
}

// ServeGroup returns one group with its members.
// GET /api/groups/{id}
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	g, err := h.Groups.GetGroup(r.Context(), id)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, g)
}

// HandleUpdate edits a group's details.
// PATCH /api/groups/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	g, err := h.Groups.UpdateGroup(r.Context(), id, auth.UserID(r), groupsvc.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Icon:        req.Icon,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, g)
}

// HandleDelete deletes a group.
// DELETE /api/groups/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	if err := h.Groups.DeleteGroup(r.Context(), id, auth.UserID(r)); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("group deleted",
		zap.String("group_id", id.Hex()),
		zap.String("user_id", auth.UserID(r).Hex()))
	respond.NoContent(w)
}

// HandleJoin adds the caller to a group.
// POST /api/groups/{id}/join
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	g, err := h.Groups.JoinGroup(r.Context(), id, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, g)
}

// HandleLeave removes the caller from a group.
// POST /api/groups/{id}/leave
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}
	g, err := h.Groups.LeaveGroup(r.Context(), id, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, g)
}
