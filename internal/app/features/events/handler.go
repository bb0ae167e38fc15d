// internal/app/features/events/handler.go
package events

import (
	"net/http"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	eventsvc "github.com/dalemusser/studyhub/internal/app/service/events"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves group calendar endpoints.
type Handler struct {
	Events *eventsvc.Service
	ErrLog *uierrors.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(events *eventsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		ErrLog: errLog,
		Log:    logger,
	}
}

// createRequest carries RFC 3339 start and end times.
type createRequest struct {
	GroupID     string    `json:"group_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// ServeList returns the live events of every group the caller belongs to,
// soonest first.
// GET /api/events
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	evs, err := h.Events.ListEventsForUser(r.Context(), auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, evs)
}

// HandleCreate schedules an event in the group named by the body.
// POST /api/events
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		h.ErrLog.Write(w, r, apperr.Invalidf("group_id is required"))
		return
	}
	h.create(w, r, groupID, req)
}

// HandleDelete removes an event. Only its creator may delete it.
// DELETE /api/events/{eventID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	eventID, err := uierrors.ObjectID(chi.URLParam(r, "eventID"), "event")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if err := h.Events.DeleteEvent(r.Context(), eventID, auth.UserID(r)); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.NoContent(w)
}

// ServeGroupList returns one group's live events.
// GET /api/groups/{id}/events
func (h *Handler) ServeGroupList(w http.ResponseWriter, r *http.Request) {
	groupID, err := uierrors.ObjectID(chi.URLParam(r, "id"), "group")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	evs, err := h.Events.ListEventsForGroup(r.Context(), groupID, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, evs)
}

// HandleGroupCreate schedules an event in the group named by the path.
// POST /api/groups/{id}/events
func (h *Handler) HandleGroupCreate(w http.ResponseWriter, r *http.Request) {
	groupID, err := uierrors.ObjectID(chi.URLParam(r, "id"), "group")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	var req createRequest
	if err := uierrors.DecodeJSON(w, r, &req); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.create(w, r, groupID, req)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, groupID primitive.ObjectID, req createRequest) {
	ev, err := h.Events.CreateEvent(r.Context(), auth.UserID(r), eventsvc.CreateInput{
		GroupID:     groupID,
		Title:       req.Title,
		Description: req.Description,
		Start:       req.Start,
		End:         req.End,
	})
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.Created(w, ev)
}
