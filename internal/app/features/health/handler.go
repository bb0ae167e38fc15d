package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	DB        Pinger
	FileStore string
	Log       *zap.Logger
}

// NewHandler constructs a health Handler. fileStore names the active
// attachment backend ("local" or "s3").
func NewHandler(db Pinger, fileStore string, logger *zap.Logger) *Handler {
	return &Handler{
		DB:        db,
		FileStore: fileStore,
		Log:       logger,
	}
}

type healthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	FileStore string `json:"file_store,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "file_store":"local" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"database unavailable" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	if err := h.DB.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		respond.JSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:   "error",
			Database: "disconnected",
			Message:  "database unavailable",
		})
		return
	}

	respond.OK(w, healthResponse{
		Status:    "ok",
		Database:  "connected",
		FileStore: h.FileStore,
	})
}
