// internal/app/features/messages/handler.go
package messages

import (
	"context"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/service/messaging"
	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/filestore"
	"github.com/dalemusser/studyhub/internal/app/system/inputval"
	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DefaultMaxUpload caps a whole multipart message request.
const DefaultMaxUpload int64 = 25 << 20

// memoryLimit is how much of a multipart form is buffered in memory
// before spilling to temp files.
const memoryLimit = 8 << 20

// Handler serves a group's message board.
type Handler struct {
	Messages  *messaging.Service
	Files     filestore.Store
	MaxUpload int64
	ErrLog    *uierrors.ErrorLogger
	Log       *zap.Logger
}

func NewHandler(msgs *messaging.Service, files filestore.Store, maxUpload int64, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		Messages:  msgs,
		Files:     files,
		MaxUpload: maxUpload,
		ErrLog:    errLog,
		Log:       logger,
	}
}

// ServeList returns the board, oldest message first.
// GET /api/groups/{id}/messages
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	groupID, err := uierrors.ObjectID(chi.URLParam(r, "id"), "group")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	msgs, err := h.Messages.ListMessages(r.Context(), groupID, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, msgs)
}

// HandlePost stores any uploaded files and posts the message. Accepts
// multipart/form-data with "content" and up to five "files" parts, or a
// JSON body {"content": "..."} for text-only messages.
// POST /api/groups/{id}/messages
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	groupID, err := uierrors.ObjectID(chi.URLParam(r, "id"), "group")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	var (
		content string
		atts    []models.Attachment
	)
	if isMultipart(r) {
		content, atts, err = h.readMultipart(w, r)
	} else {
		var req struct {
			Content string `json:"content"`
		}
		err = uierrors.DecodeJSON(w, r, &req)
		content = req.Content
	}
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	body, err := messaging.NewMessageBody(content, atts)
	if err == nil {
		var view messaging.MessageView
		view, err = h.Messages.PostMessage(r.Context(), groupID, auth.UserID(r), body)
		if err == nil {
			respond.Created(w, view)
			return
		}
	}

	// The message was not saved, so nothing references the stored files.
	h.discard(r.Context(), atts)
	h.ErrLog.Write(w, r, err)
}

// HandleDelete removes a message and its files.
// DELETE /api/groups/{id}/messages/{messageID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	groupID, err := uierrors.ObjectID(chi.URLParam(r, "id"), "group")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	messageID, err := uierrors.ObjectID(chi.URLParam(r, "messageID"), "message")
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	board, err := h.Messages.DeleteMessage(r.Context(), groupID, messageID, auth.UserID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	respond.OK(w, board)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// readMultipart parses the form and stores each file. On error every file
// stored so far is removed again.
func (h *Handler) readMultipart(w http.ResponseWriter, r *http.Request) (string, []models.Attachment, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return "", nil, apperr.Invalidf("upload exceeds %d bytes", h.MaxUpload)
		}
		return "", nil, apperr.Invalidf("malformed multipart form")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	content := r.FormValue("content")
	headers := r.MultipartForm.File["files"]
	if len(headers) > inputval.MaxAttachments {
		return "", nil, apperr.Invalidf("a message can carry at most %d files", inputval.MaxAttachments)
	}

	atts := make([]models.Attachment, 0, len(headers))
	for _, fh := range headers {
		att, err := h.store(r.Context(), fh)
		if err != nil {
			h.discard(r.Context(), atts)
			return "", nil, err
		}
		atts = append(atts, att)
	}
	return content, atts, nil
}

func (h *Handler) store(ctx context.Context, fh *multipart.FileHeader) (models.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Attachment{}, apperr.Invalidf("unreadable file %q", fh.Filename)
	}
	defer f.Close()

	att, err := h.Files.Put(ctx, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		return models.Attachment{}, apperr.Wrap(err, "store attachment")
	}
	return att, nil
}

func (h *Handler) discard(ctx context.Context, atts []models.Attachment) {
	if len(atts) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
	defer cancel()
	filestore.DeleteAttachments(cctx, h.Files, atts, h.Log, nil)
}
