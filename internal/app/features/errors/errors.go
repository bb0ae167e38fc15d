// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/apperr"
	"github.com/dalemusser/studyhub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrorLogger writes classified errors as JSON responses and logs the ones
// that are the server's fault.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger around logger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// Write sends err to the client with the status its kind maps to.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	respond.Error(w, r, e.log, err)
}

// NotFound is the router's fallback for unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Fail(w, http.StatusNotFound, apperr.NotFound.String(), "no such endpoint")
}

// MethodNotAllowed is the router's fallback for known paths with the
// wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// MaxJSONBody bounds request bodies read by DecodeJSON.
const MaxJSONBody = 1 << 20

// DecodeJSON reads a JSON request body into v. Malformed or oversized
// bodies are InvalidArgument.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return apperr.Invalidf("request body is too large")
		case errors.Is(err, io.EOF):
			return apperr.Invalidf("request body is empty")
		default:
			return apperr.Invalidf("malformed JSON body")
		}
	}
	return nil
}

// ObjectID parses a hex id taken from the URL. A bad id is reported as
// NotFound since no resource can have it.
func ObjectID(raw, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.NotFoundf("%s not found", what)
	}
	return id, nil
}
