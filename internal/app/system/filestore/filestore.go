// Package filestore persists message attachments on top of a waffle
// storage backend.
//
// Attachments are addressed by the URL returned from Put; Delete takes that
// same URL. Delete is idempotent: deleting a file that is already gone is
// not an error.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/google/uuid"
)

// Store is the attachment backend used by the messaging service.
type Store interface {
	Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (models.Attachment, error)
	Delete(ctx context.Context, url string) error
}

// ErrForeignURL is returned by Delete for a URL this store did not issue.
var ErrForeignURL = errors.New("url does not belong to this file store")

// objectKey builds a unique key: attachments/YYYY/MM/<uuid8>-<filename>.
func objectKey(now time.Time, filename string) string {
	dateDir := fmt.Sprintf("attachments/%04d/%02d", now.Year(), now.Month())
	return path.Join(dateDir, fmt.Sprintf("%s-%s", uuid.New().String()[:8], sanitizeFilename(filename)))
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with '_'. Long names are truncated, keeping a short extension.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	if filename == "." || filename == "/" {
		filename = ""
	}

	result := make([]byte, 0, len(filename))
	for i := 0; i < len(filename); i++ {
		c := filename[i]
		if isAllowedFilenameChar(c) {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}

	if len(result) == 0 {
		return "file"
	}
	if len(result) > 100 {
		ext := filepath.Ext(string(result))
		if len(ext) > 0 && len(ext) < 10 {
			result = append(result[:100-len(ext)], ext...)
		} else {
			result = result[:100]
		}
	}
	return string(result)
}

func isAllowedFilenameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '.' || c == '-' || c == '_'
}
