package filestore

import (
	"context"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.uber.org/zap"
)

// Deleter removes stored files by URL.
type Deleter interface {
	Delete(ctx context.Context, url string) error
}

// DeleteAttachments removes every attachment, logging failures instead of
// returning them. onFail, if set, runs once per failed delete. It returns
// the number of failures.
func DeleteAttachments(ctx context.Context, d Deleter, atts []models.Attachment, log *zap.Logger, onFail func()) int {
	failed := 0
	for _, a := range atts {
		if err := d.Delete(ctx, a.URL); err != nil {
			failed++
			log.Warn("attachment delete failed",
				zap.String("url", a.URL),
				zap.Error(err))
			if onFail != nil {
				onFail()
			}
		}
	}
	return failed
}
