package filestore

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.uber.org/zap"
)

type flakyDeleter struct {
	deleted []string
	fail    map[string]bool
}

func (d *flakyDeleter) Delete(_ context.Context, url string) error {
	if d.fail[url] {
		return errors.New("disk error")
	}
	d.deleted = append(d.deleted, url)
	return nil
}

func TestDeleteAttachments_ContinuesPastFailures(t *testing.T) {
	d := &flakyDeleter{fail: map[string]bool{"/u/b": true}}
	atts := []models.Attachment{{URL: "/u/a"}, {URL: "/u/b"}, {URL: "/u/c"}}

	calls := 0
	failed := DeleteAttachments(context.Background(), d, atts, zap.NewNop(), func() { calls++ })

	if failed != 1 || calls != 1 {
		t.Errorf("failed = %d, onFail calls = %d; want 1, 1", failed, calls)
	}
	if len(d.deleted) != 2 || d.deleted[0] != "/u/a" || d.deleted[1] != "/u/c" {
		t.Errorf("deleted = %v", d.deleted)
	}
}
