package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/storage"
)

const urlProbeKey = "k"

// Blobs stores attachments in a storage.Store and hands out the backend's
// public URLs.
type Blobs struct {
	store   storage.Store
	urlBase string
	now     func() time.Time
}

// NewBlobs wraps store. The backend must be configured with a public base
// URL, since attachments are addressed by URL.
func NewBlobs(store storage.Store) (*Blobs, error) {
	base := strings.TrimSuffix(store.URL(urlProbeKey), urlProbeKey)
	if base == "" {
		return nil, fmt.Errorf("%s file store has no public URL", store.Backend())
	}
	return &Blobs{store: store, urlBase: base, now: time.Now}, nil
}

// Backend reports the underlying backend, e.g. "local" or "s3".
func (b *Blobs) Backend() string { return b.store.Backend() }

func (b *Blobs) Put(ctx context.Context, filename string, r io.Reader, _ int64, contentType string) (models.Attachment, error) {
	key := objectKey(b.now().UTC(), filename)
	opts := &storage.PutOptions{ContentType: contentType}
	if err := b.store.Put(ctx, key, r, opts); err != nil {
		return models.Attachment{}, fmt.Errorf("put attachment: %w", err)
	}
	return models.Attachment{URL: b.store.URL(key), Name: filename}, nil
}

func (b *Blobs) Delete(ctx context.Context, url string) error {
	key, err := b.keyFor(url)
	if err != nil {
		return err
	}
	err = b.store.Delete(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}

// keyFor maps an issued URL back to its storage key.
func (b *Blobs) keyFor(url string) (string, error) {
	key, ok := strings.CutPrefix(url, b.urlBase)
	if !ok {
		return "", ErrForeignURL
	}
	key = storage.NormalizePath(key)
	if key == "." || storage.ValidatePath(key) != nil {
		return "", ErrForeignURL
	}
	return key, nil
}
