package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/waffle/pantry/storage"
)

func newLocalBlobs(t *testing.T, dir, baseURL string) *Blobs {
	t.Helper()
	local, err := storage.NewLocal(storage.LocalConfig{BasePath: dir, BaseURL: baseURL})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	b, err := NewBlobs(local)
	if err != nil {
		t.Fatalf("NewBlobs: %v", err)
	}
	return b
}

func TestBlobs_LocalPutAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := newLocalBlobs(t, dir, "/uploads/")

	if store.Backend() != "local" {
		t.Errorf("Backend = %q, want local", store.Backend())
	}

	att, err := store.Put(ctx, "notes week 1.pdf", strings.NewReader("hello"), 5, "application/pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if att.Name != "notes week 1.pdf" {
		t.Errorf("Name = %q", att.Name)
	}
	if !strings.HasPrefix(att.URL, "/uploads/attachments/") {
		t.Errorf("URL = %q, want /uploads/attachments/ prefix", att.URL)
	}
	if !strings.HasSuffix(att.URL, "-notes_week_1.pdf") {
		t.Errorf("URL = %q, want sanitized filename suffix", att.URL)
	}

	key, err := store.keyFor(att.URL)
	if err != nil {
		t.Fatalf("keyFor: %v", err)
	}
	full := filepath.Join(dir, filepath.FromSlash(key))
	data, err := os.ReadFile(full)
	if err != nil || string(data) != "hello" {
		t.Fatalf("stored file = %q, %v", data, err)
	}

	if err := store.Delete(ctx, att.URL); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Errorf("expected file removed, stat err = %v", err)
	}
}

func TestBlobs_DeleteMissingIsNoop(t *testing.T) {
	store := newLocalBlobs(t, t.TempDir(), "/uploads")
	if err := store.Delete(context.Background(), "/uploads/attachments/2024/01/abcd1234-gone.txt"); err != nil {
		t.Errorf("Delete of missing file should be nil, got %v", err)
	}
}

func TestBlobs_DeleteRejectsForeignURLs(t *testing.T) {
	root := t.TempDir()
	store := newLocalBlobs(t, filepath.Join(root, "files"), "/uploads")
	outside := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, url := range []string{"/elsewhere/file.txt", "/uploads/../secret.txt", "/uploads/", "/uploads"} {
		if err := store.Delete(context.Background(), url); !errors.Is(err, ErrForeignURL) {
			t.Errorf("Delete(%q) = %v, want ErrForeignURL", url, err)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside root was touched: %v", err)
	}
}

func TestBlobs_MemoryBackendUsesPublicURL(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory(storage.MemoryConfig{BaseURL: "https://cdn.example.com/files"})
	store, err := NewBlobs(mem)
	if err != nil {
		t.Fatalf("NewBlobs: %v", err)
	}

	att, err := store.Put(ctx, "diagram.png", strings.NewReader("png"), 3, "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !strings.HasPrefix(att.URL, "https://cdn.example.com/files/attachments/") {
		t.Errorf("URL = %q", att.URL)
	}
	if mem.Count() != 1 {
		t.Fatalf("objects = %d, want 1", mem.Count())
	}
	if err := store.Delete(ctx, att.URL); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mem.Count() != 0 {
		t.Errorf("objects = %d after delete, want 0", mem.Count())
	}
}

func TestNewBlobs_RequiresPublicURL(t *testing.T) {
	local, err := storage.NewLocal(storage.LocalConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := NewBlobs(local); err == nil {
		t.Error("NewBlobs without a base URL should fail")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"my file (1).txt", "my_file__1_.txt"},
		{"", "file"},
		{strings.Repeat("a", 120) + ".png", strings.Repeat("a", 96) + ".png"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
