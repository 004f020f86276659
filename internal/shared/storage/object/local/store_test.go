package local

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"docinsight-backend/internal/shared/storage/object"
	"docinsight-backend/internal/shared/util"
)

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	key, size, mime, err := store.Save(ctx, "guest:abc", "report.pdf", strings.NewReader("%PDF-1.4\nhello"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("%PDF-1.4\nhello")) {
		t.Fatalf("unexpected size %d", size)
	}
	if mime != "application/pdf" {
		t.Fatalf("expected sniffed application/pdf, got %q", mime)
	}
	if !strings.HasSuffix(key, "_report.pdf") {
		t.Fatalf("expected key to keep original name, got %q", key)
	}
	if !strings.HasPrefix(key, util.UserNamespace("guest:abc")+"/") {
		t.Fatalf("expected key under the user namespace, got %q", key)
	}

	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists after save: ok=%v err=%v", ok, err)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.4\nhello" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete twice should be a no-op: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../etc/passwd"); !errors.Is(err, util.ErrInvalidKey) {
		t.Fatalf("expected traversal key to be rejected, got %v", err)
	}
	if _, err := store.Exists(context.Background(), "/abs/path"); !errors.Is(err, util.ErrInvalidKey) {
		t.Fatalf("expected absolute key to be rejected, got %v", err)
	}
}
