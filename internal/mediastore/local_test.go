package mediastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"neuroscreen/internal/services"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLocalFetchSingleFile(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	writeFile(t, filepath.Join(root, "recordings", "sample.wav"), "audio-bytes")

	store, err := NewLocal(root, staging)
	if err != nil {
		t.Fatal(err)
	}
	handle, err := store.Fetch(context.Background(), "recordings/sample.wav")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer handle.Cleanup()

	if len(handle.Paths) != 1 {
		t.Fatalf("paths = %v, want one", handle.Paths)
	}
	data, err := os.ReadFile(handle.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("staged content = %q", data)
	}
}

func TestLocalFetchSeriesDirectory(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	writeFile(t, filepath.Join(root, "series", "b.dcm"), "two")
	writeFile(t, filepath.Join(root, "series", "a.dcm"), "one")

	store, err := NewLocal(root, staging)
	if err != nil {
		t.Fatal(err)
	}
	handle, err := store.Fetch(context.Background(), "series")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer handle.Cleanup()

	if len(handle.Paths) != 2 {
		t.Fatalf("paths = %v, want two", handle.Paths)
	}
	if filepath.Base(handle.Paths[0]) != "a.dcm" || filepath.Base(handle.Paths[1]) != "b.dcm" {
		t.Errorf("paths should be sorted: %v", handle.Paths)
	}
}

func TestLocalFetchMissingIsUnreadable(t *testing.T) {
	store, err := NewLocal(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Fetch(context.Background(), "nope.wav")
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("err = %v, want ErrUnreadableMedia", err)
	}
}

func TestLocalFetchRejectsEscape(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ok.wav"), "x")
	store, err := NewLocal(root, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Fetch(context.Background(), "../../etc/passwd")
	if !errors.Is(err, services.ErrUnreadableMedia) && !errors.Is(err, services.ErrValidation) {
		t.Fatalf("escaping reference should fail, got %v", err)
	}
}

func TestLocalFetchEmptyDirectoryFails(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := NewLocal(root, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Fetch(context.Background(), "empty")
	if !errors.Is(err, services.ErrUnreadableMedia) {
		t.Fatalf("err = %v, want ErrUnreadableMedia", err)
	}
}

func TestHandleCleanupRemovesStaging(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	writeFile(t, filepath.Join(root, "sample.wav"), "x")

	store, err := NewLocal(root, staging)
	if err != nil {
		t.Fatal(err)
	}
	handle, err := store.Fetch(context.Background(), "sample.wav")
	if err != nil {
		t.Fatal(err)
	}
	dir := handle.Dir
	if err := handle.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("staging dir should be gone, stat err = %v", err)
	}
	// Second cleanup is a no-op.
	if err := handle.Cleanup(); err != nil {
		t.Errorf("repeat Cleanup: %v", err)
	}
}
