package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.png"))
	touch(t, filepath.Join(root, "b.JPG"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "sub", "c.webp"))
	touch(t, filepath.Join(root, ".bf", "hidden.png"))
	touch(t, filepath.Join(root, "sub", ".bf", "deep.png"))

	got, err := Discover(root, DefaultOptions())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	want := []string{
		filepath.Join(root, "a.png"),
		filepath.Join(root, "b.JPG"),
		filepath.Join(root, "sub", "c.webp"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscoverInvalidRoot(t *testing.T) {
	root := t.TempDir()
	if _, err := Discover(filepath.Join(root, "missing"), DefaultOptions()); err == nil {
		t.Error("expected error for missing root")
	}

	file := filepath.Join(root, "file.png")
	touch(t, file)
	if _, err := Discover(file, DefaultOptions()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestDiscoverEmpty(t *testing.T) {
	got, err := Discover(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no files, got %v", got)
	}
}
