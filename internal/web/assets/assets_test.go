package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestWebRoot_Embedded(t *testing.T) {
	root := WebRoot("")
	for _, name := range []string{"css/site.css", "js/site.js", "robots.txt"} {
		if _, err := fs.Stat(root, name); err != nil {
			t.Fatalf("expected embedded %s: %v", name, err)
		}
	}
}

func TestWebRoot_DiskOverride(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	b, err := fs.ReadFile(WebRoot(dir), "custom.txt")
	if err != nil || string(b) != "hi" {
		t.Fatalf("expected disk file, got %q, %v", b, err)
	}
}

func TestWebRoot_MissingDirFallsBack(t *testing.T) {
	root := WebRoot(filepath.Join(t.TempDir(), "nope"))
	if _, err := fs.Stat(root, "css/site.css"); err != nil {
		t.Fatalf("expected fallback to embedded files: %v", err)
	}
}
