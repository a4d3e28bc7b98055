// internal/deploy/extract_test.go
//
// ZipExtractor tests, including hostile entry names.
//
// Run: go test ./internal/deploy -run TestZip -v

package deploy

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestZipExtract(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "site.zip")
	writeZip(t, archive, map[string]string{
		"index.html":        "<html>",
		"blog/post.html":    "<p>hi</p>",
		"assets/js/main.js": "console.log(1)",
	})

	dest := filepath.Join(dir, "out")
	root, err := ZipExtractor{}.Extract(context.Background(), archive, dest)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if root != dest {
		t.Fatalf("root = %q, want %q", root, dest)
	}

	for _, rel := range []string{"index.html", "blog/post.html", "assets/js/main.js"} {
		if _, err := os.Stat(filepath.Join(dest, filepath.FromSlash(rel))); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
}

func TestZipExtract_RejectsEscapingEntry(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{Name: "../outside.html"})
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if _, err := w.Write([]byte("escape")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	f.Close()

	dest := filepath.Join(dir, "out")
	if _, err := (ZipExtractor{}).Extract(context.Background(), archive, dest); err == nil {
		t.Fatal("hostile entry accepted")
	}
	if _, err := os.Stat(filepath.Join(dir, "outside.html")); !os.IsNotExist(err) {
		t.Fatal("escaping entry written outside destination")
	}
}

func TestZipExtract_NotAZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "garbage.zip")
	if err := os.WriteFile(archive, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (ZipExtractor{}).Extract(context.Background(), archive, filepath.Join(dir, "out")); err == nil {
		t.Fatal("garbage archive accepted")
	}
}
