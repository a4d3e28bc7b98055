// internal/hosting/files_test.go
//
// File resolution order, clean-URL fallback, and containment.
//
// Run: go test ./internal/hosting -run 'TestResolveFile|TestContained|TestNormalize|TestStripMount' -v

package hosting

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// siteFixture builds a site directory:
//
//	index.html
//	about.html
//	blog/index.html
//	empty/            (no index)
//	assets/app.css
func siteFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, d := range []string{"blog", "empty", "assets"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	files := map[string]string{
		"index.html":      "home",
		"about.html":      "about",
		"blog/index.html": "blog home",
		"assets/app.css":  "body{}",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(rel)), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestResolveFile(t *testing.T) {
	dir := siteFixture(t)

	cases := []struct {
		path    string
		wantRel string // "" means ErrNotFound
	}{
		{"/", "index.html"},
		{"/about.html", "about.html"},            // exact file
		{"/about", "about.html"},                 // clean-URL fallback
		{"/blog", "blog/index.html"},             // directory index
		{"/assets/app.css", "assets/app.css"},    // nested asset
		{"/empty", ""},                           // dir without index
		{"/missing", ""},                         // nothing anywhere
		{"/assets/app", ""},                      // no .html twin for assets
	}

	for _, tc := range cases {
		got, err := ResolveFile(dir, tc.path)
		if tc.wantRel == "" {
			if err != ErrNotFound {
				t.Errorf("ResolveFile(%q) = %q, %v; want ErrNotFound", tc.path, got, err)
			}
			continue
		}
		want := filepath.Join(dir, filepath.FromSlash(tc.wantRel))
		if err != nil || got != want {
			t.Errorf("ResolveFile(%q) = %q, %v; want %q", tc.path, got, err, want)
		}
	}
}

func TestResolveFile_RootWithoutIndex(t *testing.T) {
	dir := t.TempDir()
	if _, err := ResolveFile(dir, "/"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/":        "/",
		"":         "/",
		"/about/":  "/about",
		"/about":   "/about",
		"/a/b/":    "/a/b",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripMount(t *testing.T) {
	cases := map[string]string{
		"/sites/acme":        "/",
		"/sites/acme/":       "/",
		"/sites/acme/about":  "/about",
		"/sites/acme/a/b.js": "/a/b.js",
	}
	for in, want := range cases {
		if got := StripMount(in, "acme"); got != want {
			t.Errorf("StripMount(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContained(t *testing.T) {
	root := siteFixture(t)

	inside, err := ResolveFile(root, "/about")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ok, err := Contained(inside, root)
	if err != nil || !ok {
		t.Fatalf("Contained(inside) = %v, %v; want true", ok, err)
	}

	// A sibling file outside the root is never contained.
	outside := filepath.Join(filepath.Dir(root), "outside.html")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err = Contained(outside, root)
	if err != nil || ok {
		t.Fatalf("Contained(outside) = %v, %v; want false", ok, err)
	}
}

func TestContained_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := siteFixture(t)

	secret := filepath.Join(filepath.Dir(root), "secret.html")
	if err := os.WriteFile(secret, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	link := filepath.Join(root, "leak.html")
	if err := os.Symlink(secret, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	// Lexically the link lives under root, canonically it does not.
	resolved, err := ResolveFile(root, "/leak.html")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ok, err := Contained(resolved, root)
	if err != nil || ok {
		t.Fatalf("Contained(symlink escape) = %v, %v; want false", ok, err)
	}
}
