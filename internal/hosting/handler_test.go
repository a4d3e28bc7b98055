// internal/hosting/handler_test.go
//
// End-to-end handler scenarios over httptest with a fake tenant lookup.
//
// Covered behaviours:
//
//   • deployed subdomain-mode site answers on its subdomain      → 200
//   • same site via /sites/… is a pass-through (mode disallows)  → next
//   • mode "both" resolves clean URLs under the mount            → 200
//   • pending site with files on disk is still a pass-through    → next
//   • miss inside a claimed site halts with the fixed 404        → 404
//   • traversal escape answers with the same 404                 → 404
//
// Run: go test ./internal/hosting -run TestHandler -v

package hosting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/yanizio/kiosk/internal/site"
)

// fakeSite satisfies HostedSite with injectable fields.
type fakeSite struct {
	mode     string
	deployed bool
	dir      string
}

func (f *fakeSite) RoutingMode() string { return f.mode }
func (f *fakeSite) Deployed() bool      { return f.deployed }
func (f *fakeSite) RootDir() string     { return f.dir }

// lookupMap is a Lookup backed by a plain map.
func lookupMap(m map[string]*fakeSite) Lookup {
	return func(_ context.Context, subdomain string) (HostedSite, error) {
		if s, ok := m[subdomain]; ok {
			return s, nil
		}
		return nil, errors.New("no such tenant")
	}
}

// passthrough records whether the fallback router saw the request.
type passthrough struct{ hit bool }

func (p *passthrough) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	p.hit = true
	w.WriteHeader(http.StatusTeapot) // distinctive
}

func serve(h *Handler, host, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Host = host
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_SubdomainServes(t *testing.T) {
	dir := siteFixture(t)
	next := &passthrough{}
	h := NewHandler(NewResolver("example.com"),
		lookupMap(map[string]*fakeSite{
			"acme": {mode: site.RouteModeSubdomain, deployed: true, dir: dir},
		}), next)

	rr := serve(h, "acme.localhost", "/")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Body.String(); got != "home" {
		t.Fatalf("body = %q, want index content", got)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content-type = %q", ct)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Fatalf("cache-control = %q", cc)
	}
	if next.hit {
		t.Fatal("request leaked to fallback router")
	}
}

func TestHandler_SubpathDisallowedPassesThrough(t *testing.T) {
	dir := siteFixture(t)
	next := &passthrough{}
	h := NewHandler(NewResolver("example.com"),
		lookupMap(map[string]*fakeSite{
			"acme": {mode: site.RouteModeSubdomain, deployed: true, dir: dir},
		}), next)

	rr := serve(h, "localhost", "/sites/acme/")
	if !next.hit || rr.Code != http.StatusTeapot {
		t.Fatalf("want pass-through, got status %d (next hit: %v)", rr.Code, next.hit)
	}
}

func TestHandler_BothModeCleanURL(t *testing.T) {
	dir := siteFixture(t)
	next := &passthrough{}
	h := NewHandler(NewResolver("example.com"),
		lookupMap(map[string]*fakeSite{
			"beta": {mode: site.RouteModeBoth, deployed: true, dir: dir},
		}), next)

	rr := serve(h, "example.com", "/sites/beta/about")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Body.String(); got != "about" {
		t.Fatalf("body = %q, want about.html content", got)
	}
}

func TestHandler_AssetCacheHeaders(t *testing.T) {
	dir := siteFixture(t)
	h := NewHandler(NewResolver("example.com"),
		lookupMap(map[string]*fakeSite{
			"beta": {mode: site.RouteModeBoth, deployed: true, dir: dir},
		}), &passthrough{})

	rr := serve(h, "beta.example.com", "/assets/app.css")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if cc := rr.Header().Get("Cache-Control"); cc != "public, max-age=31536000, immutable" {
		t.Fatalf("cache-control = %q", cc)
	}
}

func TestHandler_PendingSitePassesThrough(t *testing.T) {
	// Files exist on disk, but the status gate decides, not the
	// filesystem.
	dir := siteFixture(t)
	next := &passthrough{}
	h := NewHandler(NewResolver("example.com"),
		lookupMap(map[string]*fakeSite{
			"gamma": {mode: site.RouteModeSubdomain, deployed: false, dir: dir},
		}), next)

	rr := serve(h, "gamma.example.com", "/")
	if !next.hit || rr.Code != http.StatusTeapot {
		t.Fatalf("want pass-through, got status %d (next hit: %v)", rr.Code, next.hit)
	}
}

func TestHandler_UnknownTenantPassesThrough(t *testing.T) {
	next := &passthrough{}
	h := NewHandler(NewResolver("example.com"), lookupMap(nil), next)

	rr := serve(h, "ghost.example.com", "/")
	if !next.hit || rr.Code != http.StatusTeapot {
		t.Fatalf("want pass-through, got status %d", rr.Code)
	}
}

func TestHandler_MissInsideSiteIs404(t *testing.T) {
	dir := siteFixture(t)
	next := &passthrough{}
	h := NewHandler(NewResolver("example.com"),
		lookupMap(map[string]*fakeSite{
			"acme": {mode: site.RouteModeSubdomain, deployed: true, dir: dir},
		}), next)

	rr := serve(h, "acme.example.com", "/nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if next.hit {
		t.Fatal("404 must halt routing, not fall through")
	}
	if !strings.Contains(rr.Body.String(), "404 Not Found") {
		t.Fatalf("body = %q, want generic 404 page", rr.Body.String())
	}
}

func TestHandler_SymlinkEscapeIs404(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := siteFixture(t)
	secret := filepath.Join(filepath.Dir(dir), "secret.html")
	if err := os.WriteFile(secret, []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Symlink(secret, filepath.Join(dir, "leak.html")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	next := &passthrough{}
	h := NewHandler(NewResolver("example.com"),
		lookupMap(map[string]*fakeSite{
			"acme": {mode: site.RouteModeSubdomain, deployed: true, dir: dir},
		}), next)

	rr := serve(h, "acme.example.com", "/leak.html")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "secret") {
		t.Fatal("escaped file content leaked")
	}
}
