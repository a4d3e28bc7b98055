// internal/deploy/deployer_test.go
//
// State machine tests with a fake repository and real/fake extractors.
//
// Run: go test ./internal/deploy -v

package deploy

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yanizio/kiosk/internal/site"
	"github.com/yanizio/kiosk/internal/sitedir"
)

//
// fakes
//

type fakeRepo struct {
	mu  sync.Mutex
	rec *site.Record

	statuses   []string // every status written, in order
	lastErr    *string
	deployedAt *time.Time
}

func (f *fakeRepo) ByID(_ context.Context, id uint64) (*site.Record, error) {
	if f.rec == nil || f.rec.ID != id {
		return nil, site.ErrNotFound
	}
	cp := *f.rec
	return &cp, nil
}

func (f *fakeRepo) SetDeployStatus(_ context.Context, _ uint64, status string, errMsg *string, deployedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.lastErr = errMsg
	if deployedAt != nil {
		f.deployedAt = deployedAt
	}
	return nil
}

func (f *fakeRepo) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return ""
	}
	return f.statuses[len(f.statuses)-1]
}

type fakeExtractor struct {
	err   error
	files map[string]string // relative path → content written on success
}

func (f fakeExtractor) Extract(_ context.Context, _ string, destDir string) (string, error) {
	if f.err != nil {
		// Simulate partial output the caller must clean up.
		_ = os.MkdirAll(destDir, 0o755)
		_ = os.WriteFile(filepath.Join(destDir, "partial.tmp"), []byte("x"), 0o644)
		return "", f.err
	}
	for rel, content := range f.files {
		p := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return "", err
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			return "", err
		}
	}
	return destDir, nil
}

//
// helpers
//

func testTenant() *site.Record {
	return &site.Record{
		ID:               7,
		Name:             "Acme Corp",
		Subdomain:        "acme",
		RoutingMode:      site.RouteModeSubdomain,
		DeploymentStatus: site.StatusPending,
	}
}

// writeZip builds a zip archive at path from rel→content pairs.
func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for rel, content := range files {
		w, err := zw.Create(rel)
		if err != nil {
			t.Fatalf("zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
}

func newStore(t *testing.T) *sitedir.Store {
	t.Helper()
	s, err := sitedir.New(t.TempDir())
	if err != nil {
		t.Fatalf("sitedir.New: %v", err)
	}
	return s
}

//
// tests
//

func TestRun_RoundTrip(t *testing.T) {
	store := newStore(t)
	repo := &fakeRepo{rec: testTenant()}

	archive := filepath.Join(store.IncomingDir(), "acme.zip")
	writeZip(t, archive, map[string]string{
		"index.html":     "<h1>acme</h1>",
		"assets/app.css": "body{}",
	})

	d := New(repo, store, ZipExtractor{}, nil)
	if err := d.Run(context.Background(), Job{TenantID: 7, ArchivePath: archive}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantStatuses := []string{site.StatusDeploying, site.StatusDeployed}
	if len(repo.statuses) != 2 || repo.statuses[0] != wantStatuses[0] || repo.statuses[1] != wantStatuses[1] {
		t.Fatalf("statuses = %v, want %v", repo.statuses, wantStatuses)
	}
	if repo.deployedAt == nil {
		t.Fatal("last_deployed_at not stamped")
	}
	if repo.lastErr != nil {
		t.Fatalf("error field not cleared: %q", *repo.lastErr)
	}

	dir, _ := store.Path("acme")
	body, err := os.ReadFile(filepath.Join(dir, "index.html"))
	if err != nil || string(body) != "<h1>acme</h1>" {
		t.Fatalf("extracted index.html = %q, %v", body, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "assets", "app.css")); err != nil {
		t.Fatalf("extracted asset missing: %v", err)
	}

	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Fatalf("source archive not deleted: %v", err)
	}
}

func TestRun_ReplacesPreviousVersion(t *testing.T) {
	store := newStore(t)
	repo := &fakeRepo{rec: testTenant()}

	// Simulate leftovers from a previous deployment.
	dir, _ := store.Path("acme")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stale.html"), []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	archive := filepath.Join(store.IncomingDir(), "acme.zip")
	writeZip(t, archive, map[string]string{"index.html": "new"})

	d := New(repo, store, ZipExtractor{}, nil)
	if err := d.Run(context.Background(), Job{TenantID: 7, ArchivePath: archive}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "stale.html")); !os.IsNotExist(err) {
		t.Fatal("stale file survived the full replace")
	}
}

func TestRun_ExtractFailureCleansUp(t *testing.T) {
	store := newStore(t)
	repo := &fakeRepo{rec: testTenant()}

	archive := filepath.Join(t.TempDir(), "acme.zip")
	if err := os.WriteFile(archive, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := New(repo, store, fakeExtractor{err: errors.New("bad archive")}, nil)
	if err := d.Run(context.Background(), Job{TenantID: 7, ArchivePath: archive}); err == nil {
		t.Fatal("Run succeeded, want error")
	}

	if got := repo.last(); got != site.StatusFailed {
		t.Fatalf("status = %q, want failed", got)
	}
	if repo.lastErr == nil {
		t.Fatal("failure reason not recorded")
	}
	if store.Exists("acme") {
		t.Fatal("partial site directory left behind")
	}
	if _, err := os.Stat(archive); !os.IsNotExist(err) {
		t.Fatal("source archive not deleted on failure")
	}
}

func TestRun_NoHTMLFails(t *testing.T) {
	store := newStore(t)
	repo := &fakeRepo{rec: testTenant()}

	archive := filepath.Join(t.TempDir(), "acme.zip")
	writeZip(t, archive, map[string]string{"styles/app.css": "body{}"})

	d := New(repo, store, ZipExtractor{}, nil)
	if err := d.Run(context.Background(), Job{TenantID: 7, ArchivePath: archive}); err == nil {
		t.Fatal("Run succeeded, want validation failure")
	}

	if got := repo.last(); got != site.StatusFailed {
		t.Fatalf("status = %q, want failed", got)
	}
	if repo.lastErr == nil || *repo.lastErr != "no HTML files found" {
		t.Fatalf("reason = %v, want %q", repo.lastErr, "no HTML files found")
	}
	if store.Exists("acme") {
		t.Fatal("site directory should be removed when validation fails")
	}
}

func TestRun_TenantMissAborts(t *testing.T) {
	store := newStore(t)
	repo := &fakeRepo{} // no tenant rows at all

	archive := filepath.Join(t.TempDir(), "ghost.zip")
	writeZip(t, archive, map[string]string{"index.html": "x"})

	d := New(repo, store, ZipExtractor{}, nil)
	if err := d.Run(context.Background(), Job{TenantID: 42, ArchivePath: archive}); err == nil {
		t.Fatal("Run succeeded for missing tenant")
	}
	if len(repo.statuses) != 0 {
		t.Fatalf("status mutated for missing tenant: %v", repo.statuses)
	}
}

func TestRun_ConcurrentJobFailsFast(t *testing.T) {
	store := newStore(t)
	repo := &fakeRepo{rec: testTenant()}

	d := New(repo, store, ZipExtractor{}, nil)
	if !d.locks.tryLock("acme") {
		t.Fatal("cannot seed lock")
	}
	defer d.locks.unlock("acme")

	archive := filepath.Join(t.TempDir(), "acme.zip")
	writeZip(t, archive, map[string]string{"index.html": "x"})

	err := d.Run(context.Background(), Job{TenantID: 7, ArchivePath: archive})
	if !errors.Is(err, ErrTenantBusy) {
		t.Fatalf("err = %v, want ErrTenantBusy", err)
	}
	if got := repo.last(); got != site.StatusFailed {
		t.Fatalf("status = %q, want failed", got)
	}
}
