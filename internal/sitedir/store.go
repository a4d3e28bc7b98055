// internal/sitedir/store.go
//
// On-disk layout for deployed sites.
//
// Context
// -------
// Every deployed tenant owns one directory, {static_root}/sites/{subdomain}.
// This package is the only code that composes those paths, so the layout
// lives in exactly one place.  The deploy state machine creates, replaces,
// and destroys site directories; the routing path only reads them.
//
// Notes
// -----
// • Path(subdomain) refuses invalid labels rather than joining them, so a
//   hostile subdomain can never escape the sites root.
// • HasHTML mirrors the recursive walk used for template collection in
//   earlier projects: WalkDir, skip directories, match extensions.
package sitedir

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanizio/kiosk/internal/site"
)

// ErrBadSubdomain is returned when a caller passes a label that does not
// satisfy the site subdomain constraints.
var ErrBadSubdomain = errors.New("sitedir: invalid subdomain")

// Store composes and manipulates site directories under one static root.
type Store struct {
	root string // absolute {static_root}
}

// New returns a Store rooted at staticRoot.  The sites and incoming
// sub-directories are created if absent so first deploys and the archive
// watcher have somewhere to land.
func New(staticRoot string) (*Store, error) {
	abs, err := filepath.Abs(staticRoot)
	if err != nil {
		return nil, err
	}
	for _, d := range []string{filepath.Join(abs, "sites"), filepath.Join(abs, "incoming")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: abs}, nil
}

// SitesRoot returns the absolute directory that contains all site dirs.
func (s *Store) SitesRoot() string { return filepath.Join(s.root, "sites") }

// IncomingDir returns the drop directory watched for uploaded archives.
func (s *Store) IncomingDir() string { return filepath.Join(s.root, "incoming") }

// Path returns the absolute directory for one subdomain.
func (s *Store) Path(subdomain string) (string, error) {
	if !site.ValidSubdomain(subdomain) {
		return "", ErrBadSubdomain
	}
	return filepath.Join(s.SitesRoot(), subdomain), nil
}

// Exists reports whether the subdomain's directory exists and is a
// directory (a stray regular file at that path counts as absent).
func (s *Store) Exists(subdomain string) bool {
	dir, err := s.Path(subdomain)
	if err != nil {
		return false
	}
	fi, err := os.Stat(dir)
	return err == nil && fi.IsDir()
}

// Remove deletes the subdomain's directory recursively.  Removing an
// absent directory is a no-op, which keeps failure cleanup idempotent.
func (s *Store) Remove(subdomain string) error {
	dir, err := s.Path(subdomain)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

// HasHTML walks dir recursively and reports whether at least one .html or
// .htm file exists.  The walk stops at the first match.
func HasHTML(dir string) (bool, error) {
	var found bool
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil { // propagate filesystem errors immediately
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}
