// internal/hosting/files.go
//
// File resolution and path containment.
//
// Context
// -------
// ResolveFile maps a normalized request path onto a concrete file inside
// one site directory, applying the index-file and clean-URL rules.
// Contained then verifies the canonical result never escapes the site
// root.  Everything that fails resolves to ErrNotFound; the responder
// turns that into one uniform 404 so callers can not probe directory
// structure through error variety.
//
// Resolution order for non-root paths, first match wins:
//
//  1. {dir}/{path} is a regular file       → serve it.
//  2. {dir}/{path} is a directory          → {dir}/{path}/index.html or miss.
//  3. {dir}/{path}.html is a regular file  → serve it (clean URL).
//
// The root path resolves straight to {dir}/index.html.
package hosting

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is the uniform miss for every failed resolution.
var ErrNotFound = errors.New("hosting: file not found")

// indexFile is what a directory request falls back to.
const indexFile = "index.html"

// NormalizePath strips any trailing slash from a request path.  Root
// stays "/".  Query strings never reach here; net/url keeps them out of
// URL.Path.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// StripMount removes the /sites/{subdomain} prefix from a subpath-mode
// request path.  An exact prefix match with nothing after it maps to the
// site root.
func StripMount(p, subdomain string) string {
	prefix := MountPrefix + subdomain
	rest := strings.TrimPrefix(p, prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

// ResolveFile maps reqPath (already normalized and mount-stripped) onto a
// file under siteDir.  The returned path is absolute but not yet
// canonicalized; callers must run it through Contained before serving.
func ResolveFile(siteDir, reqPath string) (string, error) {
	if reqPath == "/" {
		p := filepath.Join(siteDir, indexFile)
		if isRegular(p) {
			return p, nil
		}
		return "", ErrNotFound
	}

	candidate := filepath.Join(siteDir, filepath.FromSlash(strings.TrimPrefix(reqPath, "/")))

	fi, err := os.Stat(candidate)
	switch {
	case err == nil && fi.Mode().IsRegular():
		return candidate, nil
	case err == nil && fi.IsDir():
		p := filepath.Join(candidate, indexFile)
		if isRegular(p) {
			return p, nil
		}
		return "", ErrNotFound
	}

	// Clean-URL fallback: /about → about.html.
	if p := candidate + ".html"; isRegular(p) {
		return p, nil
	}
	return "", ErrNotFound
}

// Contained reports whether path stays inside root once both are
// canonicalized (symlinks and dot segments resolved).  Both must exist;
// resolution happens after a successful stat, so they do.
func Contained(path, root string) (bool, error) {
	cp, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false, err
	}
	cr, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false, err
	}
	return cp == cr || strings.HasPrefix(cp, cr+string(filepath.Separator)), nil
}

func isRegular(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}
