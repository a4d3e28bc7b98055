// internal/hosting/responder.go
//
// Static file responder.
//
// Emits a resolved file with content-type and cache-control headers, or
// the one fixed 404 page.  HTML gets a short cache life because a
// redeploy replaces it in place; everything else (fingerprinted assets in
// practice) is served immutable for a year.
package hosting

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	cacheHTML   = "public, max-age=3600"
	cacheAssets = "public, max-age=31536000, immutable"
)

// notFoundPage is deliberately tenant-free: the same bytes answer every
// miss, unsafe path, and undeployed site.
const notFoundPage = `<!doctype html>
<html>
<head><title>Not Found</title></head>
<body><h1>404 Not Found</h1></body>
</html>
`

// Respond serves the resolved file with 200 and policy headers.
func Respond(w http.ResponseWriter, r *http.Request, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)

	if ext == ".html" || ext == ".htm" {
		w.Header().Set("Cache-Control", cacheHTML)
	} else {
		w.Header().Set("Cache-Control", cacheAssets)
	}

	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	return nil
}

// NotFound writes the fixed 404 page and halts routing for this request.
func NotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNotFound)
	_, _ = io.WriteString(w, notFoundPage)
}
