// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"net/http"
	"strings"
)

// ForceHTTPS wraps h.  If the request is plain HTTP, the host is not a
// development host, and known confirms the host maps to a hosted
// tenant, the wrapper issues a 308 Permanent Redirect to the HTTPS
// version of the same URL.  Otherwise it calls the next handler
// unchanged.
//
// known is consulted so we never redirect arbitrary Host headers to
// domains we do not serve.
func ForceHTTPS(known func(r *http.Request) bool, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := stripPort(r.Host)

		// Already HTTPS or dev host → continue.
		if r.TLS != nil || host == "localhost" || strings.HasSuffix(host, ".localhost") {
			h.ServeHTTP(w, r)
			return
		}

		if known(r) {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}

		// Unknown host → keep normal flow (likely 404 later).
		h.ServeHTTP(w, r)
	})
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
