// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects baseline headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years + preload)
//   • X-Frame-Options            –  click-jacking defence
//   • X-Content-Type-Options     –  MIME-sniffing defence
//   • Referrer-Policy            –  drops path/query from Referer
//   • Permissions-Policy         –  disables powerful features by default
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; once a handler calls
//   WriteHeader the header map is sealed, so late additions would be
//   silently dropped.
// • No Content-Security-Policy here: tenant sites ship their own markup
//   and asset origins, and a blanket self-only policy would break them.
//   Tenants that want CSP can set it via <meta http-equiv>.
// • If the host runs behind a TLS-terminating proxy, HSTS is still
//   useful because browsers see the tenant's domain as HTTPS.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts  = "max-age=63072000; includeSubDomains; preload"
		xfo   = "SAMEORIGIN"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		set := w.Header().Set // shorthand

		set("Strict-Transport-Security", hsts)
		set("X-Frame-Options", xfo)
		set("X-Content-Type-Options", nosn)
		set("Referrer-Policy", refer)
		set("Permissions-Policy", perm)

		next.ServeHTTP(w, r)
	})
}
