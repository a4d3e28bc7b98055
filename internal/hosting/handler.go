// internal/hosting/handler.go
//
// The hosting handler glues the pipeline together:
//
//	resolve host/path → gate on mode + status → resolve file →
//	containment check → respond (or pass through to ordinary routing).
//
// Context
// -------
// The handler wraps the rest of the router: requests no tenant claims
// fall through to `next` untouched.  Once a tenant claims a request,
// routing halts here; a miss inside a claimed site is our 404, never the
// fallback router's.
//
// Error taxonomy
// --------------
// Unknown tenant, disallowed mode, and undeployed status are uniform
// pass-throughs.  A resolved-but-escaping path is logged as a security
// event and counted separately, but answers with the same generic 404 as
// any miss, so nothing about directory structure leaks.
package hosting

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/kiosk/internal/metrics"
)

// HostedSite is the minimal contract a cached tenant must fulfil.  A
// tiny interface here keeps this package independent of the tenant cache
// and its dependencies.
type HostedSite interface {
	RoutingMode() string
	Deployed() bool
	RootDir() string
}

// Lookup fetches tenant metadata by subdomain.  Any error is treated as
// "no such tenant"; the handler never distinguishes.
type Lookup func(ctx context.Context, subdomain string) (HostedSite, error)

// Handler serves hosted static sites and passes everything else to next.
type Handler struct {
	resolver *Resolver
	lookup   Lookup
	next     http.Handler
}

// NewHandler wires the pipeline.  next must not be nil; it receives every
// request no tenant claims.
func NewHandler(resolver *Resolver, lookup Lookup, next http.Handler) *Handler {
	return &Handler{resolver: resolver, lookup: lookup, next: next}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m := h.resolver.Resolve(r.Host, r.URL.Path)
	if m.Method == MethodNone {
		h.next.ServeHTTP(w, r)
		return
	}

	ten, err := h.lookup(r.Context(), m.Subdomain)
	if err != nil || !ten.Deployed() || !Permit(ten.RoutingMode(), m.Method) {
		metrics.PassthroughTotal.Inc()
		h.next.ServeHTTP(w, r)
		return
	}

	reqPath := r.URL.Path
	if m.Method == MethodSubpath {
		reqPath = StripMount(reqPath, m.Subdomain)
	}
	reqPath = NormalizePath(reqPath)

	resolved, err := ResolveFile(ten.RootDir(), reqPath)
	if err != nil {
		NotFound(w)
		return
	}

	ok, err := Contained(resolved, ten.RootDir())
	if err != nil || !ok {
		metrics.TraversalBlockedTotal.Inc()
		zap.L().Warn("path containment violation",
			zap.String("subdomain", m.Subdomain),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr))
		NotFound(w)
		return
	}

	if err := Respond(w, r, resolved); err != nil {
		// The file vanished between stat and open (redeploy race).
		NotFound(w)
		return
	}
	metrics.StaticRequestsTotal.Inc()
}
