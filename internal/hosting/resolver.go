// internal/hosting/resolver.go
//
// Host/path → tenant resolution.
//
// Context
// -------
// A request can reach a hosted site two ways: by subdomain
// (acme.example.com) or by subpath (example.com/sites/acme/…).  Resolve
// inspects the more specific subpath form first, then falls back to host
// suffix matching.  A miss is not an error; the caller passes the request
// through to ordinary routing unmodified.
//
// Notes
// -----
// • The base domain is injected at construction.  Nothing here reads
//   ambient process state, so tests can run several resolvers with
//   different domains side by side.
// • Hosts are lower-cased before comparison.  DNS is case-insensitive,
//   and we have seen clients send mixed-case Host headers.
package hosting

import (
	"strings"

	"github.com/yanizio/kiosk/internal/site"
)

// Method says how a request addressed its tenant.
type Method int

const (
	MethodNone Method = iota
	MethodSubdomain
	MethodSubpath
)

func (m Method) String() string {
	switch m {
	case MethodSubdomain:
		return "subdomain"
	case MethodSubpath:
		return "subpath"
	default:
		return "none"
	}
}

// MountPrefix is the path prefix that addresses tenants by subpath.
const MountPrefix = "/sites/"

// Match is the outcome of Resolve.  Subdomain is empty iff Method is
// MethodNone.
type Match struct {
	Method    Method
	Subdomain string
}

// Resolver turns an inbound host and path into a tenant Match.
type Resolver struct {
	baseDomain string // lower-case, no port
}

// NewResolver returns a Resolver for one base domain.
func NewResolver(baseDomain string) *Resolver {
	return &Resolver{baseDomain: strings.ToLower(stripPort(baseDomain))}
}

// Resolve determines the candidate tenant for host and path.  Subpath is
// checked first because it is the more specific form.
func (rs *Resolver) Resolve(host, path string) Match {
	if sub, ok := subpathLabel(path); ok {
		return Match{Method: MethodSubpath, Subdomain: sub}
	}

	h := strings.ToLower(stripPort(host))

	for _, suffix := range []string{".localhost", "." + rs.baseDomain} {
		name, found := strings.CutSuffix(h, suffix)
		if !found || name == "" {
			continue
		}
		if site.ValidSubdomain(name) {
			return Match{Method: MethodSubdomain, Subdomain: name}
		}
	}
	return Match{Method: MethodNone}
}

// subpathLabel extracts the tenant label from /sites/{name}/… paths.
func subpathLabel(path string) (string, bool) {
	// segments of "/sites/acme/a/b" → ["", "sites", "acme", "a/b"]
	seg := strings.SplitN(path, "/", 4)
	if len(seg) < 3 || seg[0] != "" || seg[1] != "sites" {
		return "", false
	}
	if !site.ValidSubdomain(seg[2]) {
		return "", false
	}
	return seg[2], true
}

// stripPort removes any ":port" suffix from a Host header value.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
