// internal/hosting/gate.go
//
// Routing-mode gate.
//
// One rule table, nothing else: a tenant's routing mode decides which
// address forms may serve it.  Unknown modes permit nothing, so a bad row
// in the site table fails closed.  Disallowed combinations pass through
// to ordinary routing rather than erroring, which keeps tenant existence
// unobservable from the outside.
package hosting

import "github.com/yanizio/kiosk/internal/site"

// Permit reports whether a tenant in the given routing mode may be
// served via the given method.
func Permit(mode string, method Method) bool {
	switch mode {
	case site.RouteModeSubdomain:
		return method == MethodSubdomain
	case site.RouteModeSubpath:
		return method == MethodSubpath
	case site.RouteModeBoth:
		return method == MethodSubdomain || method == MethodSubpath
	default:
		return false
	}
}
