// internal/tenant/tenant.go
//
// Tenant cache entry and aggregate.
//
// Context
// -------
// A live Tenant aggregates what the hosting pipeline needs to serve one
// site: its `site` row and the canonical on-disk directory.  The cache
// stores a pointer to Tenant inside `entry`, along with a `lastSeen`
// UnixNano timestamp used by the evictor for idle and LRU eviction.
//
// Notes
// -----
//   - Tenants are immutable after load; a redeploy is picked up when the
//     entry is invalidated or evicted and lazily reloaded.
package tenant

import (
	"github.com/yanizio/kiosk/internal/site"
)

//
// Cache entry
//

type entry struct {
	tenant   *Tenant
	lastSeen int64 // UnixNano
}

//
// Tenant aggregate
//

// Tenant groups the per-site runtime state needed by request handlers.
type Tenant struct {
	Meta site.Record
	dir  string // canonical absolute site directory
}

// Subdomain returns the tenant's unique DNS label.
func (t *Tenant) Subdomain() string { return t.Meta.Subdomain }

// RoutingMode returns the tenant's routing policy.
func (t *Tenant) RoutingMode() string { return t.Meta.RoutingMode }

// Deployed reports whether the router may serve this tenant.
func (t *Tenant) Deployed() bool { return t.Meta.Deployed() }

// RootDir returns the canonical absolute site directory.
func (t *Tenant) RootDir() string { return t.dir }
