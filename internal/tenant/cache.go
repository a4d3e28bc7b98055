// internal/tenant/cache.go
//
// Lazy tenant cache.
//
// Tenants are loaded from the site table on first request, deduplicated
// through singleflight so a burst for a cold subdomain costs one query,
// and evicted in the background on idle TTL or LRU pressure.
package tenant

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/kiosk/internal/metrics"
	"github.com/yanizio/kiosk/internal/site"
	"github.com/yanizio/kiosk/internal/sitedir"
)

// Static defaults.  Override via the config package if desired.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 100
	EvictInterval = 5 * time.Minute
)

// ErrNotFound is returned when a subdomain is not present in the site
// table.
var ErrNotFound = site.ErrNotFound

// Cache lazily loads tenants, stores them in a sync.Map, and evicts them
// on idle TTL or LRU pressure.
type Cache struct {
	db          *sqlx.DB
	store       *sitedir.Store
	sfg         singleflight.Group
	m           sync.Map
	evictTicker *time.Ticker
	idleTTL     time.Duration
	maxEntries  int
}

// New constructs a Cache and starts the background evictor.
func New(db *sqlx.DB, store *sitedir.Store, idleTTL time.Duration, maxEntries int) *Cache {
	c := &Cache{
		db:         db,
		store:      store,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
	}
	c.evictTicker = time.NewTicker(EvictInterval)
	go c.evictLoop()
	return c
}

// Get returns the Tenant for subdomain, loading it on demand.
func (c *Cache) Get(ctx context.Context, subdomain string) (*Tenant, error) {
	if v, ok := c.m.Load(subdomain); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.tenant, nil
	}

	v, err, _ := c.sfg.Do(subdomain, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(subdomain); ok {
			ent := v.(*entry)
			atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
			return ent.tenant, nil
		}
		ten, err := c.load(ctx, subdomain)
		if err != nil {
			metrics.TenantLoadErrorsTotal.Inc()
			return nil, err
		}
		ent := &entry{
			tenant:   ten,
			lastSeen: time.Now().UnixNano(),
		}
		c.m.Store(subdomain, ent)
		metrics.TenantLoadTotal.Inc()
		metrics.ActiveTenants.Inc()
		return ten, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tenant), nil
}

// Invalidate drops one subdomain so the next request reloads fresh
// metadata.  The deploy state machine calls this after every terminal
// transition.
func (c *Cache) Invalidate(subdomain string) {
	if _, ok := c.m.LoadAndDelete(subdomain); ok {
		metrics.ActiveTenants.Dec()
	}
}

// load turns subdomain → *Tenant: fetch the site row, then pin the
// canonical site directory for the containment check.
func (c *Cache) load(ctx context.Context, subdomain string) (*Tenant, error) {
	rec, err := site.BySubdomain(ctx, c.db, subdomain)
	if err != nil {
		return nil, err
	}

	dir, err := c.store.Path(rec.Subdomain)
	if err != nil {
		return nil, err
	}
	// Resolve symlinks while the directory exists.  A tenant that has
	// never deployed keeps the lexical path; the gate stops it before
	// any file resolution happens.
	if canonical, err := filepath.EvalSymlinks(dir); err == nil {
		dir = canonical
	}

	return &Tenant{Meta: *rec, dir: dir}, nil
}
