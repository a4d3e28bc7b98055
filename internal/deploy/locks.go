// internal/deploy/locks.go
//
// Per-subdomain deployment locks.
//
// Two-level scheme: the outer mutex guards the map, each subdomain owns
// its own mutex.  Different sites deploy concurrently; two jobs for one
// site cannot, so the loser can fail fast instead of clobbering the
// winner's extracted files mid-flight.
package deploy

import "sync"

type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// tryLock acquires the subdomain's lock without blocking.  False means
// another deployment holds it.
func (lt *lockTable) tryLock(subdomain string) bool {
	lt.mu.Lock()
	if lt.locks == nil {
		lt.locks = make(map[string]*sync.Mutex)
	}
	l, ok := lt.locks[subdomain]
	if !ok {
		l = &sync.Mutex{}
		lt.locks[subdomain] = l
	}
	lt.mu.Unlock()

	return l.TryLock()
}

// unlock releases the subdomain's lock.  No-op for unknown names.
func (lt *lockTable) unlock(subdomain string) {
	lt.mu.Lock()
	l := lt.locks[subdomain]
	lt.mu.Unlock()

	if l != nil {
		l.Unlock()
	}
}
