// internal/deploy/watcher.go
//
// Incoming-archive drop watcher.
//
// Context
// -------
// Operators (or the upload service in front of us) drop archives named
// {subdomain}.zip into {static_root}/incoming.  The watcher debounces
// write activity per file, matches the name to a site row, and schedules
// a deployment job.  Unknown subdomains are logged and skipped; the file
// stays in place for an operator to inspect.
//
// Notes
// -----
// • Uploads arrive as a burst of Write events.  Each event resets the
//   file's settle timer; the job is scheduled only after settleDelay of
//   quiet, so half-written archives never reach the extractor.
// • Duplicate schedules collapse in the queue's in-flight check.
package deploy

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/kiosk/internal/site"
)

// settleDelay is how long a dropped file must stay quiet before we treat
// the upload as complete.
const settleDelay = 2 * time.Second

// Watcher turns archive drops into deployment jobs.
type Watcher struct {
	db    *sqlx.DB
	queue *Queue
	dir   string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher prepares a watcher for dir.  Call Run to start it.
func NewWatcher(db *sqlx.DB, queue *Queue, dir string) *Watcher {
	return &Watcher{
		db:     db,
		queue:  queue,
		dir:    dir,
		timers: make(map[string]*time.Timer),
	}
}

// Run watches the incoming directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	zap.S().Infow("watching for incoming archives", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.touch(ev.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			zap.S().Warnw("incoming watcher error", "err", err)
		}
	}
}

// touch resets the settle timer for one path.
func (w *Watcher) touch(path string) {
	if strings.ToLower(filepath.Ext(path)) != ".zip" {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok {
		t.Reset(settleDelay)
		return
	}
	w.timers[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.dispatch(path)
	})
}

// dispatch matches a settled archive to its tenant and schedules the job.
func (w *Watcher) dispatch(path string) {
	subdomain := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	log := zap.S().With("archive", path, "subdomain", subdomain)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, err := site.BySubdomain(ctx, w.db, subdomain)
	if err != nil {
		log.Warnw("dropped archive does not match a site", "err", err)
		return
	}

	switch err := w.queue.Schedule(rec.ID, path); err {
	case nil:
		log.Infow("deployment scheduled", "tenant_id", rec.ID)
	case ErrArchiveInFlight:
		log.Debugw("archive already scheduled")
	default:
		log.Errorw("cannot schedule deployment", "err", err)
	}
}
