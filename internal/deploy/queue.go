// internal/deploy/queue.go
//
// Bounded deployment job queue.
//
// Context
// -------
// Deployments run off the request path on a small worker pool.  The
// queue guarantees each accepted job exactly one execution attempt and
// at most one in-flight job per archive path; a duplicate drop of the
// same archive is rejected at Schedule time.  There is no retry: a
// failed job surfaces through the log and the tenant's failed status,
// and recovery is a new manual deployment.
package deploy

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the backlog is at capacity.
	ErrQueueFull = errors.New("deploy: queue full")
	// ErrArchiveInFlight is returned when the same archive path is
	// already queued or running.
	ErrArchiveInFlight = errors.New("deploy: archive already in flight")
	// ErrQueueClosed is returned after Stop.
	ErrQueueClosed = errors.New("deploy: queue closed")
)

// Queue feeds jobs to a fixed worker pool.
type Queue struct {
	deployer *Deployer
	jobs     chan Job
	wg       sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{} // archive paths queued or running
	closed   bool
}

// NewQueue sizes the pool and backlog and starts the workers.
func NewQueue(ctx context.Context, deployer *Deployer, workers, depth int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if depth < 1 {
		depth = 1
	}
	q := &Queue{
		deployer: deployer,
		jobs:     make(chan Job, depth),
		inflight: make(map[string]struct{}, depth),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	return q
}

// Schedule enqueues one deployment job.  The job runs exactly once if
// accepted; every rejection reason is a distinct error.
func (q *Queue) Schedule(tenantID uint64, archivePath string) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if _, busy := q.inflight[archivePath]; busy {
		q.mu.Unlock()
		return ErrArchiveInFlight
	}
	q.inflight[archivePath] = struct{}{}
	q.mu.Unlock()

	select {
	case q.jobs <- Job{TenantID: tenantID, ArchivePath: archivePath}:
		return nil
	default:
		q.release(archivePath)
		return ErrQueueFull
	}
}

// Stop closes intake and waits for running jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for job := range q.jobs {
		if err := q.deployer.Run(ctx, job); err != nil {
			// Terminal by design; the tenant row carries the reason.
			zap.S().Errorw("deployment job failed",
				"tenant_id", job.TenantID, "archive", job.ArchivePath, "err", err)
		}
		q.release(job.ArchivePath)
	}
}

func (q *Queue) release(archivePath string) {
	q.mu.Lock()
	delete(q.inflight, archivePath)
	q.mu.Unlock()
}
