// internal/deploy/deployer.go
//
// Deployment state machine.
//
// Context
// -------
// A deployment turns an uploaded archive into a live site directory:
//
//	pending → deploying → {deployed | failed}
//
// Both terminal states stay until a new job re-enters deploying.  Every
// failure branch is terminal for its job (no retry), records a
// human-readable reason on the tenant, and leaves no partially-extracted
// directory behind.  The source archive is deleted best-effort whichever
// way the job ends; a failed delete is logged, never escalated.
//
// Workflow
// --------
//  1. Load the tenant row; a miss aborts the job with nothing to mutate.
//  2. Take the per-subdomain lock so concurrent jobs for one site cannot
//     clobber each other mid-extract.
//  3. Full-replace: remove any existing site directory.
//  4. Extract the archive into the target directory.
//  5. Validate: at least one .html/.htm file must exist.
//  6. Activate: status deployed, stamp last_deployed_at, clear the error.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/kiosk/internal/metrics"
	"github.com/yanizio/kiosk/internal/site"
	"github.com/yanizio/kiosk/internal/sitedir"
)

// Job is one unit of deployment work: which tenant, which archive.
type Job struct {
	TenantID    uint64
	ArchivePath string
}

// Repository is the control-plane surface the state machine needs.  The
// production implementation is SQLRepository; tests supply fakes.
type Repository interface {
	ByID(ctx context.Context, id uint64) (*site.Record, error)
	SetDeployStatus(ctx context.Context, id uint64, status string, errMsg *string, deployedAt *time.Time) error
}

// Invalidator drops stale tenant metadata after a terminal transition.
// The tenant cache satisfies this; nil disables invalidation.
type Invalidator interface {
	Invalidate(subdomain string)
}

// ErrTenantBusy is returned when another job already holds the
// subdomain's deployment lock.
var ErrTenantBusy = errors.New("deploy: deployment already in progress")

// Deployer drives the deployment lifecycle for one process.
type Deployer struct {
	repo       Repository
	store      *sitedir.Store
	extractor  Extractor
	locks      lockTable
	invalidate Invalidator
}

// New wires a Deployer.  invalidate may be nil.
func New(repo Repository, store *sitedir.Store, extractor Extractor, invalidate Invalidator) *Deployer {
	return &Deployer{
		repo:       repo,
		store:      store,
		extractor:  extractor,
		invalidate: invalidate,
	}
}

// Run executes one deployment job to a terminal state.  The returned
// error is for the job runner's log; tenant-visible outcomes live in the
// site row.
func (d *Deployer) Run(ctx context.Context, job Job) error {
	started := time.Now()
	metrics.DeploysTotal.Inc()
	log := zap.S().With("tenant_id", job.TenantID, "archive", job.ArchivePath)

	rec, err := d.repo.ByID(ctx, job.TenantID)
	if err != nil {
		// No row, nothing to mark failed.  Surface via log only.
		metrics.DeployFailuresTotal.Inc()
		log.Errorw("deploy aborted: tenant lookup failed", "err", err)
		d.removeArchive(job.ArchivePath, log)
		return fmt.Errorf("load tenant %d: %w", job.TenantID, err)
	}
	log = log.With("subdomain", rec.Subdomain)

	defer d.removeArchive(job.ArchivePath, log)
	defer metrics.DeployDurationSeconds.Observe(time.Since(started).Seconds())

	if !d.locks.tryLock(rec.Subdomain) {
		d.fail(ctx, rec, ErrTenantBusy.Error(), false, log)
		return ErrTenantBusy
	}
	defer d.locks.unlock(rec.Subdomain)

	if err := d.repo.SetDeployStatus(ctx, rec.ID, site.StatusDeploying, nil, nil); err != nil {
		metrics.DeployFailuresTotal.Inc()
		log.Errorw("deploy aborted: cannot mark deploying", "err", err)
		return err
	}

	dir, err := d.store.Path(rec.Subdomain)
	if err != nil {
		d.fail(ctx, rec, "invalid subdomain for site directory", true, log)
		return err
	}

	// Full replace, never a merge: stale files from the previous version
	// must not linger under the new one.
	if err := d.store.Remove(rec.Subdomain); err != nil {
		d.fail(ctx, rec, "cannot clear previous site directory", true, log)
		return err
	}

	if _, err := d.extractor.Extract(ctx, job.ArchivePath, dir); err != nil {
		d.fail(ctx, rec, fmt.Sprintf("extract archive: %v", err), true, log)
		return err
	}

	ok, err := sitedir.HasHTML(dir)
	if err != nil {
		d.fail(ctx, rec, fmt.Sprintf("scan extracted files: %v", err), true, log)
		return err
	}
	if !ok {
		d.fail(ctx, rec, "no HTML files found", true, log)
		return errors.New("deploy: no HTML files found")
	}

	now := time.Now().UTC()
	if err := d.repo.SetDeployStatus(ctx, rec.ID, site.StatusDeployed, nil, &now); err != nil {
		// The files are live on disk but the status flag is authoritative;
		// treat the failed write as a failed deployment and clean up.
		d.fail(ctx, rec, fmt.Sprintf("record deployed status: %v", err), true, log)
		return err
	}
	if d.invalidate != nil {
		d.invalidate.Invalidate(rec.Subdomain)
	}

	log.Infow("site deployed", "took", time.Since(started).Truncate(time.Millisecond))
	return nil
}

// fail drives the failure branch: optional directory cleanup, status
// write, cache invalidation, metrics.
func (d *Deployer) fail(ctx context.Context, rec *site.Record, reason string, cleanupDir bool, log *zap.SugaredLogger) {
	metrics.DeployFailuresTotal.Inc()

	if cleanupDir {
		if err := d.store.Remove(rec.Subdomain); err != nil {
			log.Errorw("failure cleanup: cannot remove site directory", "err", err)
		}
	}
	if err := d.repo.SetDeployStatus(ctx, rec.ID, site.StatusFailed, &reason, nil); err != nil {
		log.Errorw("failure cleanup: cannot record failed status", "err", err)
	}
	if d.invalidate != nil {
		d.invalidate.Invalidate(rec.Subdomain)
	}
	log.Warnw("deploy failed", "reason", reason)
}

// removeArchive deletes the source archive.  Best effort only: deployment
// outcome never depends on it.
func (d *Deployer) removeArchive(path string, log *zap.SugaredLogger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnw("cannot remove source archive", "err", err)
	}
}
