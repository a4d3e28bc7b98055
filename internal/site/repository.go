// internal/site/repository.go
//
// Site-table query helpers.
//
// Context
// -------
// Read helpers serve the routing path (`BySubdomain` via the tenant
// cache) and the deploy state machine (`ByID` on job start).  The single
// write helper, `SetDeployStatus`, is the only place the core mutates a
// site row, keeping one writer per tenant record.
//
// Workflow
// --------
//  1. Callers supply a *sqlx.DB connected to the control-plane database.
//  2. Each helper executes exactly one parameterised statement.
//  3. Rows are scanned into `Record`; errors return verbatim so callers
//     can wrap or log them with the project logger.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - Read helpers exclude suspended and deleted rows at SQL level so a
//     suspended site passes through exactly like an unknown one.
package site

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no matching, active site row exists.
var ErrNotFound = errors.New("site not found")

const columns = `
        id, name, subdomain, routing_mode, deployment_status,
        last_deployed_at, last_deployment_error,
        suspended_at, deleted_at, created_at, updated_at`

// ByID fetches a single active site row.  The deploy state machine calls
// this at job start; a miss is fatal for the job.
func ByID(ctx context.Context, db *sqlx.DB, id uint64) (*Record, error) {
	const q = `
        SELECT` + columns + `
        FROM   site
        WHERE  id = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// BySubdomain fetches a single active site row for the routing path.
func BySubdomain(ctx context.Context, db *sqlx.DB, subdomain string) (*Record, error) {
	const q = `
        SELECT` + columns + `
        FROM   site
        WHERE  subdomain = ?
          AND  suspended_at IS NULL
          AND  deleted_at   IS NULL
        LIMIT  1`
	var rec Record
	if err := db.GetContext(ctx, &rec, q, subdomain); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// AllActive returns every site that is neither suspended nor deleted.
// Used by the boot sanity check and operator tooling, not the HTTP path.
func AllActive(db *sqlx.DB) ([]Record, error) {
	const q = `
        SELECT` + columns + `
        FROM   site
        WHERE  suspended_at IS NULL
          AND  deleted_at   IS NULL`
	var rows []Record
	if err := db.Select(&rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// SetDeployStatus records a deployment lifecycle transition.  errMsg and
// deployedAt are optional; pass nil to clear the corresponding column.
func SetDeployStatus(ctx context.Context, db *sqlx.DB, id uint64, status string, errMsg *string, deployedAt *time.Time) error {
	const q = `
        UPDATE site
        SET    deployment_status = ?,
               last_deployment_error = ?,
               last_deployed_at = COALESCE(?, last_deployed_at),
               updated_at = CURRENT_TIMESTAMP
        WHERE  id = ?`
	res, err := db.ExecContext(ctx, q, status, errMsg, deployedAt, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
