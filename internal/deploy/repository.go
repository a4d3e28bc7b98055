// internal/deploy/repository.go
//
// sqlx-backed Repository implementation.  Thin adapter over the site
// package query helpers so the state machine stays testable against the
// Repository interface.
package deploy

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/kiosk/internal/site"
)

// SQLRepository implements Repository on the control-plane database.
type SQLRepository struct {
	DB *sqlx.DB
}

func (r SQLRepository) ByID(ctx context.Context, id uint64) (*site.Record, error) {
	return site.ByID(ctx, r.DB, id)
}

func (r SQLRepository) SetDeployStatus(ctx context.Context, id uint64, status string, errMsg *string, deployedAt *time.Time) error {
	return site.SetDeployStatus(ctx, r.DB, id, status, errMsg, deployedAt)
}
