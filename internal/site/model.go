// internal/site/model.go
//
// `site` table row model.
//
// Context
// -------
// The `Record` struct mirrors one row in the persistent **site** table.
// Each row is one hosted tenant: a display name, its unique subdomain, the
// routing policy, and the deployment lifecycle fields written by the
// deploy state machine.
//
// Schema reference (2025-08-20)
//
//	CREATE TABLE site (
//	    id                    INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    name                  VARCHAR(128)  NOT NULL,
//	    subdomain             VARCHAR(63)   NOT NULL UNIQUE,
//	    routing_mode          VARCHAR(9)    NOT NULL DEFAULT 'subdomain',
//	    deployment_status     VARCHAR(9)    NOT NULL DEFAULT 'pending',
//	    last_deployed_at      TIMESTAMP NULL,
//	    last_deployment_error TEXT NULL,
//	    suspended_at          TIMESTAMP NULL,
//	    deleted_at            TIMESTAMP NULL,
//	    created_at            TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at            TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
// Notes
// -----
// • `subdomain` is a DNS label: 1–63 chars of lowercase [a-z0-9-].  It is
//   immutable once a site directory exists for it; changing it would
//   orphan deployed files.
// • Nullable timestamps are `*time.Time`; callers must nil-check.
// • This struct contains no behaviour beyond small status predicates.
package site

import (
	"regexp"
	"time"
)

// Routing modes.  A tenant in mode "both" answers on its subdomain and on
// the /sites/{subdomain} mount.
const (
	RouteModeSubdomain = "subdomain"
	RouteModeSubpath   = "subpath"
	RouteModeBoth      = "both"
)

// Deployment lifecycle states.  Transitions are driven exclusively by the
// deploy state machine: pending → deploying → {deployed | failed}.  A new
// deployment job re-enters deploying from either terminal state.
const (
	StatusPending   = "pending"
	StatusDeploying = "deploying"
	StatusDeployed  = "deployed"
	StatusFailed    = "failed"
)

// subdomainRe matches one DNS label in our restricted alphabet.
var subdomainRe = regexp.MustCompile(`^[a-z0-9-]{1,63}$`)

// ValidSubdomain reports whether s is a usable site subdomain.
func ValidSubdomain(s string) bool { return subdomainRe.MatchString(s) }

// Record mirrors one row in the `site` table.
type Record struct {
	ID                  uint64     `db:"id"`
	Name                string     `db:"name"`
	Subdomain           string     `db:"subdomain"`
	RoutingMode         string     `db:"routing_mode"`
	DeploymentStatus    string     `db:"deployment_status"`
	LastDeployedAt      *time.Time `db:"last_deployed_at"`
	LastDeploymentError *string    `db:"last_deployment_error"`
	SuspendedAt         *time.Time `db:"suspended_at"`
	DeletedAt           *time.Time `db:"deleted_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Deployed reports whether the router may serve this site.  The status
// flag is authoritative; directory presence on disk never is (a failed
// job whose cleanup also failed may leave stale files behind).
func (r *Record) Deployed() bool { return r.DeploymentStatus == StatusDeployed }
