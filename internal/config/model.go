// internal/config/model.go
//
// Typed configuration model for Kiosk.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                    – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `KIOSK_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling, so secrets never live
// in flat files or git history.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "strings"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Hosting section
//

// Hosting configures tenant routing and the on-disk site store.
type Hosting struct {
	// BaseDomain is the production apex; {subdomain}.{BaseDomain}
	// addresses a tenant.  Development uses {subdomain}.localhost.
	BaseDomain string `koanf:"base_domain" validate:"required,fqdn|eq=localhost"`
	// StaticRoot holds sites/ and incoming/ beneath it.
	StaticRoot string `koanf:"static_root" validate:"required"`
}

// Scheme returns the URL scheme tenants are reachable on.  Plain HTTP is
// for local development only.
func (h Hosting) Scheme() string {
	if h.BaseDomain == "localhost" || strings.HasPrefix(h.BaseDomain, "localhost") {
		return "http"
	}
	return "https"
}

//
// Deploy section
//

// Deploy sizes the deployment worker pool and its intake.
type Deploy struct {
	Workers       int  `koanf:"workers"        validate:"min=0"`
	QueueDepth    int  `koanf:"queue_depth"    validate:"min=0"`
	WatchIncoming bool `koanf:"watch_incoming"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2 database for access-log
// enrichment.  Empty path disables geolocation.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Database section
//

// Database holds the control-plane DSN and its secret.
//
// The *template* (`GlobalDSN`) is kept in YAML so operators can tweak
// host, port, or flags without touching Vault.  The *secret* portion
// (`GlobalPassword`) may be a `vault:` reference resolved at load time,
// keeping credentials out of flat files.
type Database struct {
	GlobalDSN      string `koanf:"global_dsn"      validate:"required"`
	GlobalPassword string `koanf:"global_password"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers `Root` (repo root or KIOSK_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // KIOSK_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Hosting  Hosting  `koanf:"hosting"`
	Deploy   Deploy   `koanf:"deploy"`
	Geo      Geo      `koanf:"geo"`
	Database Database `koanf:"database"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
