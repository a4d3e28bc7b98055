// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file — `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `KIOSK_`, where `__` maps to “.”
     (e.g., `KIOSK_HOSTING__BASE_DOMAIN → hosting.base_domain`).

After merging, the tree is unmarshalled into strongly-typed structs,
validated, enriched with the runtime root path, and cached in an
`atomic.Pointer` for lock-free reads.  `Reload()` simply calls `Load()`
again and swaps the pointer.

Values of the form `vault:<secret-path>#<key>` are resolved through the
Vault client when one has been installed with `SetSecretResolver`; with
no resolver installed a `vault:` value is a hard error, never a silent
pass-through of the literal string.

Instrumentation
---------------
  • DEBUG spans — root discovery, YAML read, env overlay.
  • ERROR spans — YAML parse, env overlay, unmarshal, validation failures.
  • INFO  span  — final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

var current atomic.Pointer[Config]

// SecretResolver resolves one vault: reference into its plain value.
type SecretResolver func(secretPath, key string) (string, error)

var secretResolver atomic.Pointer[SecretResolver]

// SetSecretResolver installs the resolver used for `vault:` values.
// Call before Load when Vault is in play.
func SetSecretResolver(r SecretResolver) { secretResolver.Store(&r) }

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves KIOSK_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("KIOSK_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load() (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: KIOSK_HOSTING__BASE_DOMAIN → hosting.base_domain
	if err := k.Load(env.Provider("KIOSK_", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(&cfg); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"base_domain", cfg.Hosting.BaseDomain,
		"static_root", cfg.Hosting.StaticRoot,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// resolveSecrets replaces vault: references in secret-bearing fields.
func resolveSecrets(cfg *Config) error {
	pw, err := resolveRef(cfg.Database.GlobalPassword)
	if err != nil {
		return err
	}
	cfg.Database.GlobalPassword = pw
	return nil
}

// resolveRef turns "vault:secret/data/kiosk#db_password" into its value.
// Non-vault strings pass through unchanged.
func resolveRef(v string) (string, error) {
	ref, ok := strings.CutPrefix(v, "vault:")
	if !ok {
		return v, nil
	}
	rp := secretResolver.Load()
	if rp == nil {
		return "", fmt.Errorf("config: %q requires a Vault resolver, none installed", v)
	}
	secretPath, key, ok := strings.Cut(ref, "#")
	if !ok || secretPath == "" || key == "" {
		return "", fmt.Errorf("config: malformed vault reference %q", v)
	}
	return (*rp)(secretPath, key)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config  { return current.Load() }
func Reload() error { _, err := Load(); return err }
