// cmd/web/main.go
//
// Kiosk – multi-tenant static site host, HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Install the Vault secret resolver when VAULT_ADDR is present, then
//     load config (koanf overlays + validation).
//
//  3. Start daily rotating logger (tees to console when running in a TTY).
//
//  4. Open the control-plane DB and log the active-site count.
//
//  5. Build the tenant cache (lazy-loads each site on first hit), the
//     site directory store, the deployment queue, and the incoming-
//     archive watcher.
//
//  6. Expose Prometheus /metrics on the fallback router.
//
//  7. Root-handler flow:
//
//     • tenant resolution        – hosting.Resolver (host or /sites path)
//     • serving gate             – routing mode + deployed status
//     • file resolution          – index files, clean URLs, containment
//     • response                 – static bytes, or pass-through to the
//       fallback router for everything no tenant claims
//
//  8. Wrap with access-log, request-info, security-header, and
//     ForceHTTPS middleware, then serve with hardened timeouts until
//     SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/kiosk/internal/config"
	"github.com/yanizio/kiosk/internal/database"
	"github.com/yanizio/kiosk/internal/deploy"
	"github.com/yanizio/kiosk/internal/hosting"
	"github.com/yanizio/kiosk/internal/logger"
	"github.com/yanizio/kiosk/internal/middleware"
	"github.com/yanizio/kiosk/internal/requestinfo"
	"github.com/yanizio/kiosk/internal/server"
	"github.com/yanizio/kiosk/internal/site"
	"github.com/yanizio/kiosk/internal/sitedir"
	"github.com/yanizio/kiosk/internal/tenant"
	"github.com/yanizio/kiosk/internal/vault"
)

const serverEnvPath = "/usr/local/etc/kiosk/global.env"

// Deploy pool defaults when config leaves them zero.
const (
	defaultWorkers    = 2
	defaultQueueDepth = 16
)

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Secrets and configuration ───────────────────────────────────
	//
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx)
		if err != nil {
			log.Fatalf("vault client: %v", err)
		}
		config.SetSecretResolver(func(secretPath, key string) (string, error) {
			return vc.GetKV(ctx, secretPath, key, 5*time.Minute)
		})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	//
	// ── 2.  Control-plane DB connect ────────────────────────────────────
	//
	logOut.Infow("connecting to control-plane DB")
	globalDB, err := database.Open(composeDSN(cfg))
	if err != nil {
		logOut.Fatalw("connect control-plane DB", "err", err)
	}
	defer globalDB.Close()

	// Log active-site count as an early sanity check.
	if sites, err := site.AllActive(globalDB); err == nil {
		logOut.Infow("control-plane DB online", "active_sites", len(sites))
	} else {
		logOut.Warnw("control-plane DB online, site count failed", "err", err)
	}

	//
	// ── 3.  Hosting plumbing ────────────────────────────────────────────
	//
	store, err := sitedir.New(cfg.Hosting.StaticRoot)
	if err != nil {
		logOut.Fatalw("prepare static root", "err", err)
	}

	cache := tenant.New(globalDB, store, tenant.IdleTTL, tenant.MaxEntries)

	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			logOut.Warnw("geo database unavailable, geolocation disabled", "err", err)
		}
	}

	//
	// ── 4.  Deployment pipeline ─────────────────────────────────────────
	//
	deployer := deploy.New(deploy.SQLRepository{DB: globalDB}, store, deploy.ZipExtractor{}, cache)

	workers, depth := cfg.Deploy.Workers, cfg.Deploy.QueueDepth
	if workers == 0 {
		workers = defaultWorkers
	}
	if depth == 0 {
		depth = defaultQueueDepth
	}
	queue := deploy.NewQueue(ctx, deployer, workers, depth)
	defer queue.Stop()

	if cfg.Deploy.WatchIncoming {
		watcher := deploy.NewWatcher(globalDB, queue, store.IncomingDir())
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logOut.Errorw("incoming watcher stopped", "err", err)
			}
		}()
	}

	//
	// ── 5.  Routers: fallback first, hosting handler around it ─────────
	//
	fallback := chi.NewRouter()
	fallback.Handle("/metrics", promhttp.Handler())
	fallback.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok\n")
	})
	fallback.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "kiosk static site host\n")
	})

	resolver := hosting.NewResolver(cfg.Hosting.BaseDomain)
	lookup := func(ctx context.Context, subdomain string) (hosting.HostedSite, error) {
		ten, err := cache.Get(ctx, subdomain)
		if err != nil {
			return nil, err
		}
		return ten, nil
	}
	root := hosting.NewHandler(resolver, lookup, fallback)

	//
	// ── 6.  Middleware chain ────────────────────────────────────────────
	//
	var handler http.Handler = middleware.Security(
		middleware.AccessLog(requestinfo.Enrich(root)))

	if cfg.HTTP.ForceHTTPS && cfg.Hosting.Scheme() == "https" {
		known := func(r *http.Request) bool {
			m := resolver.Resolve(r.Host, r.URL.Path)
			if m.Method == hosting.MethodNone {
				return false
			}
			_, err := cache.Get(r.Context(), m.Subdomain)
			return err == nil
		}
		handler = middleware.ForceHTTPS(known, handler)
	}

	//
	// ── 7.  Serve until signalled ───────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, handler)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "scheme", cfg.Hosting.Scheme())

	select {
	case err := <-errCh:
		logOut.Fatalw("http server", "err", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Errorw("shutdown", "err", err)
	}
	logOut.Infow("bye")
}

// composeDSN injects the (possibly Vault-sourced) password into the DSN
// template when it carries a %s verb.
func composeDSN(cfg *config.Config) string {
	dsn := cfg.Database.GlobalDSN
	if strings.Contains(dsn, "%s") {
		return fmt.Sprintf(dsn, cfg.Database.GlobalPassword)
	}
	return dsn
}
