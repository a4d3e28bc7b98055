// Package metrics holds Prometheus instruments used across the host.
// All collectors are registered with the global registry, so importing
// this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveTenants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_tenants",
			Help: "Number of tenants currently loaded in memory.",
		})

	TenantLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_load_total",
			Help: "Cumulative number of tenants successfully loaded.",
		})

	TenantLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_load_errors_total",
			Help: "Cumulative number of tenant load errors.",
		})

	TenantEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_evict_total",
			Help: "Cumulative number of tenants evicted from the cache.",
		})

	StaticRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "static_requests_total",
			Help: "Cumulative number of static files served for hosted sites.",
		})

	PassthroughTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "passthrough_total",
			Help: "Requests that matched a tenant shape but fell through to ordinary routing.",
		})

	TraversalBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "traversal_blocked_total",
			Help: "Resolved paths rejected by the containment check.",
		})

	DeploysTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deploys_total",
			Help: "Cumulative number of deployment jobs run.",
		})

	DeployFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deploy_failures_total",
			Help: "Cumulative number of deployment jobs that ended in failure.",
		})

	DeployDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deploy_duration_seconds",
			Help:    "Wall-clock duration of deployment jobs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		})
)

func init() {
	prometheus.MustRegister(
		ActiveTenants,
		TenantLoadTotal,
		TenantLoadErrorsTotal,
		TenantEvictTotal,
		StaticRequestsTotal,
		PassthroughTotal,
		TraversalBlockedTotal,
		DeploysTotal,
		DeployFailuresTotal,
		DeployDurationSeconds,
	)
}
