// Package metrics documents the Prometheus metrics exposed by the transform
// proxy. All metrics are defined next to the code they instrument (via
// promauto in pkg/orchestrator, pkg/cachepolicy, pkg/optionscache,
// pkg/storage) to keep the dependency order one-way.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the proxy. All
// metrics are automatically registered via promauto in their packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Orchestration (pkg/orchestrator):
//   - transform_requests_total{selected, status} (Counter): requests by winning strategy and HTTP status; selected="fallback" for terminal fallback
//   - transform_request_duration_seconds{selected} (Histogram): request duration by winning strategy
//   - transform_strategy_attempts_total{strategy, outcome} (Counter): execute attempts by strategy and success/failure
//   - transform_fallback_served_total (Counter): requests that exhausted every strategy
//
// Cache policy (pkg/cachepolicy):
//   - transform_policy_resolutions_total{layer} (Counter): resolutions by winning layer (defaults, url_rule, content_type, derivative)
//   - transform_policy_rules_skipped_total (Counter): URL rules skipped for invalid patterns
//
// Options cache (pkg/optionscache):
//   - transform_options_cache_hits_total (Counter)
//   - transform_options_cache_misses_total (Counter)
//   - transform_options_cache_evictions_total (Counter): LRU and TTL evictions
//   - transform_options_cache_size (Gauge): current entry count
//
// Storage (pkg/storage):
//   - transform_storage_hits_total (Counter)
//   - transform_storage_misses_total (Counter)
//   - transform_storage_errors_total{operation} (Counter): operation is get, put, or delete
//
// Example Prometheus Queries:
//
//   # Options cache hit rate
//   rate(transform_options_cache_hits_total[5m]) /
//   (rate(transform_options_cache_hits_total[5m]) + rate(transform_options_cache_misses_total[5m]))
//
//   # Fallback rate
//   rate(transform_fallback_served_total[5m]) / rate(transform_requests_total[5m])
//
//   # Per-strategy failure rate
//   rate(transform_strategy_attempts_total{outcome="failure"}[5m])
//
//   # P95 transform latency
//   histogram_quantile(0.95, rate(transform_request_duration_seconds_bucket[5m]))
