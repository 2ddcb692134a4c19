// Package optionscache memoizes the per-output-format encoding of transform
// options. The cache is process-wide, bounded by entry count with
// least-recently-used eviction, and entries expire after a TTL.
package optionscache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// Prometheus metrics for the options cache.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transform_options_cache_hits_total",
		Help: "Total options cache hits",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transform_options_cache_misses_total",
		Help: "Total options cache misses",
	})

	cacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transform_options_cache_evictions_total",
		Help: "Total options cache evictions (LRU or TTL)",
	})

	cacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transform_options_cache_size",
		Help: "Current number of entries in the options cache",
	})
)

// Defaults applied when Config fields are zero.
const (
	DefaultMaxSize = 1000
	DefaultTTL     = 1 * time.Hour
)

// ComputeFunc produces the formatted encoding of options for one output
// format. It is invoked on cache misses only.
type ComputeFunc func(opts transform.Options, outputFormat string) string

// Config controls cache behavior. Configure may be called at any time and
// affects subsequent operations only.
type Config struct {
	Enabled bool
	MaxSize int
	TTL     time.Duration
}

// DefaultConfig returns an enabled cache configuration with safe bounds.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		MaxSize: DefaultMaxSize,
		TTL:     DefaultTTL,
	}
}

// Stats is an observability snapshot of the cache.
type Stats struct {
	Size      int
	Enabled   bool
	HitCount  uint64
	MissCount uint64
}

// Cache memoizes formatted transform options keyed by a canonical
// serialization of (normalized options, output format). Safe for concurrent
// use; mutations are mutex-guarded because this runs on a multi-threaded
// runtime.
type Cache struct {
	mu     sync.Mutex
	cfg    Config
	lru    *expirable.LRU[string, string]
	hits   uint64
	misses uint64
}

// New creates an options cache with the given configuration.
func New(cfg Config) *Cache {
	c := &Cache{}
	c.Configure(cfg)
	return c
}

// Configure replaces the cache configuration. The backing store is rebuilt,
// so existing entries are recomputed on next access; keys are never
// retroactively re-derived.
func (c *Cache) Configure(cfg Config) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg = cfg
	if cfg.Enabled {
		c.lru = expirable.NewLRU[string, string](cfg.MaxSize, func(string, string) {
			cacheEvictionsTotal.Inc()
		}, cfg.TTL)
	} else {
		c.lru = nil
	}
	cacheSize.Set(0)
}

// Get returns the formatted options for (opts, outputFormat), computing and
// storing them on a miss. A hit refreshes the entry's recency. When the
// cache is disabled, Get is a pure passthrough to compute with no storage.
func (c *Cache) Get(opts transform.Options, outputFormat string, compute ComputeFunc) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Enabled || c.lru == nil {
		return compute(opts, outputFormat)
	}

	key := Key(opts, outputFormat)

	if value, ok := c.lru.Get(key); ok {
		c.hits++
		cacheHitsTotal.Inc()
		return value
	}

	c.misses++
	cacheMissesTotal.Inc()

	value := compute(opts, outputFormat)
	c.lru.Add(key, value)
	cacheSize.Set(float64(c.lru.Len()))
	return value
}

// Stats returns a snapshot of cache state for observability.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Enabled:   c.cfg.Enabled,
		HitCount:  c.hits,
		MissCount: c.misses,
	}
	if c.lru != nil {
		stats.Size = c.lru.Len()
	}
	return stats
}

// Key generates the deterministic cache key for (options, output format).
// Format: <canonical options>:fmt=<output format>
func Key(opts transform.Options, outputFormat string) string {
	return opts.Normalize().Canonical() + ":fmt=" + outputFormat
}
