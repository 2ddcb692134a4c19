// Package orchestrator drives the strategy fallback loop for one request.
// Transform never fails: either a strategy produces a response, or the
// unmodified source is served as the terminal fallback.
package orchestrator

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/mediastack/image-transform-proxy/pkg/cachepolicy"
	"github.com/mediastack/image-transform-proxy/pkg/strategy"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// Prometheus metrics for transform orchestration.
var (
	transformRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transform_requests_total",
		Help: "Total transform requests by selected strategy and status",
	}, []string{"selected", "status"})

	transformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transform_request_duration_seconds",
		Help:    "Transform request duration by selected strategy",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"selected"})

	strategyAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transform_strategy_attempts_total",
		Help: "Total strategy execution attempts by strategy and outcome",
	}, []string{"strategy", "outcome"}) // outcome: "success", "failure"

	fallbackServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transform_fallback_served_total",
		Help: "Total requests that exhausted all strategies and served the terminal fallback",
	})
)

// Orchestrator selects and executes strategies for transform requests.
type Orchestrator struct {
	registry *strategy.Registry
	resolver *cachepolicy.Resolver
	terminal strategy.Strategy
	logger   zerolog.Logger
}

// New creates an orchestrator. The terminal direct-serving strategy is
// taken from the registry's static table so the exhaustion fallback is the
// same code path as the lowest-priority strategy.
func New(registry *strategy.Registry, resolver *cachepolicy.Resolver, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		resolver: resolver,
		terminal: registry.Strategy(strategy.NameDirectServing),
		logger:   logger,
	}
}

// Transform runs the fallback chain for one request. It never returns an
// error: strategies are attempted strictly sequentially in priority order,
// the first success wins, and exhaustion serves the unmodified source. The
// diagnostics accumulator is attached to the returned response for the
// debug-header writer; this core never serializes it.
func (o *Orchestrator) Transform(ctx context.Context, req *transform.Request, domain strategy.DomainContext) *transform.Response {
	start := time.Now()

	diag := transform.NewDiagnostics(domain.Environment, domain.Type)
	policy := o.resolver.Resolve(req.URL.String(), req.Options.Derivative)
	diag.PolicySummary = policy.String()

	rc := &strategy.RequestContext{
		Request:     req,
		Domain:      domain,
		Diagnostics: diag,
	}

	for _, s := range o.registry.OrderedStrategies(domain) {
		if !s.CanHandle(rc) {
			continue
		}

		name := s.Name()
		diag.RecordAttempt(name)

		resp, err := s.Execute(ctx, rc)
		if err != nil {
			// All strategy failures are equivalent at this layer:
			// record and move on to the next pathway.
			diag.RecordFailure(name, err.Error())
			strategyAttemptsTotal.WithLabelValues(name, "failure").Inc()
			o.logger.Warn().
				Err(err).
				Str("strategy", name).
				Str("key", req.SourceKey).
				Msg("Strategy failed, falling through")
			continue
		}

		diag.Select(name)
		strategyAttemptsTotal.WithLabelValues(name, "success").Inc()
		o.finish(resp, diag, name, start)
		return resp
	}

	// Exhausted: serve the unmodified source. SelectedStrategy stays
	// unset to distinguish the terminal fallback from a direct-serving
	// win inside the chain.
	fallbackServedTotal.Inc()
	o.logger.Warn().
		Str("key", req.SourceKey).
		Int("failed", len(diag.FailedStrategies)).
		Msg("All strategies exhausted, serving source unmodified")

	resp, err := o.terminal.Execute(ctx, rc)
	if err != nil {
		// The store itself is down. Availability still wins: a
		// well-formed 404 rather than a 5xx the caller must retry.
		o.logger.Error().Err(err).Str("key", req.SourceKey).Msg("Terminal fallback failed")
		resp = transform.NewResponse(404, []byte("image not found"))
		resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp.Header.Set("Cache-Control", "no-store")
	}

	o.finish(resp, diag, "fallback", start)
	return resp
}

// finish attaches diagnostics and records request-level metrics.
func (o *Orchestrator) finish(resp *transform.Response, diag *transform.Diagnostics, selected string, start time.Time) {
	resp.Diagnostics = diag
	transformRequestsTotal.WithLabelValues(selected, strconv.Itoa(resp.StatusCode)).Inc()
	transformDuration.WithLabelValues(selected).Observe(time.Since(start).Seconds())
}
