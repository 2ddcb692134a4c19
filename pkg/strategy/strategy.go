// Package strategy implements the transformation pathways and the
// domain-aware registry that orders and filters them per request.
package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mediastack/image-transform-proxy/pkg/cachepolicy"
	"github.com/mediastack/image-transform-proxy/pkg/optionscache"
	"github.com/mediastack/image-transform-proxy/pkg/storage"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// Canonical strategy names. These are part of the wire-visible diagnostics
// contract and must not change.
const (
	NameInterceptor    = "interceptor"
	NameDirectURL      = "direct-url"
	NameCDNCGI         = "cdn-cgi"
	NameRemoteFallback = "remote-fallback"
	NameDirectServing  = "direct-serving"
)

// ErrorClass classifies a strategy failure for observability.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses from the backend.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses from the backend.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport-level failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassStorage represents object store failures.
	ErrorClassStorage ErrorClass = "storage"
)

// Error is a failure inside one strategy's execute. It is always non-fatal:
// the orchestrator records it and moves on to the next strategy regardless
// of class.
type Error struct {
	Strategy   string
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s error: %s: %v", e.Strategy, e.Class, e.Message, e.Err)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s error (status %d): %s", e.Strategy, e.Class, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Strategy, e.Class, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// DomainContext describes the request's host and environment for strategy
// selection. The ephemeral/custom classification is supplied by the caller;
// detection heuristics live outside this core.
type DomainContext struct {
	Environment string
	Type        transform.DomainType
	Host        string
	Path        string
}

// RequestContext bundles everything a strategy may consult for one request.
type RequestContext struct {
	Request     *transform.Request
	Domain      DomainContext
	Diagnostics *transform.Diagnostics
}

// Strategy is one interchangeable pathway to obtain a transformed image.
// Strategies are stateless with respect to a single request; any internal
// state is process-wide and keyed, never per-request.
type Strategy interface {
	// Name returns the wire-visible strategy name.
	Name() string

	// Priority orders strategies; lower is tried first.
	Priority() int

	// CanHandle reports whether this strategy applies to the request.
	CanHandle(rc *RequestContext) bool

	// Execute attempts the pathway. A returned error is recorded by the
	// orchestrator and the next strategy is tried.
	Execute(ctx context.Context, rc *RequestContext) (*transform.Response, error)
}

// Deps are the process-wide collaborators shared by all strategies.
type Deps struct {
	Store        storage.Store
	Backend      Backend
	OptionsCache *optionscache.Cache
	Resolver     *cachepolicy.Resolver

	// TransformPathSegment is the path prefix the cdn-cgi strategy
	// builds, without leading or trailing slashes.
	TransformPathSegment string

	// Scheme used when rebuilding absolute URLs from the request host.
	Scheme string

	Logger zerolog.Logger
}

// withDefaults fills zero-valued optional fields.
func (d Deps) withDefaults() Deps {
	if d.TransformPathSegment == "" {
		d.TransformPathSegment = "cdn-cgi/image"
	}
	if d.Scheme == "" {
		d.Scheme = "https"
	}
	return d
}

// sourceCacheControl renders the Cache-Control value for a raw source
// response using the resolved policy for the request URL.
func sourceCacheControl(deps Deps, rc *RequestContext, status int) string {
	policy := deps.Resolver.Resolve(rc.Request.URL.String(), rc.Request.Options.Derivative)
	return cachepolicy.ControlHeader(status, policy)
}
