package strategy

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediastack/image-transform-proxy/pkg/optionscache"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// OptionsHeader carries the structured transform options on outbound
// fetches, for the backend to pick up when it loops back as a subrequest.
const OptionsHeader = "X-Image-Options"

// Backend issues outbound fetches to the transformation backend. Any
// non-2xx/3xx result surfaces as a *Error so the orchestrator can fall
// through to the next strategy.
type Backend interface {
	// FetchTransformed fetches target with the transform options
	// attached as a structured object.
	FetchTransformed(ctx context.Context, target string, opts transform.Options) (*transform.Response, error)

	// Fetch fetches target as-is. The strategy encodes any transform
	// parameters into the target itself.
	Fetch(ctx context.Context, target string) (*transform.Response, error)
}

// HTTPBackend is the default Backend over a plain HTTP client. The
// structured options object is serialized once per distinct option set via
// the options cache.
type HTTPBackend struct {
	client  *http.Client
	options *optionscache.Cache
	logger  zerolog.Logger
}

// NewHTTPBackend creates a backend fetcher. The client timeout bounds each
// outbound fetch at the transport level; the orchestrator itself imposes
// none.
func NewHTTPBackend(optionsCache *optionscache.Cache, logger zerolog.Logger) *HTTPBackend {
	return &HTTPBackend{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		options: optionsCache,
		logger:  logger,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (b *HTTPBackend) SetHTTPClient(client *http.Client) {
	b.client = client
}

// FetchTransformed fetches target with the options serialized into the
// structured options header.
func (b *HTTPBackend) FetchTransformed(ctx context.Context, target string, opts transform.Options) (*transform.Response, error) {
	encoded := b.options.Get(opts, "structured", encodeStructured)
	return b.fetch(ctx, target, encoded)
}

// Fetch fetches target with no structured options attached.
func (b *HTTPBackend) Fetch(ctx context.Context, target string) (*transform.Response, error) {
	return b.fetch(ctx, target, "")
}

func (b *HTTPBackend) fetch(ctx context.Context, target, encodedOpts string) (*transform.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Class: ErrorClassNetwork, Message: "build request", Err: err}
	}
	if encodedOpts != "" {
		req.Header.Set(OptionsHeader, encodedOpts)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn().Err(err).Str("target", target).Msg("Backend fetch failed")
		return nil, &Error{Class: ErrorClassNetwork, Message: "fetch " + target, Err: err}
	}

	out, err := transform.FromHTTP(resp)
	if err != nil {
		return nil, &Error{Class: ErrorClassNetwork, Message: "read body", Err: err}
	}

	b.logger.Debug().
		Str("target", target).
		Int("status", out.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend fetch")

	if out.StatusCode >= 400 {
		return nil, &Error{
			StatusCode: out.StatusCode,
			Class:      classifyStatus(out.StatusCode),
			Message:    "unexpected backend status",
		}
	}

	return out, nil
}

// classifyStatus maps an HTTP status to an error class.
func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// encodeStructured serializes options into the header value format. The
// output format label keys the memoization separately from path-segment and
// query encodings of the same options.
func encodeStructured(opts transform.Options, _ string) string {
	data, err := json.Marshal(opts)
	if err != nil {
		// Options are plain scalars; marshal cannot fail in practice.
		return ""
	}
	return string(data)
}
