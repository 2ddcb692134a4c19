package strategy

import (
	"context"
	"net/http"
	"strings"

	"github.com/mediastack/image-transform-proxy/pkg/storage"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// SubrequestMarker is the substring in the Via header identifying a
// backend-originated subrequest looping back for the original bytes.
const SubrequestMarker = "image-resizing"

// Interceptor is the subrequest-interception pathway: it initiates the
// transformation by fetching its own URL with structured options, trusting
// the backend to loop back as a subrequest, which it answers with the raw
// source bytes. Reliable on custom domains only.
type Interceptor struct {
	deps Deps
}

// NewInterceptor creates the interceptor strategy.
func NewInterceptor(deps Deps) *Interceptor {
	return &Interceptor{deps: deps.withDefaults()}
}

func (s *Interceptor) Name() string  { return NameInterceptor }
func (s *Interceptor) Priority() int { return 10 }

// CanHandle is true only for custom domains with a resolvable key.
func (s *Interceptor) CanHandle(rc *RequestContext) bool {
	return rc.Domain.Type == transform.DomainCustom && rc.Request.SourceKey != ""
}

// IsSubrequest reports whether the inbound request is the backend calling
// back into this system.
func IsSubrequest(h http.Header) bool {
	return strings.Contains(h.Get("Via"), SubrequestMarker)
}

func (s *Interceptor) Execute(ctx context.Context, rc *RequestContext) (*transform.Response, error) {
	if IsSubrequest(rc.Request.Header) {
		return s.serveSource(ctx, rc)
	}

	target := s.deps.Scheme + "://" + rc.Domain.Host + rc.Request.URL.Path
	resp, err := s.deps.Backend.FetchTransformed(ctx, target, rc.Request.Options)
	if err != nil {
		return nil, named(err, NameInterceptor)
	}
	return resp, nil
}

// serveSource answers a backend subrequest with the raw source bytes and
// cache metadata; the backend transforms this response.
func (s *Interceptor) serveSource(ctx context.Context, rc *RequestContext) (*transform.Response, error) {
	key := transform.SourceKeyFromPath(rc.Request.URL.Path)
	obj, err := s.deps.Store.Get(ctx, key)
	if err != nil {
		class := ErrorClassStorage
		if err == storage.ErrNotFound {
			class = ErrorClassClient
		}
		return nil, &Error{Strategy: NameInterceptor, Class: class, Message: "source " + key, Err: err}
	}

	resp := transform.NewResponse(200, obj.Body)
	if ct := obj.ContentType(); ct != "" {
		resp.Header.Set("Content-Type", ct)
	}
	if obj.ETag != "" {
		resp.Header.Set("ETag", obj.ETag)
	}
	resp.Header.Set("Cache-Control", sourceCacheControl(s.deps, rc, 200))

	s.deps.Logger.Debug().
		Str("strategy", NameInterceptor).
		Str("key", key).
		Msg("Served source bytes to backend subrequest")

	return resp, nil
}

// named stamps the strategy name onto a backend error that lacks one.
func named(err error, name string) error {
	if serr, ok := err.(*Error); ok && serr.Strategy == "" {
		serr.Strategy = name
	}
	return err
}
