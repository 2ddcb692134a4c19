package strategy

import (
	"context"
	"strings"

	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// RemoteFallback forwards to a configured external origin with the
// transform parameters as ordinary query parameters, for environments where
// no backend-coupled pathway works.
type RemoteFallback struct {
	deps Deps
}

// NewRemoteFallback creates the remote-fallback strategy.
func NewRemoteFallback(deps Deps) *RemoteFallback {
	return &RemoteFallback{deps: deps.withDefaults()}
}

func (s *RemoteFallback) Name() string  { return NameRemoteFallback }
func (s *RemoteFallback) Priority() int { return 40 }

// CanHandle requires a configured fallback origin URL.
func (s *RemoteFallback) CanHandle(rc *RequestContext) bool {
	return rc.Request.FallbackOrigin != ""
}

func (s *RemoteFallback) Execute(ctx context.Context, rc *RequestContext) (*transform.Response, error) {
	query := s.deps.OptionsCache.Get(rc.Request.Options, "query",
		func(opts transform.Options, _ string) string {
			return opts.QueryValues().Encode()
		})

	target := strings.TrimSuffix(rc.Request.FallbackOrigin, "/") + "/" + rc.Request.SourceKey
	if query != "" {
		target += "?" + query
	}

	resp, err := s.deps.Backend.Fetch(ctx, target)
	if err != nil {
		return nil, named(err, NameRemoteFallback)
	}
	return resp, nil
}
