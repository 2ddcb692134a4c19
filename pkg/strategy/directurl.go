package strategy

import (
	"context"

	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// DirectURL fetches the image URL directly with structured transform
// options, without relying on subrequest interception. It is one of the few
// pathways that works on ephemeral domains, so its preconditions are looser
// there.
type DirectURL struct {
	deps Deps
}

// NewDirectURL creates the direct-url strategy.
func NewDirectURL(deps Deps) *DirectURL {
	return &DirectURL{deps: deps.withDefaults()}
}

func (s *DirectURL) Name() string  { return NameDirectURL }
func (s *DirectURL) Priority() int { return 20 }

// CanHandle requires a storage key plus at least one transform parameter on
// custom domains; on ephemeral domains the key alone suffices.
func (s *DirectURL) CanHandle(rc *RequestContext) bool {
	if rc.Request.SourceKey == "" {
		return false
	}
	if rc.Domain.Type == transform.DomainEphemeral {
		return true
	}
	return rc.Request.Options.HasTransform()
}

func (s *DirectURL) Execute(ctx context.Context, rc *RequestContext) (*transform.Response, error) {
	target := s.deps.Scheme + "://" + rc.Domain.Host + "/" + rc.Request.SourceKey
	resp, err := s.deps.Backend.FetchTransformed(ctx, target, rc.Request.Options)
	if err != nil {
		return nil, named(err, NameDirectURL)
	}
	return resp, nil
}
