package strategy

import (
	"context"

	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// CDNCGI builds a /<transform-path-segment>/<param>=<value>,...,/<key> path
// and fetches it. Domain-agnostic fallback: any resolvable key qualifies.
type CDNCGI struct {
	deps Deps
}

// NewCDNCGI creates the cdn-cgi strategy.
func NewCDNCGI(deps Deps) *CDNCGI {
	return &CDNCGI{deps: deps.withDefaults()}
}

func (s *CDNCGI) Name() string  { return NameCDNCGI }
func (s *CDNCGI) Priority() int { return 30 }

// CanHandle is true whenever a key is resolvable.
func (s *CDNCGI) CanHandle(rc *RequestContext) bool {
	return rc.Request.SourceKey != ""
}

func (s *CDNCGI) Execute(ctx context.Context, rc *RequestContext) (*transform.Response, error) {
	segment := s.deps.OptionsCache.Get(rc.Request.Options, "cdn-cgi",
		func(opts transform.Options, _ string) string {
			return opts.PathSegment()
		})

	target := s.deps.Scheme + "://" + rc.Domain.Host +
		"/" + s.deps.TransformPathSegment + "/" + segment + "/" + rc.Request.SourceKey

	resp, err := s.deps.Backend.Fetch(ctx, target)
	if err != nil {
		return nil, named(err, NameCDNCGI)
	}
	return resp, nil
}
