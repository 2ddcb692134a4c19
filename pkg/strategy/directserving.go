package strategy

import (
	"context"

	"github.com/mediastack/image-transform-proxy/pkg/storage"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// DirectServing serves the unmodified source object with no transform. It
// is the guaranteed terminal fallback: lowest priority, always applicable.
type DirectServing struct {
	deps Deps
}

// NewDirectServing creates the direct-serving strategy.
func NewDirectServing(deps Deps) *DirectServing {
	return &DirectServing{deps: deps.withDefaults()}
}

func (s *DirectServing) Name() string  { return NameDirectServing }
func (s *DirectServing) Priority() int { return 100 }

// CanHandle is always true.
func (s *DirectServing) CanHandle(*RequestContext) bool { return true }

// Execute serves the raw source bytes. An absent key is a well-formed 404
// response, not an error: availability is guaranteed even when the object
// is gone.
func (s *DirectServing) Execute(ctx context.Context, rc *RequestContext) (*transform.Response, error) {
	key := rc.Request.SourceKey
	if key == "" {
		return s.notFound(rc), nil
	}

	obj, err := s.deps.Store.Get(ctx, key)
	if err == storage.ErrNotFound {
		return s.notFound(rc), nil
	}
	if err != nil {
		return nil, &Error{Strategy: NameDirectServing, Class: ErrorClassStorage, Message: "get " + key, Err: err}
	}

	resp := transform.NewResponse(200, obj.Body)
	if ct := obj.ContentType(); ct != "" {
		resp.Header.Set("Content-Type", ct)
	}
	if obj.ETag != "" {
		resp.Header.Set("ETag", obj.ETag)
	}
	resp.Header.Set("Cache-Control", sourceCacheControl(s.deps, rc, 200))
	return resp, nil
}

func (s *DirectServing) notFound(rc *RequestContext) *transform.Response {
	resp := transform.NewResponse(404, []byte("image not found"))
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp.Header.Set("Cache-Control", sourceCacheControl(s.deps, rc, 404))
	return resp
}
