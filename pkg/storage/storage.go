// Package storage provides the object store collaborator holding original
// image bytes, with redis-backed and in-memory implementations.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// Object is one stored source image.
type Object struct {
	// Body holds the raw object bytes.
	Body []byte `json:"body"`

	// Metadata carries opaque per-object attributes (content type,
	// upload time) set by whoever wrote the object.
	Metadata map[string]string `json:"metadata,omitempty"`

	// ETag identifies the object version.
	ETag string `json:"etag,omitempty"`
}

// ContentType returns the stored content type, if present.
func (o *Object) ContentType() string {
	if o == nil {
		return ""
	}
	return o.Metadata["content-type"]
}

// Store is the single logical storage abstraction the core depends on.
type Store interface {
	// Get retrieves an object by key. Returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (*Object, error)

	// Put stores an object under a key.
	Put(ctx context.Context, key string, obj *Object) error

	// Delete removes an object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
