package storage

import (
	"context"
	"testing"
)

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	obj := &Object{
		Body:     []byte("image bytes"),
		Metadata: map[string]string{"content-type": "image/jpeg"},
		ETag:     `"abc123"`,
	}

	if err := store.Put(ctx, "images/cat.jpg", obj); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "images/cat.jpg")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Body) != "image bytes" {
		t.Errorf("Body = %q, want image bytes", got.Body)
	}
	if got.ContentType() != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", got.ContentType())
	}
	if got.ETag != `"abc123"` {
		t.Errorf("ETag = %q, want abc123", got.ETag)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	if err != ErrNotFound {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "k", &Object{Body: []byte("x")})
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); err != ErrNotFound {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}

	// Deleting an absent key is not an error.
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete of absent key = %v, want nil", err)
	}
}

func TestObject_ContentType_Nil(t *testing.T) {
	var obj *Object
	if obj.ContentType() != "" {
		t.Error("nil object should report empty content type")
	}
}
