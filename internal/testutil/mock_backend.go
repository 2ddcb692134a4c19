// Package testutil provides testing utilities for the transform proxy.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockBackend is a configurable stand-in for the external image
// transformation backend. It records what strategies send it and can be
// forced to fail for fallback-chain tests.
type MockBackend struct {
	server *httptest.Server

	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	failAll  int // status code to fail every request with; 0 = disabled

	// Tracking
	RequestCount     int
	StructuredCount  int // requests carrying the structured options header
	LastRequestPath  string
	LastOptionsValue string
}

// NewMockBackend creates a mock transformation backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestPath = r.URL.Path
		if v := r.Header.Get("X-Image-Options"); v != "" {
			mock.StructuredCount++
			mock.LastOptionsValue = v
		}
		failAll := mock.failAll
		handler := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if failAll != 0 {
			http.Error(w, "injected failure", failAll)
			return
		}

		if handler != nil {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Host returns the mock server host (for domain contexts).
func (m *MockBackend) Host() string {
	return m.server.Listener.Addr().String()
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// SetHandler installs a custom handler for a path.
func (m *MockBackend) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// FailAll makes every request fail with the given status until Reset.
func (m *MockBackend) FailAll(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = status
}

// Reset clears tracking counters, handlers, and failure injection.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.StructuredCount = 0
	m.LastRequestPath = ""
	m.LastOptionsValue = ""
	m.failAll = 0
	m.handlers = make(map[string]http.HandlerFunc)
}

// Counts returns the tracking counters under the lock.
func (m *MockBackend) Counts() (requests, structured int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount, m.StructuredCount
}

// defaultHandler answers any request with a fake transformed image body
// that echoes the request path, so tests can assert which pathway ran.
func (m *MockBackend) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/webp")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "transformed:%s", r.URL.Path)
}
