package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mediastack/image-transform-proxy/internal/testutil"
	"github.com/mediastack/image-transform-proxy/pkg/cachepolicy"
	"github.com/mediastack/image-transform-proxy/pkg/optionscache"
	"github.com/mediastack/image-transform-proxy/pkg/orchestrator"
	"github.com/mediastack/image-transform-proxy/pkg/storage"
	"github.com/mediastack/image-transform-proxy/pkg/strategy"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// proxy is a minimal HTTP adapter over the orchestrator, the way an
// embedding server wires the library.
type proxy struct {
	orch        *orchestrator.Orchestrator
	environment string
}

func (p *proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := transform.ParseRequest(r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := p.orch.Transform(r.Context(), req, strategy.DomainContext{
		Environment: p.environment,
		Type:        transform.DomainCustom,
		Host:        r.Host,
		Path:        r.URL.Path,
	})

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if resp.Diagnostics != nil && resp.Diagnostics.SelectedStrategy != "" {
		w.Header().Set("X-Strategy-Selected", resp.Diagnostics.SelectedStrategy)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// setupProxy assembles the full stack against a Redis-backed store and a
// mock transformation backend, serving it over a local HTTP listener.
func setupProxy(t *testing.T, redisClient *redis.Client, mock *testutil.MockBackend) (*httptest.Server, storage.Store) {
	t.Helper()

	store := storage.NewRedisStore(redisClient)
	optionsCache := optionscache.New(optionscache.DefaultConfig())
	resolver := cachepolicy.NewResolver(cachepolicy.DefaultPolicy(), nil, nil, zerolog.Nop())

	deps := strategy.Deps{
		Store:        store,
		Backend:      strategy.NewHTTPBackend(optionsCache, zerolog.Nop()),
		OptionsCache: optionsCache,
		Resolver:     resolver,
		Scheme:       "http",
		Logger:       zerolog.Nop(),
	}
	registry := strategy.NewRegistry(strategy.RegistryConfig{}, deps, zerolog.Nop())
	orch := orchestrator.New(registry, resolver, zerolog.Nop())

	server := httptest.NewServer(&proxy{orch: orch, environment: "integration"})
	t.Cleanup(server.Close)

	return server, store
}

func seedSource(t *testing.T, store storage.Store, key, body, contentType string) {
	t.Helper()
	err := store.Put(context.Background(), key, &storage.Object{
		Body:     []byte(body),
		Metadata: map[string]string{"content-type": contentType},
		ETag:     `"v1"`,
	})
	if err != nil {
		t.Fatalf("Failed to seed source %q: %v", key, err)
	}
}

// TestEndToEndTransform drives a request through the full stack: parse,
// strategy selection, backend fetch, response write.
func TestEndToEndTransform(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockBackend()
	defer mock.Close()

	server, store := setupProxy(t, redisClient, mock)
	seedSource(t, store, "cat.jpg", "raw image bytes", "image/jpeg")

	// Point the request host at the mock backend so the winning strategy
	// fetches from it.
	req, _ := http.NewRequest("GET", server.URL+"/cat.jpg?width=100&format=webp", nil)
	req.Host = mock.Host()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body %s", resp.StatusCode, body)
	}
	if string(body) != "transformed:/cat.jpg" {
		t.Errorf("Body = %q, want the backend's transformed output", body)
	}
	if got := resp.Header.Get("X-Strategy-Selected"); got != strategy.NameInterceptor {
		t.Errorf("Selected = %q, want interceptor", got)
	}

	_, structured := mock.Counts()
	if structured != 1 {
		t.Errorf("Structured requests = %d, want 1", structured)
	}
}

// TestFallbackChainServesSource verifies that a dead backend degrades to
// serving the unmodified source from Redis rather than an error.
func TestFallbackChainServesSource(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.FailAll(http.StatusServiceUnavailable)

	server, store := setupProxy(t, redisClient, mock)
	seedSource(t, store, "cat.jpg", "raw image bytes", "image/jpeg")

	req, _ := http.NewRequest("GET", server.URL+"/cat.jpg?width=100", nil)
	req.Host = mock.Host()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200 from source serving; body %s", resp.StatusCode, body)
	}
	if string(body) != "raw image bytes" {
		t.Errorf("Body = %q, want the unmodified source", body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	if got := resp.Header.Get("X-Strategy-Selected"); got != strategy.NameDirectServing {
		t.Errorf("Selected = %q, want direct-serving", got)
	}

	// Every backend-coupled pathway was tried before degrading.
	requests, _ := mock.Counts()
	if requests < 2 {
		t.Errorf("Backend requests = %d, want the chain to try multiple pathways", requests)
	}
}

// TestSubrequestLoopback exercises the interception pathway end to end:
// the backend loops back into the proxy with the subrequest marker and
// receives the raw source bytes to transform.
func TestSubrequestLoopback(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockBackend()
	defer mock.Close()

	server, store := setupProxy(t, redisClient, mock)
	seedSource(t, store, "cat.jpg", "raw image bytes", "image/jpeg")

	// Simulate the real backend: fetch the same URL back from the proxy
	// with the loopback marker, then "transform" what it got.
	mock.SetHandler("/cat.jpg", func(w http.ResponseWriter, r *http.Request) {
		loop, err := http.NewRequest("GET", server.URL+r.URL.RequestURI(), nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		loop.Header.Set("Via", "1.1 image-resizing")

		source, err := http.DefaultClient.Do(loop)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer source.Body.Close()

		raw, _ := io.ReadAll(source.Body)
		w.Header().Set("Content-Type", "image/webp")
		fmt.Fprintf(w, "transformed(%d bytes)", len(raw))
	})

	req, _ := http.NewRequest("GET", server.URL+"/cat.jpg?width=100", nil)
	req.Host = mock.Host()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d, want 200; body %s", resp.StatusCode, body)
	}

	want := fmt.Sprintf("transformed(%d bytes)", len("raw image bytes"))
	if string(body) != want {
		t.Errorf("Body = %q, want %q", body, want)
	}
}

// TestMissingSourceDegradesTo404 verifies exhaustion on an unknown key
// still yields a well-formed response.
func TestMissingSourceDegradesTo404(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	mock := testutil.NewMockBackend()
	defer mock.Close()
	mock.FailAll(http.StatusServiceUnavailable)

	server, _ := setupProxy(t, redisClient, mock)

	req, _ := http.NewRequest("GET", server.URL+"/missing.jpg?width=100", nil)
	req.Host = mock.Host()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}

// TestStoreRoundTrip verifies the Redis envelope survives a full
// put/get/delete cycle against a real server.
func TestStoreRoundTrip(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	store := storage.NewRedisStore(redisClient)
	ctx := context.Background()

	seedSource(t, store, "round/trip.png", "png bytes", "image/png")

	// Redis writes are synchronous, but leave room for slow CI hosts.
	deadline := time.Now().Add(2 * time.Second)
	var obj *storage.Object
	var err error
	for {
		obj, err = store.Get(ctx, "round/trip.png")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(obj.Body) != "png bytes" || obj.ContentType() != "image/png" {
		t.Errorf("Object = %+v, want the seeded body and content type", obj)
	}

	if err := store.Delete(ctx, "round/trip.png"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "round/trip.png"); err != storage.ErrNotFound {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}
