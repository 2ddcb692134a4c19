package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Environment != "production" {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if cfg.TransformPathSegment != "cdn-cgi/image" {
		t.Errorf("TransformPathSegment = %q, want cdn-cgi/image", cfg.TransformPathSegment)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
logging:
  level: debug
  pretty: true
redis:
  addr: redis:6379
environment: staging
fallback_origin: https://origin.example.net
debug_headers: true

strategies:
  disabled: [interceptor]
  environment_orders:
    staging: [direct-url, cdn-cgi, direct-serving]
  route_overrides:
    - pattern: '^img\.example\.com/thumbs/'
      enabled: [direct-serving]

cache:
  defaults:
    cacheability: true
    ttl:
      ok: 3600
      redirects: 300
      client_error: 30
      server_error: 0
  url_rules:
    - pattern: '/static/'
      override:
        ttl:
          ok: 604800

options_cache:
  enabled: true
  max_size: 50
  ttl_seconds: 120

derivatives:
  thumbnail:
    options:
      width: 150
      height: 150
      fit: cover
    cache:
      ttl:
        ok: 7200
  banner:
    options:
      width: 1200
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want staging", cfg.Environment)
	}
	if cfg.FallbackOrigin != "https://origin.example.net" {
		t.Errorf("FallbackOrigin = %q", cfg.FallbackOrigin)
	}
	if !cfg.DebugHeaders {
		t.Error("DebugHeaders should be true")
	}

	if got := cfg.Strategies.Disabled; len(got) != 1 || got[0] != "interceptor" {
		t.Errorf("Strategies.Disabled = %v", got)
	}
	if got := cfg.Strategies.EnvironmentOrders["staging"]; len(got) != 3 || got[0] != "direct-url" {
		t.Errorf("EnvironmentOrders[staging] = %v", got)
	}
	if len(cfg.Strategies.RouteOverrides) != 1 {
		t.Fatalf("RouteOverrides = %v", cfg.Strategies.RouteOverrides)
	}

	if cfg.Cache.Defaults == nil || cfg.Cache.Defaults.TTL.OK != 3600 {
		t.Errorf("Cache.Defaults = %+v, want ttl.ok 3600", cfg.Cache.Defaults)
	}
	if len(cfg.Cache.URLRules) != 1 || cfg.Cache.URLRules[0].Pattern != "/static/" {
		t.Errorf("URLRules = %+v", cfg.Cache.URLRules)
	}

	thumb, ok := cfg.Derivatives["thumbnail"]
	if !ok {
		t.Fatal("thumbnail derivative missing")
	}
	if thumb.Options.Width != 150 || thumb.Options.Fit != "cover" {
		t.Errorf("thumbnail options = %+v", thumb.Options)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "environment: dev\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want default 8080", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want default", cfg.Redis.Addr)
	}
}

func TestPolicyDefaults(t *testing.T) {
	cfg := Default()
	if got := cfg.PolicyDefaults(); got.TTL.OK != 86400 {
		t.Errorf("default policy ttl.ok = %d, want 86400", got.TTL.OK)
	}
}

func TestDerivativeHelpers(t *testing.T) {
	path := writeConfig(t, `
derivatives:
  thumbnail:
    options:
      width: 150
    cache:
      cacheability: false
  banner:
    options:
      width: 1200
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	opts := cfg.DerivativeOptions()
	if opts["thumbnail"].Width != 150 || opts["banner"].Width != 1200 {
		t.Errorf("DerivativeOptions = %+v", opts)
	}

	// banner sets no cache override and must be skipped.
	overrides := cfg.DerivativeOverrides()
	if _, ok := overrides["thumbnail"]; !ok {
		t.Errorf("overrides = %+v, want thumbnail present", overrides)
	}
	if _, ok := overrides["banner"]; ok {
		t.Errorf("overrides = %+v, want banner skipped", overrides)
	}
}

func TestOptionsCacheSetup(t *testing.T) {
	path := writeConfig(t, `
options_cache:
  enabled: false
  max_size: 10
  ttl_seconds: 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	setup := cfg.OptionsCacheSetup()
	if setup.Enabled {
		t.Error("Enabled should be false")
	}
	if setup.MaxSize != 10 {
		t.Errorf("MaxSize = %d, want 10", setup.MaxSize)
	}
	if setup.TTL != 30*time.Second {
		t.Errorf("TTL = %v, want 30s", setup.TTL)
	}

	// Absent section falls back to the cache defaults.
	def := Default().OptionsCacheSetup()
	if !def.Enabled {
		t.Error("default should be enabled")
	}
}
