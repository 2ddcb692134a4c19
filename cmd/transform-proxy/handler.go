package main

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/mediastack/image-transform-proxy/internal/config"
	"github.com/mediastack/image-transform-proxy/pkg/cachepolicy"
	"github.com/mediastack/image-transform-proxy/pkg/orchestrator"
	"github.com/mediastack/image-transform-proxy/pkg/strategy"
	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// imageHandler adapts HTTP requests onto the orchestrator and writes the
// result back with the resolved Cache-Control value and, when enabled,
// diagnostics headers.
type imageHandler struct {
	orch        *orchestrator.Orchestrator
	resolver    *cachepolicy.Resolver
	cfg         config.Config
	derivatives map[string]transform.Options
}

func newImageHandler(orch *orchestrator.Orchestrator, resolver *cachepolicy.Resolver, cfg config.Config) *imageHandler {
	return &imageHandler{
		orch:        orch,
		resolver:    resolver,
		cfg:         cfg,
		derivatives: cfg.DerivativeOptions(),
	}
}

func (h *imageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := transform.ParseRequest(r, h.derivatives)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	req = req.WithFallbackOrigin(h.cfg.FallbackOrigin)

	domain := domainContext(r, h.cfg.Environment)
	resp := h.orch.Transform(r.Context(), req, domain)

	policy := h.resolver.Resolve(req.URL.String(), req.Options.Derivative)
	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set("Cache-Control", cachepolicy.ControlHeader(resp.StatusCode, policy))

	if h.debugEnabled(r) {
		writeDebugHeaders(w.Header(), resp.Diagnostics)
	}

	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// debugEnabled reports whether diagnostics headers should be rendered:
// enabled by configuration or by an inbound override header.
func (h *imageHandler) debugEnabled(r *http.Request) bool {
	return h.cfg.DebugHeaders || r.Header.Get("X-Debug") != ""
}

// writeDebugHeaders renders the diagnostics side channel into response
// headers.
func writeDebugHeaders(header http.Header, diag *transform.Diagnostics) {
	if diag == nil {
		return
	}

	if len(diag.AttemptedStrategies) > 0 {
		header.Set("X-Strategy-Attempted", strings.Join(diag.AttemptedStrategies, ","))
	}
	if diag.SelectedStrategy != "" {
		header.Set("X-Strategy-Selected", diag.SelectedStrategy)
	}
	if len(diag.FailedStrategies) > 0 {
		names := make([]string, 0, len(diag.FailedStrategies))
		for name := range diag.FailedStrategies {
			names = append(names, name)
		}
		sort.Strings(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+": "+diag.FailedStrategies[name])
		}
		header.Set("X-Strategy-Failures", strings.Join(parts, "; "))
	}
	if diag.PolicySummary != "" {
		header.Set("X-Cache-Policy", diag.PolicySummary)
	}
}

// writeValidationError renders a 400 with field-level detail.
func writeValidationError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)

	body := map[string]any{"error": "invalid transform parameters"}
	if verr, ok := err.(*transform.ValidationError); ok {
		body["fields"] = verr.Fields
	}
	json.NewEncoder(w).Encode(body)
}

// domainContext classifies the request host. Provider-assigned ephemeral
// domains carry the workers.dev style suffix; everything else is custom.
func domainContext(r *http.Request, environment string) strategy.DomainContext {
	host := r.Host
	domainType := transform.DomainCustom
	if strings.HasSuffix(host, ".workers.dev") {
		domainType = transform.DomainEphemeral
	}
	return strategy.DomainContext{
		Environment: environment,
		Type:        domainType,
		Host:        host,
		Path:        r.URL.Path,
	}
}
