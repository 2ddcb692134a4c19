package strategy

import (
	"regexp"
	"sort"

	"github.com/rs/zerolog"

	"github.com/mediastack/image-transform-proxy/pkg/transform"
)

// Built-in default priority orders. The interceptor pathway is unreliable
// on ephemeral domains, so the ephemeral default omits it.
var (
	DefaultOrderCustom = []string{
		NameInterceptor, NameDirectURL, NameCDNCGI, NameRemoteFallback, NameDirectServing,
	}

	DefaultOrderEphemeral = []string{
		NameDirectURL, NameCDNCGI, NameRemoteFallback, NameDirectServing,
	}
)

// RouteOverride is a route-specific strategy configuration, matched against
// host+path.
type RouteOverride struct {
	Pattern       string   `yaml:"pattern" json:"pattern"`
	PriorityOrder []string `yaml:"priority_order,omitempty" json:"priority_order,omitempty"`
	Disabled      []string `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Enabled       []string `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// RegistryConfig is the strategy-selection configuration for one process.
type RegistryConfig struct {
	// EnvironmentOrders maps environment name to a global priority order.
	EnvironmentOrders map[string][]string `yaml:"environment_orders,omitempty" json:"environment_orders,omitempty"`

	// Disabled and Enabled filter candidates globally. A non-empty
	// Enabled list is a whitelist and takes precedence over Disabled.
	Disabled []string `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Enabled  []string `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// RouteOverrides are consulted first; the first matching override
	// wins.
	RouteOverrides []RouteOverride `yaml:"route_overrides,omitempty" json:"route_overrides,omitempty"`
}

// compiledOverride pairs a RouteOverride with its compiled pattern.
type compiledOverride struct {
	override RouteOverride
	re       *regexp.Regexp
}

// Registry holds the static strategy table and produces the filtered,
// priority-ordered list for a request. Pure given its inputs; no side
// effects beyond warn logs for unknown names.
type Registry struct {
	table     []Strategy
	byName    map[string]Strategy
	config    RegistryConfig
	overrides []compiledOverride
	logger    zerolog.Logger
}

// NewRegistry builds the static strategy table from shared deps and
// compiles route override patterns. Invalid patterns are skipped with a
// warning.
func NewRegistry(config RegistryConfig, deps Deps, logger zerolog.Logger) *Registry {
	table := []Strategy{
		NewInterceptor(deps),
		NewDirectURL(deps),
		NewCDNCGI(deps),
		NewRemoteFallback(deps),
		NewDirectServing(deps),
	}

	byName := make(map[string]Strategy, len(table))
	for _, s := range table {
		byName[s.Name()] = s
	}

	overrides := make([]compiledOverride, 0, len(config.RouteOverrides))
	for _, ov := range config.RouteOverrides {
		re, err := regexp.Compile(ov.Pattern)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("pattern", ov.Pattern).
				Msg("Skipping route override with invalid pattern")
			continue
		}
		overrides = append(overrides, compiledOverride{override: ov, re: re})
	}

	return &Registry{
		table:     table,
		byName:    byName,
		config:    config,
		overrides: overrides,
		logger:    logger,
	}
}

// Strategy returns a strategy from the static table by name, or nil.
func (r *Registry) Strategy(name string) Strategy {
	return r.byName[name]
}

// OrderedStrategies resolves the filtered, priority-ordered strategy list
// for a domain context. Resolution precedence for the priority order:
// route override, environment order, domain-type default, built-in default.
// The resolved order doubles as a membership filter: a strategy it omits is
// never a candidate, which is how the ephemeral default keeps the
// interceptor off workers.dev-style hosts.
func (r *Registry) OrderedStrategies(domain DomainContext) []Strategy {
	order, disabled, enabled := r.resolve(domain)

	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, known := r.byName[name]; !known {
			r.logger.Warn().
				Str("strategy", name).
				Str("environment", domain.Environment).
				Msg("Ignoring unknown strategy name in priority order")
			continue
		}
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}

	disabled = r.knownOnly(disabled, domain, "disabled")
	enabled = r.knownOnly(enabled, domain, "enabled")

	candidates := make([]Strategy, 0, len(r.table))
	for _, s := range r.table {
		if _, listed := rank[s.Name()]; !listed {
			continue
		}
		if !allowed(s.Name(), disabled, enabled) {
			continue
		}
		candidates = append(candidates, s)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority() != b.Priority() {
			return a.Priority() < b.Priority()
		}
		return rank[a.Name()] < rank[b.Name()]
	})

	return candidates
}

// resolve picks the priority order and filter lists for a domain context.
//
// The resolved order is exhaustive, not additive: a configured override or
// environment order listing only two names leaves the other strategies
// unlisted, and OrderedStrategies will never attempt them. Operators who
// want to reorder without excluding must list every strategy they still
// want as a candidate. The terminal fallback strategy is held separately
// by the orchestrator, so even an empty candidate list still serves a
// response.
func (r *Registry) resolve(domain DomainContext) (order, disabled, enabled []string) {
	disabled = r.config.Disabled
	enabled = r.config.Enabled

	if ov := r.matchOverride(domain); ov != nil {
		if len(ov.PriorityOrder) > 0 {
			order = ov.PriorityOrder
		}
		if len(ov.Disabled) > 0 {
			disabled = ov.Disabled
		}
		if len(ov.Enabled) > 0 {
			enabled = ov.Enabled
		}
	}

	if order == nil {
		if envOrder, ok := r.config.EnvironmentOrders[domain.Environment]; ok && len(envOrder) > 0 {
			order = envOrder
		}
	}

	if order == nil {
		if domain.Type == transform.DomainEphemeral {
			order = DefaultOrderEphemeral
		} else {
			order = DefaultOrderCustom
		}
	}

	return order, disabled, enabled
}

// matchOverride returns the first route override matching host+path.
func (r *Registry) matchOverride(domain DomainContext) *RouteOverride {
	target := domain.Host + domain.Path
	for i := range r.overrides {
		if r.overrides[i].re.MatchString(target) {
			return &r.overrides[i].override
		}
	}
	return nil
}

// knownOnly drops unknown strategy names from a filter list, warning once
// per unknown name.
func (r *Registry) knownOnly(names []string, domain DomainContext, list string) []string {
	out := names[:0:0]
	for _, n := range names {
		if _, known := r.byName[n]; !known {
			r.logger.Warn().
				Str("strategy", n).
				Str("list", list).
				Str("environment", domain.Environment).
				Msg("Ignoring unknown strategy name in config")
			continue
		}
		out = append(out, n)
	}
	return out
}

// allowed applies the enabled whitelist, or the disabled blacklist when no
// whitelist is set.
func allowed(name string, disabled, enabled []string) bool {
	if len(enabled) > 0 {
		for _, n := range enabled {
			if n == name {
				return true
			}
		}
		return false
	}
	for _, n := range disabled {
		if n == name {
			return false
		}
	}
	return true
}
