package cachepolicy

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for policy resolution.
var (
	policyResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transform_policy_resolutions_total",
		Help: "Total cache policy resolutions by winning layer",
	}, []string{"layer"})

	policyRulesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transform_policy_rules_skipped_total",
		Help: "Total URL cache rules skipped due to invalid patterns",
	})
)

// compiledRule pairs a URLRule with its compiled pattern.
type compiledRule struct {
	rule URLRule
	re   *regexp.Regexp
}

// Resolver turns (URL, derivative) into an effective cache policy.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	defaults    Policy
	rules       []compiledRule
	derivatives map[string]Override
	logger      zerolog.Logger
}

// NewResolver compiles the configured URL rules and builds a resolver.
// Rules with invalid patterns are skipped with a warning, never an error.
func NewResolver(defaults Policy, rules []URLRule, derivatives map[string]Override, logger zerolog.Logger) *Resolver {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			policyRulesSkippedTotal.Inc()
			logger.Warn().
				Err(err).
				Str("pattern", rule.Pattern).
				Msg("Skipping URL cache rule with invalid pattern")
			continue
		}
		compiled = append(compiled, compiledRule{rule: rule, re: re})
	}

	if derivatives == nil {
		derivatives = map[string]Override{}
	}

	return &Resolver{
		defaults:    defaults,
		rules:       compiled,
		derivatives: derivatives,
		logger:      logger,
	}
}

// Resolve computes the effective policy for a URL and optional derivative
// name. Each layer overrides only the fields it specifies: defaults, then
// the longest-pattern matching URL rule, then that rule's content-type
// override for the URL's extension, then the derivative override last.
// Resolution never fails; unresolvable lookups fall through silently.
func (r *Resolver) Resolve(rawURL, derivativeName string) Policy {
	policy := r.defaults
	layer := "defaults"

	if match := r.longestMatch(rawURL); match != nil {
		policy = match.rule.Override.Apply(policy)
		layer = "url_rule"

		if len(match.rule.ContentTypes) > 0 {
			if mime := MIMEForURL(rawURL); mime != "" {
				if override, ok := match.rule.ContentTypes[mime]; ok {
					policy = override.Apply(policy)
					layer = "content_type"
				}
			}
		}
	}

	if derivativeName != "" {
		if override, ok := r.derivatives[derivativeName]; ok {
			policy = override.Apply(policy)
			layer = "derivative"
		} else {
			r.logger.Debug().
				Str("derivative", derivativeName).
				Msg("Unknown derivative, using defaults")
		}
	}

	policyResolutionsTotal.WithLabelValues(layer).Inc()
	return policy
}

// longestMatch returns the matching rule with the longest pattern string,
// or nil when no rule matches.
func (r *Resolver) longestMatch(rawURL string) *compiledRule {
	var best *compiledRule
	for i := range r.rules {
		c := &r.rules[i]
		if !c.re.MatchString(rawURL) {
			continue
		}
		if best == nil || len(c.rule.Pattern) > len(best.rule.Pattern) {
			best = c
		}
	}
	return best
}
