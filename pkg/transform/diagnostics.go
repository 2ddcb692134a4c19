package transform

// DomainType classifies the request's host for strategy selection.
type DomainType string

const (
	// DomainCustom is a customer-owned domain where subrequest
	// interception is reliable.
	DomainCustom DomainType = "custom"

	// DomainEphemeral is a provider-assigned (workers.dev style) domain
	// where the interceptor pathway is unreliable.
	DomainEphemeral DomainType = "ephemeral"
)

// Diagnostics is the mutable accumulator scoped to one request. It records
// the fallback chain's progress for the debug-header writer and is destroyed
// with the request; this core never serializes it.
type Diagnostics struct {
	// AttemptedStrategies lists strategy names in the order they were
	// considered (canHandle true).
	AttemptedStrategies []string

	// SelectedStrategy is the name of the strategy that produced the
	// response. Empty when the terminal fallback was served.
	SelectedStrategy string

	// FailedStrategies maps strategy name to a one-line error summary.
	FailedStrategies map[string]string

	// Environment and DomainType are copied in for the header layer.
	Environment string
	DomainType  DomainType

	// PolicySummary is the resolved cache policy rendered as a short
	// string, filled in by the orchestrator.
	PolicySummary string
}

// NewDiagnostics creates an empty accumulator for one request.
func NewDiagnostics(environment string, domainType DomainType) *Diagnostics {
	return &Diagnostics{
		FailedStrategies: make(map[string]string),
		Environment:      environment,
		DomainType:       domainType,
	}
}

// RecordAttempt appends a strategy name to the attempt order.
func (d *Diagnostics) RecordAttempt(name string) {
	d.AttemptedStrategies = append(d.AttemptedStrategies, name)
}

// RecordFailure stores a one-line error summary for a failed strategy.
func (d *Diagnostics) RecordFailure(name, summary string) {
	d.FailedStrategies[name] = summary
}

// Select marks the winning strategy.
func (d *Diagnostics) Select(name string) {
	d.SelectedStrategy = name
}
