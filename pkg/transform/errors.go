package transform

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports malformed or out-of-range transform parameters.
// It is fatal to the request and surfaces as a 400 with field-level detail;
// it is never retried through the strategy chain.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid transform parameters"
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "invalid transform parameters: " + strings.Join(parts, "; ")
}
