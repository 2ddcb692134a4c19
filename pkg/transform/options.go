// Package transform defines the request-scoped data model for the image
// transform proxy: parsed transform options, the immutable per-request value,
// and the diagnostics accumulator shared by all strategies.
package transform

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Limits for transform option validation.
const (
	MaxDimension = 12000
	MaxQuality   = 100
	MaxDPR       = 3
)

// Valid enum values for string-typed options.
var (
	validFits = map[string]bool{
		"scale-down": true,
		"contain":    true,
		"cover":      true,
		"crop":       true,
		"pad":        true,
	}

	validGravities = map[string]bool{
		"auto":   true,
		"center": true,
		"left":   true,
		"right":  true,
		"top":    true,
		"bottom": true,
	}

	validFormats = map[string]bool{
		"auto": true,
		"avif": true,
		"webp": true,
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"json": true,
	}

	validMetadata = map[string]bool{
		"keep":      true,
		"copyright": true,
		"none":      true,
	}
)

// Options holds the desired transform parameters for one request.
// Zero values mean "not requested".
type Options struct {
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Quality    int    `json:"quality,omitempty"`
	DPR        int    `json:"dpr,omitempty"`
	Sharpen    int    `json:"sharpen,omitempty"`
	Fit        string `json:"fit,omitempty"`
	Gravity    string `json:"gravity,omitempty"`
	Format     string `json:"format,omitempty"`
	Metadata   string `json:"metadata,omitempty"`
	Derivative string `json:"derivative,omitempty"`
}

// ParseOptions extracts transform options from URL query parameters.
// Unknown parameters are ignored; malformed numeric values surface as
// validation errors so the caller can reject the request with field detail.
func ParseOptions(query url.Values) (Options, *ValidationError) {
	var opts Options
	verr := &ValidationError{Fields: map[string]string{}}

	intField := func(name string) int {
		raw := query.Get(name)
		if raw == "" {
			return 0
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			verr.Fields[name] = fmt.Sprintf("not an integer: %q", raw)
			return 0
		}
		return v
	}

	opts.Width = intField("width")
	opts.Height = intField("height")
	opts.Quality = intField("quality")
	opts.DPR = intField("dpr")
	opts.Sharpen = intField("sharpen")
	opts.Fit = query.Get("fit")
	opts.Gravity = query.Get("gravity")
	opts.Format = query.Get("format")
	opts.Metadata = query.Get("metadata")
	opts.Derivative = query.Get("derivative")

	if len(verr.Fields) > 0 {
		return opts, verr
	}
	return opts, nil
}

// Normalize canonicalizes string options (lower-case, trimmed). Numeric
// options are left untouched so that out-of-range values still reach
// Validate and get rejected rather than silently adjusted. Returns a new
// value; o is unchanged.
func (o Options) Normalize() Options {
	n := o
	n.Fit = strings.ToLower(strings.TrimSpace(n.Fit))
	n.Gravity = strings.ToLower(strings.TrimSpace(n.Gravity))
	n.Format = strings.ToLower(strings.TrimSpace(n.Format))
	n.Metadata = strings.ToLower(strings.TrimSpace(n.Metadata))
	return n
}

// Validate checks enum and range constraints. Returns nil when the options
// are acceptable, otherwise a ValidationError with one message per bad field.
func (o Options) Validate() *ValidationError {
	verr := &ValidationError{Fields: map[string]string{}}

	if o.Width < 0 || o.Width > MaxDimension {
		verr.Fields["width"] = fmt.Sprintf("must be between 0 and %d", MaxDimension)
	}
	if o.Height < 0 || o.Height > MaxDimension {
		verr.Fields["height"] = fmt.Sprintf("must be between 0 and %d", MaxDimension)
	}
	if o.Quality < 0 || o.Quality > MaxQuality {
		verr.Fields["quality"] = fmt.Sprintf("must be between 0 and %d", MaxQuality)
	}
	if o.DPR < 0 || o.DPR > MaxDPR {
		verr.Fields["dpr"] = fmt.Sprintf("must be between 0 and %d", MaxDPR)
	}
	if o.Sharpen < 0 {
		verr.Fields["sharpen"] = "must not be negative"
	}
	if o.Fit != "" && !validFits[o.Fit] {
		verr.Fields["fit"] = fmt.Sprintf("unknown fit %q", o.Fit)
	}
	if o.Gravity != "" && !validGravities[o.Gravity] {
		verr.Fields["gravity"] = fmt.Sprintf("unknown gravity %q", o.Gravity)
	}
	if o.Format != "" && !validFormats[o.Format] {
		verr.Fields["format"] = fmt.Sprintf("unknown format %q", o.Format)
	}
	if o.Metadata != "" && !validMetadata[o.Metadata] {
		verr.Fields["metadata"] = fmt.Sprintf("unknown metadata mode %q", o.Metadata)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// HasTransform reports whether at least one transform parameter is set.
// The derivative name alone does not count; it is expanded into concrete
// parameters before strategies consult this.
func (o Options) HasTransform() bool {
	return o.Width > 0 || o.Height > 0 || o.Quality > 0 || o.DPR > 0 ||
		o.Sharpen > 0 || o.Fit != "" || o.Gravity != "" || o.Format != ""
}

// Merge overlays o on top of base: any field set in o wins, unset fields
// fall through to base. Used to expand derivative bundles under explicit
// query parameters.
func (o Options) Merge(base Options) Options {
	out := base
	if o.Width > 0 {
		out.Width = o.Width
	}
	if o.Height > 0 {
		out.Height = o.Height
	}
	if o.Quality > 0 {
		out.Quality = o.Quality
	}
	if o.DPR > 0 {
		out.DPR = o.DPR
	}
	if o.Sharpen > 0 {
		out.Sharpen = o.Sharpen
	}
	if o.Fit != "" {
		out.Fit = o.Fit
	}
	if o.Gravity != "" {
		out.Gravity = o.Gravity
	}
	if o.Format != "" {
		out.Format = o.Format
	}
	if o.Metadata != "" {
		out.Metadata = o.Metadata
	}
	if o.Derivative != "" {
		out.Derivative = o.Derivative
	}
	return out
}

// pairs returns the set option fields as ordered name/value pairs,
// sorted by name for determinism.
func (o Options) pairs() [][2]string {
	m := map[string]string{}
	if o.Width > 0 {
		m["width"] = strconv.Itoa(o.Width)
	}
	if o.Height > 0 {
		m["height"] = strconv.Itoa(o.Height)
	}
	if o.Quality > 0 {
		m["quality"] = strconv.Itoa(o.Quality)
	}
	if o.DPR > 0 {
		m["dpr"] = strconv.Itoa(o.DPR)
	}
	if o.Sharpen > 0 {
		m["sharpen"] = strconv.Itoa(o.Sharpen)
	}
	if o.Fit != "" {
		m["fit"] = o.Fit
	}
	if o.Gravity != "" {
		m["gravity"] = o.Gravity
	}
	if o.Format != "" {
		m["format"] = o.Format
	}
	if o.Metadata != "" {
		m["metadata"] = o.Metadata
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, m[k]})
	}
	return pairs
}

// Canonical generates a deterministic serialization of the options.
// Format: opts:name=value:name=value with names sorted alphabetically.
//
// Example:
//   opts:format=webp:height=100:width=200
func (o Options) Canonical() string {
	parts := []string{"opts"}
	for _, p := range o.pairs() {
		parts = append(parts, fmt.Sprintf("%s=%s", p[0], p[1]))
	}
	return strings.Join(parts, ":")
}

// PathSegment renders the options as a comma-separated name=value segment
// suitable for a /cdn-cgi/image/<segment>/<key> style path.
func (o Options) PathSegment() string {
	parts := make([]string, 0, 8)
	for _, p := range o.pairs() {
		parts = append(parts, fmt.Sprintf("%s=%s", p[0], p[1]))
	}
	return strings.Join(parts, ",")
}

// QueryValues renders the options as ordinary URL query parameters for
// strategies that forward to an external origin.
func (o Options) QueryValues() url.Values {
	v := url.Values{}
	for _, p := range o.pairs() {
		v.Set(p[0], p[1])
	}
	return v
}
