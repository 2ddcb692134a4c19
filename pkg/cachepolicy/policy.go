// Package cachepolicy resolves the effective cache policy for a response by
// merging global defaults, pattern-matched URL rules, content-type overrides,
// and derivative overrides, and renders the resulting Cache-Control value and
// backend cache parameters.
package cachepolicy

import "fmt"

// TTL holds one TTL in seconds per HTTP status class.
type TTL struct {
	OK          int `yaml:"ok" json:"ok"`
	Redirects   int `yaml:"redirects" json:"redirects"`
	ClientError int `yaml:"client_error" json:"client_error"`
	ServerError int `yaml:"server_error" json:"server_error"`
}

// ForStatus selects the TTL bucket for an HTTP status code.
// Unknown classes (1xx, or anything outside 2xx-5xx) fall back to the
// client-error bucket.
func (t TTL) ForStatus(status int) int {
	switch status / 100 {
	case 2:
		return t.OK
	case 3:
		return t.Redirects
	case 4:
		return t.ClientError
	case 5:
		return t.ServerError
	default:
		return t.ClientError
	}
}

// Policy is the effective cache policy for one response. The TTL is always
// fully populated; Cacheability false forces no-store regardless of TTL.
type Policy struct {
	Cacheability     bool   `yaml:"cacheability" json:"cacheability"`
	TTL              TTL    `yaml:"ttl" json:"ttl"`
	ImageCompression string `yaml:"image_compression,omitempty" json:"image_compression,omitempty"`
	Mirage           bool   `yaml:"mirage,omitempty" json:"mirage,omitempty"`
	Method           string `yaml:"method,omitempty" json:"method,omitempty"`
}

// String renders a short summary for diagnostics.
func (p Policy) String() string {
	return fmt.Sprintf("cacheability=%t ttl=%d/%d/%d/%d method=%s",
		p.Cacheability, p.TTL.OK, p.TTL.Redirects, p.TTL.ClientError, p.TTL.ServerError, p.Method)
}

// DefaultPolicy is the base layer of every resolution.
func DefaultPolicy() Policy {
	return Policy{
		Cacheability: true,
		TTL: TTL{
			OK:          86400,
			Redirects:   3600,
			ClientError: 60,
			ServerError: 0,
		},
		Method: "cf",
	}
}

// Override is a partial policy: nil fields leave the underlying layer
// untouched, set fields replace it. Shallow merge only; the TTL buckets
// merge individually.
type Override struct {
	Cacheability     *bool       `yaml:"cacheability,omitempty" json:"cacheability,omitempty"`
	TTL              TTLOverride `yaml:"ttl,omitempty" json:"ttl,omitempty"`
	ImageCompression *string     `yaml:"image_compression,omitempty" json:"image_compression,omitempty"`
	Mirage           *bool       `yaml:"mirage,omitempty" json:"mirage,omitempty"`
	Method           *string     `yaml:"method,omitempty" json:"method,omitempty"`
}

// TTLOverride is a partial TTL; nil buckets are left untouched.
type TTLOverride struct {
	OK          *int `yaml:"ok,omitempty" json:"ok,omitempty"`
	Redirects   *int `yaml:"redirects,omitempty" json:"redirects,omitempty"`
	ClientError *int `yaml:"client_error,omitempty" json:"client_error,omitempty"`
	ServerError *int `yaml:"server_error,omitempty" json:"server_error,omitempty"`
}

// Apply merges the override onto a policy, field by field.
func (o Override) Apply(p Policy) Policy {
	if o.Cacheability != nil {
		p.Cacheability = *o.Cacheability
	}
	if o.TTL.OK != nil {
		p.TTL.OK = *o.TTL.OK
	}
	if o.TTL.Redirects != nil {
		p.TTL.Redirects = *o.TTL.Redirects
	}
	if o.TTL.ClientError != nil {
		p.TTL.ClientError = *o.TTL.ClientError
	}
	if o.TTL.ServerError != nil {
		p.TTL.ServerError = *o.TTL.ServerError
	}
	if o.ImageCompression != nil {
		p.ImageCompression = *o.ImageCompression
	}
	if o.Mirage != nil {
		p.Mirage = *o.Mirage
	}
	if o.Method != nil {
		p.Method = *o.Method
	}
	return p
}

// IsZero reports whether the override sets nothing.
func (o Override) IsZero() bool {
	return o.Cacheability == nil && o.TTL.OK == nil && o.TTL.Redirects == nil &&
		o.TTL.ClientError == nil && o.TTL.ServerError == nil &&
		o.ImageCompression == nil && o.Mirage == nil && o.Method == nil
}
