package transform

import (
	"net/http"
	"net/url"
	"strings"
)

// Request is the immutable per-request value owned by the orchestrator.
// It is created once per inbound request and never mutated afterwards.
type Request struct {
	// SourceKey is the storage key of the original image, derived from
	// the request path. Empty when the path carries no key.
	SourceKey string

	// Options are the normalized, derivative-expanded transform options.
	Options Options

	// URL is the inbound request URL, made absolute: server requests carry
	// only path and query in r.URL, so ParseRequest fills in scheme and
	// host. Cache policy rules with host-anchored patterns match against
	// this.
	URL *url.URL

	// Header is a snapshot of the inbound request headers (subrequest
	// marker, client/device hints). Opaque to this core beyond the marker.
	Header http.Header

	// FallbackOrigin is an optional external origin for the
	// remote-fallback strategy. Empty when none is configured.
	FallbackOrigin string
}

// ParseRequest builds a Request from an inbound HTTP request. derivatives
// maps derivative names to their predefined option bundles; when the
// request names a known derivative, explicit query parameters win over the
// bundle's values. A nil error return means the options passed validation.
func ParseRequest(r *http.Request, derivatives map[string]Options) (*Request, error) {
	opts, verr := ParseOptions(r.URL.Query())
	if verr != nil {
		return nil, verr
	}

	if opts.Derivative != "" {
		if bundle, ok := derivatives[opts.Derivative]; ok {
			opts = opts.Merge(bundle)
		}
	}
	opts = opts.Normalize()

	if verr := opts.Validate(); verr != nil {
		return nil, verr
	}

	return &Request{
		SourceKey: SourceKeyFromPath(r.URL.Path),
		Options:   opts,
		URL:       absoluteURL(r),
		Header:    r.Header.Clone(),
	}, nil
}

// absoluteURL copies r.URL and fills in the scheme and host that the
// server-side URL omits.
func absoluteURL(r *http.Request) *url.URL {
	u := *r.URL
	if u.Host == "" {
		u.Host = r.Host
	}
	if u.Scheme == "" {
		if r.TLS != nil {
			u.Scheme = "https"
		} else {
			u.Scheme = "http"
		}
	}
	return &u
}

// SourceKeyFromPath extracts the storage key from a request path.
// A cdn-cgi transform prefix is stripped so that backend subrequests for
// /cdn-cgi/image/<params>/<key> resolve to the same key as /<key>.
func SourceKeyFromPath(path string) string {
	key := strings.TrimPrefix(path, "/")

	if rest, ok := strings.CutPrefix(key, "cdn-cgi/image/"); ok {
		// Drop the parameter segment, keep the key.
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			key = rest[i+1:]
		} else {
			key = ""
		}
	}

	return key
}

// WithFallbackOrigin returns a copy of the request carrying the configured
// fallback origin. The receiver is not modified.
func (r *Request) WithFallbackOrigin(origin string) *Request {
	out := *r
	out.FallbackOrigin = origin
	return &out
}
