package cachepolicy

import "fmt"

// BaseCacheTag is always the first tag attached to a cached response.
const BaseCacheTag = "image"

// ControlHeader renders the Cache-Control value for a response status under
// the given policy. An uncacheable policy or a zero TTL for the status class
// renders as no-store; a zero-freshness public entry is indistinguishable
// from uncacheable for every backend this fronts.
func ControlHeader(status int, policy Policy) string {
	ttl := policy.TTL.ForStatus(status)
	if !policy.Cacheability || ttl == 0 {
		return "no-store"
	}
	return fmt.Sprintf("public, max-age=%d", ttl)
}

// BackendParams is the cache-parameter object handed to the edge cache
// alongside the response.
type BackendParams struct {
	CacheEverything  bool     `json:"cache_everything"`
	CacheTTL         int      `json:"cache_ttl"`
	CacheTags        []string `json:"cache_tags,omitempty"`
	ImageCompression string   `json:"image_compression,omitempty"`
	Mirage           bool     `json:"mirage,omitempty"`
	Method           string   `json:"method,omitempty"`
}

// BuildBackendParams constructs the backend cache parameters for a response.
// Cache-everything is always set; the TTL comes from the same status-class
// mapping as ControlHeader (0 when not cacheable); tags are attached only
// when a source id or derivative is supplied.
func BuildBackendParams(status int, policy Policy, sourceID, derivativeName string) BackendParams {
	params := BackendParams{
		CacheEverything:  true,
		ImageCompression: policy.ImageCompression,
		Mirage:           policy.Mirage,
		Method:           policy.Method,
	}

	if policy.Cacheability {
		params.CacheTTL = policy.TTL.ForStatus(status)
	}

	if sourceID != "" || derivativeName != "" {
		params.CacheTags = Tags(sourceID, derivativeName)
	}

	return params
}

// Tags builds the ordered cache tag list: the constant base tag, then
// source:<id>, then derivative:<name>. Order is significant.
func Tags(sourceID, derivativeName string) []string {
	tags := []string{BaseCacheTag}
	if sourceID != "" {
		tags = append(tags, "source:"+sourceID)
	}
	if derivativeName != "" {
		tags = append(tags, "derivative:"+derivativeName)
	}
	return tags
}
