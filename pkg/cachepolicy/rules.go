package cachepolicy

import (
	"path"
	"strings"
)

// URLRule is one pattern-matched configuration scope. Multiple rules may
// match one URL; specificity is the length of the pattern string and the
// longest pattern wins. The tie-break is intentionally simple rather than
// semantic.
type URLRule struct {
	// Pattern is an uncompiled regular expression matched against the
	// full request URL.
	Pattern string `yaml:"pattern" json:"pattern"`

	// Override carries the rule's partial policy.
	Override Override `yaml:"override" json:"override"`

	// ContentTypes maps a MIME type to a further override applied when
	// the URL's file extension resolves to that type.
	ContentTypes map[string]Override `yaml:"content_types,omitempty" json:"content_types,omitempty"`
}

// extensionMIME maps known image file extensions to MIME types for
// content-type override lookup. Capability heuristics beyond this table are
// supplied by external collaborators.
var extensionMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// MIMEForURL resolves the MIME type of a URL by file extension.
// Returns "" when the extension is unknown.
func MIMEForURL(rawURL string) string {
	// Strip query/fragment before looking at the extension.
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return extensionMIME[strings.ToLower(path.Ext(u))]
}
