// Package classify labels intercepted requests for strategy dispatch.
package classify

import (
	"net/http"
	"net/url"
	"strings"
)

// Class is the label assigned to one intercepted request.
type Class string

const (
	// ClassStaticAsset covers build assets, files, and the web manifest.
	ClassStaticAsset Class = "static_asset"
	// ClassAPI covers API and resource-collection requests.
	ClassAPI Class = "api"
	// ClassNavigation covers document navigations.
	ClassNavigation Class = "navigation"
	// ClassOther covers everything else.
	ClassOther Class = "other"
)

// Request describes one intercepted request. It is read-only input to
// classification and strategy execution.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// NavigationMode is set when the platform flags the request as a
	// document navigation.
	NavigationMode bool
}

// Path returns the request path with query and fragment stripped.
func (r Request) Path() string {
	parsed, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	if parsed.Path == "" {
		return "/"
	}
	return parsed.Path
}

// Identity returns the path plus query, the URL part of the canonical cache
// key.
func (r Request) Identity() string {
	parsed, err := url.Parse(r.URL)
	if err != nil {
		return r.URL
	}
	identity := parsed.Path
	if identity == "" {
		identity = "/"
	}
	if parsed.RawQuery != "" {
		identity += "?" + parsed.RawQuery
	}
	return identity
}

// Rules configures the ordered classification predicates.
type Rules struct {
	// AssetPrefix is the build-output path prefix.
	AssetPrefix string
	// ManifestPath is the web manifest location.
	ManifestPath string
	// APIPrefix is the canonical API mount point.
	APIPrefix string
	// ResourcePrefixes lists top-level resource collections served like API
	// endpoints.
	ResourcePrefixes []string
}

// DefaultRules returns the classification rules for the Granola Lite app.
func DefaultRules() Rules {
	return Rules{
		AssetPrefix:      "/_next/static/",
		ManifestPath:     "/manifest.json",
		APIPrefix:        "/api/",
		ResourcePrefixes: []string{"/meetings", "/notes", "/templates"},
	}
}

// Classify evaluates the rules top to bottom and returns the first match.
//
// A missing Accept header never matches the text/html clause, so a headerless
// GET without the navigation flag falls through to ClassOther.
func (r Rules) Classify(req Request) Class {
	path := req.Path()

	if strings.HasPrefix(path, r.AssetPrefix) || strings.Contains(path, ".") || path == r.ManifestPath {
		return ClassStaticAsset
	}

	if strings.HasPrefix(path, r.APIPrefix) {
		return ClassAPI
	}
	for _, prefix := range r.ResourcePrefixes {
		if strings.HasPrefix(path, prefix) {
			return ClassAPI
		}
	}

	if req.NavigationMode {
		return ClassNavigation
	}
	if req.Method == http.MethodGet {
		if accept := req.Header.Get("Accept"); accept != "" && strings.Contains(accept, "text/html") {
			return ClassNavigation
		}
	}

	return ClassOther
}
