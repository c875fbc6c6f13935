// Package manifest configures the static-asset manifest and request
// classification patterns for the gateway.
package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
)

// Manifest lists the install-time precache paths and the path patterns used
// to classify intercepted requests.
type Manifest struct {
	// RootPath is the app shell entry, always precached.
	RootPath string `yaml:"rootPath"`
	// Routes are the declared top-level routes precached for navigation
	// fallback.
	Routes []string `yaml:"routes"`
	// ManifestPath is the web manifest location.
	ManifestPath string `yaml:"manifestPath"`
	// AssetPrefix is the build-output path prefix used for classification.
	AssetPrefix string `yaml:"assetPrefix"`
	// AssetPaths are build CSS/JS paths included in the precache list.
	AssetPaths []string `yaml:"assetPaths"`
	// APIPatterns are resource-collection prefixes classified as API
	// requests.
	APIPatterns []string `yaml:"apiPatterns"`
}

// Default returns the manifest for the Granola Lite app.
func Default() Manifest {
	return Manifest{
		RootPath:     "/",
		Routes:       []string{"/meetings", "/notes", "/templates", "/settings"},
		ManifestPath: "/manifest.json",
		AssetPrefix:  "/_next/static/",
		AssetPaths:   []string{"/_next/static/css/", "/_next/static/js/"},
		APIPatterns:  []string{"/meetings", "/notes", "/templates"},
	}
}

// Load reads a YAML manifest from path, filling omitted fields from the
// defaults. An empty path returns the defaults unchanged.
func Load(path string) (Manifest, error) {
	m := Default()
	if strings.TrimSpace(path) == "" {
		return m, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.RootPath == "" {
		m.RootPath = "/"
	}
	return m, nil
}

// Precache returns every path fetched during install, in a stable order.
func (m Manifest) Precache() []string {
	paths := make([]string, 0, 2+len(m.Routes)+len(m.AssetPaths))
	paths = append(paths, m.RootPath)
	paths = append(paths, m.Routes...)
	if m.ManifestPath != "" {
		paths = append(paths, m.ManifestPath)
	}
	paths = append(paths, m.AssetPaths...)
	return paths
}

// Rules derives the classification rules from the manifest.
func (m Manifest) Rules() classify.Rules {
	return classify.Rules{
		AssetPrefix:      m.AssetPrefix,
		ManifestPath:     m.ManifestPath,
		APIPrefix:        "/api/",
		ResourcePrefixes: m.APIPatterns,
	}
}
