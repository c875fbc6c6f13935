// Package cache defines the namespace cache contract for the offline gateway.
package cache

import (
	"context"
	"errors"
	"net/http"
)

// ErrNotFound indicates the requested entry or namespace does not exist.
var ErrNotFound = errors.New("cache entry not found")

// MaxDynamicEntries bounds the dynamic namespace entry count.
const MaxDynamicEntries = 50

// Purpose describes what a namespace stores.
type Purpose string

const (
	// PurposeStatic marks the namespace holding build assets and app-shell routes.
	PurposeStatic Purpose = "static"
	// PurposeDynamic marks the bounded namespace holding API responses.
	PurposeDynamic Purpose = "dynamic"
	// PurposeLegacy marks the unversioned namespace kept only for pruning.
	PurposeLegacy Purpose = "legacy"
)

// Snapshot is a captured response stored against one request identity.
type Snapshot struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body,omitempty"`
}

// Clone returns a deep copy so callers can mutate headers and body freely.
func (s Snapshot) Clone() Snapshot {
	clone := Snapshot{Status: s.Status}
	if s.Header != nil {
		clone.Header = make(http.Header, len(s.Header))
		for name, values := range s.Header {
			clone.Header[name] = append([]string(nil), values...)
		}
	}
	if s.Body != nil {
		clone.Body = append([]byte(nil), s.Body...)
	}
	return clone
}

// Key builds the canonical request identity used as a cache key.
func Key(method, url string) string {
	return method + " " + url
}

// Store is the namespace cache owned by one gateway generation.
//
// Keys enumerates entries in insertion order; reads never refresh an entry's
// position.
type Store interface {
	Get(ctx context.Context, namespace, key string) (Snapshot, error)
	Put(ctx context.Context, namespace, key string, snapshot Snapshot) error
	Delete(ctx context.Context, namespace, key string) error
	Keys(ctx context.Context, namespace string) ([]string, error)

	EnsureNamespaces(ctx context.Context, names ...string) error
	Namespaces(ctx context.Context) ([]string, error)
	DeleteNamespace(ctx context.Context, namespace string) error

	// Trim evicts oldest-inserted entries until the namespace holds at most
	// max entries, returning the evicted keys.
	Trim(ctx context.Context, namespace string, max int) ([]string, error)
}

// Namespaces names the cache buckets for one gateway generation.
type Namespaces struct {
	Static  string
	Dynamic string
	// Legacy is the pre-versioning name; it is never written, only deleted
	// during activation pruning.
	Legacy string
}

// DefaultNamespaces returns the versioned namespace names for the current generation.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		Static:  "granola-static-v1",
		Dynamic: "granola-dynamic-v1",
		Legacy:  "granola-cache",
	}
}

// Known lists the namespaces this generation owns. The legacy name is
// deliberately absent so activation pruning deletes it.
func (n Namespaces) Known() []string {
	return []string{n.Static, n.Dynamic}
}

// Owns reports whether name belongs to this generation.
func (n Namespaces) Owns(name string) bool {
	return name == n.Static || name == n.Dynamic
}

// PurposeOf reports what a namespace stores. Unrecognized names are treated
// as legacy leftovers.
func (n Namespaces) PurposeOf(name string) Purpose {
	switch name {
	case n.Static:
		return PurposeStatic
	case n.Dynamic:
		return PurposeDynamic
	default:
		return PurposeLegacy
	}
}
