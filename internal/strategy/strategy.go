// Package strategy maps classified requests to caching strategies and
// executes their fallback chains.
package strategy

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
	"github.com/yinruiqing/granola-lite-sub000/internal/journal"
	"github.com/yinruiqing/granola-lite-sub000/internal/offline"
)

// Fetcher performs network fetches on behalf of strategies. Implementations
// must not attach their own timeout: a slow fetch is awaited to completion or
// rejection.
type Fetcher interface {
	Fetch(ctx context.Context, req classify.Request) (cache.Snapshot, error)
}

// Source names where a served response came from.
type Source string

const (
	SourceStore      Source = "store"
	SourceNetwork    Source = "network"
	SourceSubstitute Source = "substitute"
)

// Result is the outcome of dispatching one request. Every dispatch produces a
// result; no request is ever left without a response.
type Result struct {
	Class    classify.Class
	Source   Source
	Snapshot cache.Snapshot
}

// Config wires a dispatcher.
type Config struct {
	Rules      classify.Rules
	Namespaces cache.Namespaces
	Store      cache.Store
	Fetcher    Fetcher
	Responder  *offline.Responder
	Journal    *journal.Emitter
	// RootPath is the app-shell fallback for navigations, "/" by default.
	RootPath string
}

// Dispatcher routes classified requests to per-class strategies.
type Dispatcher struct {
	rules      classify.Rules
	namespaces cache.Namespaces
	store      cache.Store
	fetcher    Fetcher
	responder  *offline.Responder
	journal    *journal.Emitter
	rootPath   string
}

// NewDispatcher builds a dispatcher from config.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Responder == nil {
		return nil, fmt.Errorf("offline responder is required")
	}
	if cfg.Rules.AssetPrefix == "" {
		cfg.Rules = classify.DefaultRules()
	}
	if cfg.Namespaces == (cache.Namespaces{}) {
		cfg.Namespaces = cache.DefaultNamespaces()
	}
	if cfg.RootPath == "" {
		cfg.RootPath = "/"
	}
	return &Dispatcher{
		rules:      cfg.Rules,
		namespaces: cfg.Namespaces,
		store:      cfg.Store,
		fetcher:    cfg.Fetcher,
		responder:  cfg.Responder,
		journal:    cfg.Journal,
		rootPath:   cfg.RootPath,
	}, nil
}

// Dispatch classifies req, runs its strategy, and returns the response to
// serve.
func (d *Dispatcher) Dispatch(ctx context.Context, req classify.Request) Result {
	class := d.rules.Classify(req)

	var result Result
	switch class {
	case classify.ClassStaticAsset:
		result = d.cacheFirst(ctx, req)
	case classify.ClassAPI:
		result = d.networkFirstWithStore(ctx, req)
	case classify.ClassNavigation:
		result = d.navigation(ctx, req)
	default:
		result = d.networkOnly(ctx, req)
	}
	result.Class = class

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("gateway.request_class", string(class)),
		attribute.String("gateway.response_source", string(result.Source)),
		attribute.Int("gateway.response_status", result.Snapshot.Status),
	)
	return result
}

// cacheFirst serves static assets: store hit wins with zero network calls,
// misses are fetched and written back, and a failed fetch yields a fixed 503.
func (d *Dispatcher) cacheFirst(ctx context.Context, req classify.Request) Result {
	key := cache.Key(req.Method, req.Identity())

	snapshot, err := d.store.Get(ctx, d.namespaces.Static, key)
	if err == nil {
		return Result{Source: SourceStore, Snapshot: snapshot}
	}

	fetched, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		return Result{Source: SourceSubstitute, Snapshot: offline.Unavailable("resource not available")}
	}
	if err := d.store.Put(ctx, d.namespaces.Static, key, fetched.Clone()); err != nil {
		log.Printf("static write-back %s: %v", key, err)
	}
	return Result{Source: SourceNetwork, Snapshot: fetched}
}

// networkFirstWithStore serves API requests: the network response is always
// returned when the fetch resolves, successful statuses are written back with
// eviction, and only a failed fetch engages the store and offline fallback.
func (d *Dispatcher) networkFirstWithStore(ctx context.Context, req classify.Request) Result {
	key := cache.Key(req.Method, req.Identity())

	fetched, err := d.fetcher.Fetch(ctx, req)
	if err == nil {
		if fetched.Status >= 200 && fetched.Status < 300 {
			d.storeDynamic(ctx, key, fetched)
		} else if fetched.Status >= 500 {
			// Resolved server errors bypass the offline fallback on purpose.
			d.journal.Emit(ctx, journal.KindRequest, fmt.Sprintf("api %s passed through status %d", key, fetched.Status))
		}
		return Result{Source: SourceNetwork, Snapshot: fetched}
	}

	snapshot, storeErr := d.store.Get(ctx, d.namespaces.Dynamic, key)
	if storeErr == nil {
		return Result{Source: SourceStore, Snapshot: snapshot}
	}
	return Result{Source: SourceSubstitute, Snapshot: d.responder.Respond(req)}
}

// navigation serves document requests: network first, then the exact path
// from the static store, then the root app shell, then a synthesized offline
// page. Navigation responses are never written back; app-shell coverage comes
// from install-time entries.
func (d *Dispatcher) navigation(ctx context.Context, req classify.Request) Result {
	fetched, err := d.fetcher.Fetch(ctx, req)
	if err == nil {
		return Result{Source: SourceNetwork, Snapshot: fetched}
	}

	exactKey := cache.Key("GET", req.Path())
	if snapshot, err := d.store.Get(ctx, d.namespaces.Static, exactKey); err == nil {
		return Result{Source: SourceStore, Snapshot: snapshot}
	}
	rootKey := cache.Key("GET", d.rootPath)
	if snapshot, err := d.store.Get(ctx, d.namespaces.Static, rootKey); err == nil {
		return Result{Source: SourceStore, Snapshot: snapshot}
	}
	return Result{Source: SourceSubstitute, Snapshot: d.responder.Respond(req)}
}

// networkOnly serves everything else with no caching involved at all.
func (d *Dispatcher) networkOnly(ctx context.Context, req classify.Request) Result {
	fetched, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		return Result{Source: SourceSubstitute, Snapshot: offline.Unavailable("service unavailable")}
	}
	return Result{Source: SourceNetwork, Snapshot: fetched}
}

// storeDynamic writes one entry into the dynamic namespace and enforces the
// entry bound. Failures are logged and swallowed; the in-flight response is
// still delivered.
func (d *Dispatcher) storeDynamic(ctx context.Context, key string, snapshot cache.Snapshot) {
	if err := d.store.Put(ctx, d.namespaces.Dynamic, key, snapshot.Clone()); err != nil {
		log.Printf("dynamic write-back %s: %v", key, err)
		return
	}
	evicted, err := d.store.Trim(ctx, d.namespaces.Dynamic, cache.MaxDynamicEntries)
	if err != nil {
		log.Printf("trim dynamic namespace: %v", err)
		return
	}
	if len(evicted) > 0 {
		d.journal.Emit(ctx, journal.KindEviction, fmt.Sprintf("evicted %d entries from %s", len(evicted), d.namespaces.Dynamic))
	}
}
