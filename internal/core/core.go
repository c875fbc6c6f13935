// Package core wires the cache lifecycle, the request dispatcher, and the
// control channel into one gateway core with a method per platform hook.
package core

import (
	"context"
	"fmt"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
	"github.com/yinruiqing/granola-lite-sub000/internal/control"
	"github.com/yinruiqing/granola-lite-sub000/internal/journal"
	"github.com/yinruiqing/granola-lite-sub000/internal/lifecycle"
	"github.com/yinruiqing/granola-lite-sub000/internal/manifest"
	"github.com/yinruiqing/granola-lite-sub000/internal/offline"
	"github.com/yinruiqing/granola-lite-sub000/internal/strategy"
)

// Fetcher performs origin fetches for every subsystem.
type Fetcher interface {
	Fetch(ctx context.Context, req classify.Request) (cache.Snapshot, error)
}

// Config wires a core.
type Config struct {
	// Tag identifies the running generation, e.g. "v1".
	Tag      string
	AppName  string
	Manifest manifest.Manifest
	Store    cache.Store
	Fetcher  Fetcher
	// Registry tracks connected instances; one is created when nil.
	Registry *control.Registry
	Notifier control.Notifier
	Opener   control.Opener
	Journal  *journal.Emitter
	// Origin is the application origin seen by connected instances.
	Origin string
	// FeatureKeys name the capabilities listed on the offline page.
	FeatureKeys []string
	// Syncs maps background-sync tags to their procedures.
	Syncs map[string]control.SyncFunc
}

// Core is one generation of the offline gateway. Every intercepted request
// handed to it produces a response.
type Core struct {
	generation *lifecycle.Generation
	dispatcher *strategy.Dispatcher
	channel    *control.Channel
	journal    *journal.Emitter
	store      cache.Store
}

// New builds a core in the Installing state.
func New(cfg Config) (*Core, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Manifest.RootPath == "" {
		cfg.Manifest = manifest.Default()
	}
	if cfg.AppName == "" {
		cfg.AppName = "Granola Lite"
	}
	namespaces := cache.DefaultNamespaces()

	registry := cfg.Registry
	if registry == nil {
		registry = control.NewRegistry()
	}
	generation, err := lifecycle.NewGeneration(lifecycle.Config{
		Tag:        cfg.Tag,
		Namespaces: namespaces,
		Store:      cfg.Store,
		Fetcher:    cfg.Fetcher,
		Precache:   cfg.Manifest.Precache(),
		Claimer:    registry,
		Journal:    cfg.Journal,
	})
	if err != nil {
		return nil, fmt.Errorf("lifecycle: %w", err)
	}

	dispatcher, err := strategy.NewDispatcher(strategy.Config{
		Rules:      cfg.Manifest.Rules(),
		Namespaces: namespaces,
		Store:      cfg.Store,
		Fetcher:    cfg.Fetcher,
		Responder:  offline.NewResponder(cfg.AppName, cfg.FeatureKeys),
		Journal:    cfg.Journal,
		RootPath:   cfg.Manifest.RootPath,
	})
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}

	channel, err := control.NewChannel(control.Config{
		Namespaces: namespaces,
		Store:      cfg.Store,
		Fetcher:    cfg.Fetcher,
		Activator:  generation,
		Registry:   registry,
		Notifier:   cfg.Notifier,
		Opener:     cfg.Opener,
		Journal:    cfg.Journal,
		Origin:     cfg.Origin,
		RootPath:   cfg.Manifest.RootPath,
		Syncs:      cfg.Syncs,
	})
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}

	return &Core{
		generation: generation,
		dispatcher: dispatcher,
		channel:    channel,
		journal:    cfg.Journal,
		store:      cfg.Store,
	}, nil
}

// Install pre-populates the static namespace and moves the generation to
// Waiting.
func (c *Core) Install(ctx context.Context) error {
	return c.generation.Install(ctx)
}

// Activate prunes stale namespaces, claims connected instances, and moves the
// generation to Active.
func (c *Core) Activate(ctx context.Context) error {
	return c.generation.Activate(ctx)
}

// State reports the generation's lifecycle state.
func (c *Core) State() lifecycle.State {
	return c.generation.State()
}

// Tag reports the generation identifier.
func (c *Core) Tag() string {
	return c.generation.Tag()
}

// HandleRequest classifies and serves one intercepted request. It always
// returns a servable result.
func (c *Core) HandleRequest(ctx context.Context, req classify.Request) strategy.Result {
	return c.dispatcher.Dispatch(ctx, req)
}

// HandleCommand executes one raw control message. Unknown or malformed
// messages are ignored.
func (c *Core) HandleCommand(ctx context.Context, raw []byte) {
	c.channel.HandleCommand(ctx, raw)
}

// HandleSync runs the registered procedure for tag and broadcasts the
// outcome.
func (c *Core) HandleSync(ctx context.Context, tag string) {
	c.channel.HandleSync(ctx, tag)
}

// HandlePush displays a notification built from a raw push payload.
func (c *Core) HandlePush(ctx context.Context, raw []byte) {
	c.channel.HandlePush(ctx, raw)
}

// HandleNotificationClick dismisses the notification and focuses or opens an
// application instance.
func (c *Core) HandleNotificationClick(ctx context.Context, tag string, data map[string]any) {
	c.channel.HandleNotificationClick(ctx, tag, data)
}

// NamespaceSizes reports the entry count of each namespace this generation
// owns.
func (c *Core) NamespaceSizes(ctx context.Context) (map[string]int, error) {
	sizes := make(map[string]int)
	for _, namespace := range c.generation.Namespaces().Known() {
		keys, err := c.store.Keys(ctx, namespace)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", namespace, err)
		}
		sizes[namespace] = len(keys)
	}
	return sizes, nil
}

// Registry exposes the connected-instance registry for transports.
func (c *Core) Registry() *control.Registry {
	return c.channel.Registry()
}

// Journal exposes the event journal, possibly nil.
func (c *Core) Journal() *journal.Emitter {
	return c.journal
}
