package control

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
	"github.com/yinruiqing/granola-lite-sub000/internal/journal"
)

// Activator promotes a waiting generation, bypassing the default succession
// timing.
type Activator interface {
	Activate(ctx context.Context) error
}

// Fetcher performs fetches for explicit cache population.
type Fetcher interface {
	Fetch(ctx context.Context, req classify.Request) (cache.Snapshot, error)
}

// SyncFunc is a collaborator-defined synchronization procedure. Its internals
// are out of scope; the channel only reports whether it finished cleanly.
type SyncFunc func(ctx context.Context) error

// Config wires a control channel.
type Config struct {
	Namespaces cache.Namespaces
	Store      cache.Store
	Fetcher    Fetcher
	Activator  Activator
	Registry   *Registry
	Notifier   Notifier
	Opener     Opener
	Journal    *journal.Emitter
	// Origin is this application's origin, used to find focusable instances.
	Origin string
	// RootPath is where notification clicks land when the payload names no URL.
	RootPath string
	// Syncs maps background-sync tags to their procedures.
	Syncs map[string]SyncFunc
}

// Channel accepts host commands and dispatches sync and push events.
type Channel struct {
	namespaces cache.Namespaces
	store      cache.Store
	fetcher    Fetcher
	activator  Activator
	registry   *Registry
	notifier   Notifier
	opener     Opener
	journal    *journal.Emitter
	origin     string
	rootPath   string
	syncs      map[string]SyncFunc
}

// NewChannel builds a control channel from config.
func NewChannel(cfg Config) (*Channel, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Namespaces == (cache.Namespaces{}) {
		cfg.Namespaces = cache.DefaultNamespaces()
	}
	if cfg.RootPath == "" {
		cfg.RootPath = "/"
	}
	return &Channel{
		namespaces: cfg.Namespaces,
		store:      cfg.Store,
		fetcher:    cfg.Fetcher,
		activator:  cfg.Activator,
		registry:   cfg.Registry,
		notifier:   cfg.Notifier,
		opener:     cfg.Opener,
		journal:    cfg.Journal,
		origin:     cfg.Origin,
		rootPath:   cfg.RootPath,
		syncs:      cfg.Syncs,
	}, nil
}

// Registry exposes the connected-instance registry.
func (c *Channel) Registry() *Registry {
	return c.registry
}

// HandleCommand validates and executes one raw control message. Unknown or
// malformed commands are ignored, never raised as errors.
func (c *Channel) HandleCommand(ctx context.Context, raw []byte) {
	command, ok := ParseCommand(raw)
	if !ok {
		return
	}

	switch cmd := command.(type) {
	case ForceActivate:
		if c.activator == nil {
			return
		}
		if err := c.activator.Activate(ctx); err != nil {
			log.Printf("force activate: %v", err)
			return
		}
		c.journal.Emit(ctx, journal.KindControl, "force-activated waiting generation")
	case CacheURLs:
		c.cacheURLs(ctx, cmd.URLs)
	case ClearCache:
		c.clearCache(ctx, cmd.Name)
	}
}

// cacheURLs fetches each URL and stores successes into the dynamic namespace.
// A failure on one URL never aborts the remaining batch.
func (c *Channel) cacheURLs(ctx context.Context, urls []string) {
	stored := 0
	for _, u := range urls {
		req := classify.Request{Method: http.MethodGet, URL: u}
		snapshot, err := c.fetcher.Fetch(ctx, req)
		if err != nil {
			log.Printf("cache url %s: %v", u, err)
			continue
		}
		key := cache.Key(http.MethodGet, req.Identity())
		if err := c.store.Put(ctx, c.namespaces.Dynamic, key, snapshot); err != nil {
			log.Printf("cache url store %s: %v", u, err)
			continue
		}
		stored++
		if _, err := c.store.Trim(ctx, c.namespaces.Dynamic, cache.MaxDynamicEntries); err != nil {
			log.Printf("trim after cache url %s: %v", u, err)
		}
	}
	c.journal.Emit(ctx, journal.KindControl, fmt.Sprintf("cached %d of %d requested urls", stored, len(urls)))
}

func (c *Channel) clearCache(ctx context.Context, name string) {
	names := []string{name}
	if name == "" {
		names = c.namespaces.Known()
	}
	for _, namespace := range names {
		if err := c.store.DeleteNamespace(ctx, namespace); err != nil {
			log.Printf("clear cache %s: %v", namespace, err)
		}
	}
	c.journal.Emit(ctx, journal.KindControl, fmt.Sprintf("cleared namespaces %v", names))
}

// HandleSync runs the procedure registered for tag and broadcasts completion
// to every connected instance. A tag with no registered procedure is ignored.
func (c *Channel) HandleSync(ctx context.Context, tag string) {
	sync, ok := c.syncs[tag]
	if !ok {
		return
	}

	err := sync(ctx)
	success := err == nil
	if err != nil {
		log.Printf("sync %s: %v", tag, err)
	}
	c.journal.Emit(ctx, journal.KindSync, fmt.Sprintf("sync %s success=%t", tag, success))

	payload := fmt.Sprintf(`{"success":%t}`, success)
	c.registry.Broadcast(ctx, Message{Type: TypeSyncComplete, Payload: []byte(payload)})
}

// HandlePush parses a push payload and requests display of a system
// notification.
func (c *Channel) HandlePush(ctx context.Context, raw []byte) {
	if c.notifier == nil {
		return
	}
	notification := ParsePush(raw)
	if err := c.notifier.Show(ctx, notification); err != nil {
		log.Printf("show notification %s: %v", notification.Tag, err)
		return
	}
	c.journal.Emit(ctx, journal.KindPush, fmt.Sprintf("displayed notification tag=%s", notification.Tag))
}

// HandleNotificationClick closes the notification, focuses a connected
// same-origin instance when one exists, and otherwise opens a new instance at
// the URL carried in the notification data.
func (c *Channel) HandleNotificationClick(ctx context.Context, tag string, data map[string]any) {
	if c.notifier != nil {
		if tag == "" {
			tag = DefaultNotificationTag
		}
		if err := c.notifier.Close(ctx, tag); err != nil {
			log.Printf("close notification %s: %v", tag, err)
		}
	}

	for _, instance := range c.registry.List() {
		if instance.Origin() == c.origin {
			if err := instance.Focus(ctx); err != nil {
				log.Printf("focus instance: %v", err)
				continue
			}
			return
		}
	}

	if c.opener == nil {
		return
	}
	target := c.rootPath
	if url, ok := data["url"].(string); ok && url != "" {
		target = url
	}
	if err := c.opener.Open(ctx, target); err != nil {
		log.Printf("open instance %s: %v", target, err)
	}
}
