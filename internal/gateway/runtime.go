package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	cachebbolt "github.com/yinruiqing/granola-lite-sub000/internal/cache/bbolt"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
	"github.com/yinruiqing/granola-lite-sub000/internal/control"
	"github.com/yinruiqing/granola-lite-sub000/internal/core"
	"github.com/yinruiqing/granola-lite-sub000/internal/fetch"
	"github.com/yinruiqing/granola-lite-sub000/internal/journal"
	journalsqlite "github.com/yinruiqing/granola-lite-sub000/internal/journal/sqlite"
	"github.com/yinruiqing/granola-lite-sub000/internal/manifest"
)

// SyncMeetingsTag triggers the built-in meeting refresh procedure.
const SyncMeetingsTag = "sync-meetings"

// RuntimeConfig holds gateway runtime dependencies resolved from flags and
// environment.
type RuntimeConfig struct {
	HTTPAddr string
	// OriginURL is the upstream application server.
	OriginURL string
	// CacheDBPath is the bbolt cache store location.
	CacheDBPath string
	// JournalDBPath is the SQLite event journal location; empty disables the
	// journal.
	JournalDBPath string
	// ManifestPath overrides the compiled-in asset manifest; empty keeps the
	// defaults.
	ManifestPath string
	// Tag identifies this gateway generation.
	Tag     string
	AppName string
}

// Run wires the cache store, journal, and core, runs install and activation,
// and serves until the context ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	store, err := cachebbolt.Open(cfg.CacheDBPath)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close cache store: %v", err)
		}
	}()

	var emitter *journal.Emitter
	if cfg.JournalDBPath != "" {
		journalStore, err := journalsqlite.Open(cfg.JournalDBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() {
			if err := journalStore.Close(); err != nil {
				log.Printf("close journal: %v", err)
			}
		}()
		emitter = journal.NewEmitter(journalStore)
	}

	origin, err := fetch.NewOrigin(cfg.OriginURL)
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}

	registry := control.NewRegistry()
	c, err := core.New(core.Config{
		Tag:      cfg.Tag,
		AppName:  cfg.AppName,
		Manifest: m,
		Store:    store,
		Fetcher:  origin,
		Registry: registry,
		Notifier: NewNotifier(registry),
		Opener:   NewOpener(registry),
		Journal:  emitter,
		// Instances report the gateway's own origin, not the upstream's.
		Origin: "http://" + cfg.HTTPAddr,
		Syncs: map[string]control.SyncFunc{
			SyncMeetingsTag: refreshMeetings(origin, store),
		},
	})
	if err != nil {
		return fmt.Errorf("init core: %w", err)
	}

	if err := c.Install(ctx); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	if err := c.Activate(ctx); err != nil {
		return fmt.Errorf("activate: %w", err)
	}

	server, err := NewServer(Config{HTTPAddr: cfg.HTTPAddr, Core: c})
	if err != nil {
		return fmt.Errorf("init gateway server: %w", err)
	}
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve gateway: %w", err)
	}
	return nil
}

// refreshMeetings re-fetches the meeting collection into the dynamic
// namespace so it survives the next offline period.
func refreshMeetings(fetcher core.Fetcher, store cache.Store) control.SyncFunc {
	return func(ctx context.Context) error {
		path := "/api/meetings"
		snapshot, err := fetcher.Fetch(ctx, classify.Request{
			Method: http.MethodGet,
			URL:    path,
			Header: http.Header{"Accept": {"application/json"}},
		})
		if err != nil {
			return fmt.Errorf("refresh %s: %w", path, err)
		}
		if snapshot.Status < 200 || snapshot.Status > 299 {
			return fmt.Errorf("refresh %s: status %d", path, snapshot.Status)
		}

		namespaces := cache.DefaultNamespaces()
		key := cache.Key(http.MethodGet, path)
		if err := store.Put(ctx, namespaces.Dynamic, key, snapshot); err != nil {
			return fmt.Errorf("store %s: %w", path, err)
		}
		if _, err := store.Trim(ctx, namespaces.Dynamic, cache.MaxDynamicEntries); err != nil {
			return fmt.Errorf("trim dynamic namespace: %w", err)
		}
		return nil
	}
}
