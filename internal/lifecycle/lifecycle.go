// Package lifecycle drives the install and activation state machine for one
// gateway generation.
package lifecycle

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
	"github.com/yinruiqing/granola-lite-sub000/internal/journal"
)

// State is one phase of a generation's life.
type State string

const (
	StateInstalling State = "installing"
	StateWaiting    State = "waiting"
	StateActivating State = "activating"
	StateActive     State = "active"
	// StateRedundant is terminal: reached from Installing on failure or from
	// Active when superseded.
	StateRedundant State = "redundant"
)

// Fetcher performs install-time pre-population fetches.
type Fetcher interface {
	Fetch(ctx context.Context, req classify.Request) (cache.Snapshot, error)
}

// Claimer marks this generation as controller of already-open application
// instances without waiting for their next reload.
type Claimer interface {
	ClaimAll(ctx context.Context) int
}

// Config wires a generation.
type Config struct {
	// Tag identifies this generation, e.g. "v1".
	Tag        string
	Namespaces cache.Namespaces
	Store      cache.Store
	Fetcher    Fetcher
	// Precache lists the static-asset manifest paths fetched during install.
	Precache []string
	Claimer  Claimer
	Journal  *journal.Emitter
}

// Generation is one version of the gateway core plus its namespace names.
type Generation struct {
	mu sync.Mutex

	tag        string
	state      State
	namespaces cache.Namespaces
	store      cache.Store
	fetcher    Fetcher
	precache   []string
	claimer    Claimer
	journal    *journal.Emitter
}

// NewGeneration creates a generation in the Installing state.
func NewGeneration(cfg Config) (*Generation, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if cfg.Tag == "" {
		cfg.Tag = "v1"
	}
	if cfg.Namespaces == (cache.Namespaces{}) {
		cfg.Namespaces = cache.DefaultNamespaces()
	}
	return &Generation{
		tag:        cfg.Tag,
		state:      StateInstalling,
		namespaces: cfg.Namespaces,
		store:      cfg.Store,
		fetcher:    cfg.Fetcher,
		precache:   cfg.Precache,
		claimer:    cfg.Claimer,
		journal:    cfg.Journal,
	}, nil
}

// Tag returns the generation identifier.
func (g *Generation) Tag() string {
	return g.tag
}

// Namespaces returns the cache names this generation owns.
func (g *Generation) Namespaces() cache.Namespaces {
	return g.namespaces
}

// State returns the current lifecycle state.
func (g *Generation) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Install pre-populates the static namespace from the asset manifest and
// blocks until every path has been attempted. A fetch failure for an
// individual path is logged and skipped; a store failure discards the
// generation (Redundant) so the previously active generation keeps serving.
func (g *Generation) Install(ctx context.Context) error {
	if err := g.transition(StateInstalling, StateInstalling); err != nil {
		return err
	}

	if err := g.precachePaths(ctx); err != nil {
		g.setState(StateRedundant)
		g.journal.Emit(ctx, journal.KindLifecycle, fmt.Sprintf("generation %s install failed: %v", g.tag, err))
		return fmt.Errorf("install generation %s: %w", g.tag, err)
	}

	g.setState(StateWaiting)
	g.journal.Emit(ctx, journal.KindLifecycle, fmt.Sprintf("generation %s installed, waiting", g.tag))
	return nil
}

// Activate prunes superseded namespaces and claims every open instance, then
// marks the generation Active. It blocks until both steps fully resolve.
func (g *Generation) Activate(ctx context.Context) error {
	if err := g.transition(StateWaiting, StateActivating); err != nil {
		return err
	}

	if err := g.prune(ctx); err != nil {
		// Pruning is cleanup of dead data; a failure must not block takeover.
		log.Printf("prune namespaces for generation %s: %v", g.tag, err)
	}

	claimed := 0
	if g.claimer != nil {
		claimed = g.claimer.ClaimAll(ctx)
	}

	g.setState(StateActive)
	g.journal.Emit(ctx, journal.KindLifecycle, fmt.Sprintf("generation %s active, claimed %d instances", g.tag, claimed))
	return nil
}

// Supersede retires an Active generation once a newer one activates.
func (g *Generation) Supersede() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateActive {
		g.state = StateRedundant
	}
}

func (g *Generation) precachePaths(ctx context.Context) error {
	if err := g.store.EnsureNamespaces(ctx, g.namespaces.Known()...); err != nil {
		return fmt.Errorf("ensure namespaces: %w", err)
	}

	for _, path := range g.precache {
		req := classify.Request{Method: http.MethodGet, URL: path}
		snapshot, err := g.fetcher.Fetch(ctx, req)
		if err != nil {
			log.Printf("precache fetch %s: %v", path, err)
			continue
		}
		key := cache.Key(http.MethodGet, req.Path())
		if err := g.store.Put(ctx, g.namespaces.Static, key, snapshot); err != nil {
			return fmt.Errorf("precache store %s: %w", path, err)
		}
	}
	return nil
}

// prune deletes every on-disk namespace whose name is not in this
// generation's known-name set, including the legacy unversioned name.
func (g *Generation) prune(ctx context.Context) error {
	names, err := g.store.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("enumerate namespaces: %w", err)
	}
	for _, name := range names {
		if g.namespaces.Owns(name) {
			continue
		}
		if err := g.store.DeleteNamespace(ctx, name); err != nil {
			return fmt.Errorf("delete namespace %s: %w", name, err)
		}
		g.journal.Emit(ctx, journal.KindLifecycle, fmt.Sprintf("generation %s pruned namespace %s", g.tag, name))
	}
	return nil
}

func (g *Generation) transition(from, to State) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != from {
		return fmt.Errorf("generation %s is %s, expected %s", g.tag, g.state, from)
	}
	g.state = to
	return nil
}

func (g *Generation) setState(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
}
