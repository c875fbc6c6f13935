package control

import (
	"context"
	"log"
	"sync"
)

// Instance is an opaque handle to one currently-open application instance.
// The registry never owns or persists instances; they are only message and
// focus targets.
type Instance interface {
	Send(ctx context.Context, msg Message) error
	Origin() string
	Focus(ctx context.Context) error
}

// Opener creates a new application instance navigated to a URL when no
// focusable instance exists.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// Registry tracks connected application instances.
type Registry struct {
	mu        sync.RWMutex
	nextID    int
	instances map[int]Instance
}

// NewRegistry creates an empty instance registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[int]Instance)}
}

// Add registers an instance and returns a function that removes it.
func (r *Registry) Add(instance Instance) (remove func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.instances[id] = instance
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.instances, id)
		r.mu.Unlock()
	}
}

// List enumerates the currently connected instances.
func (r *Registry) List() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	instances := make([]Instance, 0, len(r.instances))
	for _, instance := range r.instances {
		instances = append(instances, instance)
	}
	return instances
}

// Broadcast delivers msg to every connected instance. Individual delivery
// failures are logged and skipped.
func (r *Registry) Broadcast(ctx context.Context, msg Message) {
	for _, instance := range r.List() {
		if err := instance.Send(ctx, msg); err != nil {
			log.Printf("broadcast %s: %v", msg.Type, err)
		}
	}
}

// ClaimAll notifies every open instance that a new generation controls it,
// without waiting for the instance's next reload. It returns the number of
// instances claimed.
func (r *Registry) ClaimAll(ctx context.Context) int {
	instances := r.List()
	for _, instance := range instances {
		if err := instance.Send(ctx, Message{Type: TypeControllerChange}); err != nil {
			log.Printf("claim instance: %v", err)
		}
	}
	return len(instances)
}
