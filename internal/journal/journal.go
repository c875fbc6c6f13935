// Package journal records operational events emitted by the offline gateway.
package journal

import (
	"context"
	"log"
	"time"
)

// Kind groups journal events by subsystem.
type Kind string

const (
	KindLifecycle Kind = "lifecycle"
	KindRequest   Kind = "request"
	KindEviction  Kind = "eviction"
	KindControl   Kind = "control"
	KindSync      Kind = "sync"
	KindPush      Kind = "push"
)

// Event is one recorded gateway occurrence.
type Event struct {
	Kind      Kind
	Detail    string
	Timestamp time.Time
}

// Store persists journal events.
type Store interface {
	AppendEvent(ctx context.Context, evt Event) error
	ListEvents(ctx context.Context, limit int) ([]Event, error)
}

// Emitter records journal events. A nil emitter or nil store is a no-op, and
// persistence failures are logged and swallowed: journaling must never affect
// request serving.
type Emitter struct {
	store Store
	clock func() time.Time
}

// NewEmitter creates a journal emitter backed by store.
func NewEmitter(store Store) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// Emit records one event.
func (e *Emitter) Emit(ctx context.Context, kind Kind, detail string) {
	if e == nil || e.store == nil {
		return
	}
	evt := Event{Kind: kind, Detail: detail}
	if e.clock == nil {
		evt.Timestamp = time.Now().UTC()
	} else {
		evt.Timestamp = e.clock().UTC()
	}
	if err := e.store.AppendEvent(ctx, evt); err != nil {
		log.Printf("journal append (%s): %v", kind, err)
	}
}

// Recent lists the most recent events, newest first. A nil emitter returns no
// events.
func (e *Emitter) Recent(ctx context.Context, limit int) ([]Event, error) {
	if e == nil || e.store == nil {
		return nil, nil
	}
	return e.store.ListEvents(ctx, limit)
}
