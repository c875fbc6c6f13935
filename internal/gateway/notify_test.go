package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yinruiqing/granola-lite-sub000/internal/control"
)

type recorderInstance struct {
	mu   sync.Mutex
	msgs []control.Message
}

func (r *recorderInstance) Send(_ context.Context, msg control.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorderInstance) Origin() string { return "http://localhost" }

func (r *recorderInstance) Focus(context.Context) error { return nil }

func (r *recorderInstance) messages() []control.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]control.Message(nil), r.msgs...)
}

type recorderRegistry struct {
	registry *control.Registry
	instance *recorderInstance
}

func newRegistryWithRecorder() *recorderRegistry {
	registry := control.NewRegistry()
	instance := &recorderInstance{}
	registry.Add(instance)
	return &recorderRegistry{registry: registry, instance: instance}
}

func TestNotifierShowBroadcasts(t *testing.T) {
	r := newRegistryWithRecorder()
	notifier := NewNotifier(r.registry)

	err := notifier.Show(context.Background(), control.Notification{Title: "Granola Lite", Tag: "t1"})
	if err != nil {
		t.Fatalf("Show: %v", err)
	}

	msgs := r.instance.messages()
	if len(msgs) != 1 || msgs[0].Type != typeNotificationShow {
		t.Fatalf("messages = %v, want one NOTIFICATION_SHOW", msgs)
	}
}

func TestNotifierCloseCarriesTag(t *testing.T) {
	r := newRegistryWithRecorder()
	notifier := NewNotifier(r.registry)

	if err := notifier.Close(context.Background(), "t1"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	msgs := r.instance.messages()
	if len(msgs) != 1 || msgs[0].Type != typeNotificationClose {
		t.Fatalf("messages = %v, want one NOTIFICATION_CLOSE", msgs)
	}
	if !strings.Contains(string(msgs[0].Payload), "t1") {
		t.Fatalf("payload = %s, want tag t1", msgs[0].Payload)
	}
}

func TestOpenerWithoutInstances(t *testing.T) {
	opener := NewOpener(control.NewRegistry())
	if err := opener.Open(context.Background(), "/meetings"); err != nil {
		t.Fatalf("Open with no instances should not fail: %v", err)
	}
}

func TestOpenerSendsToFirstInstance(t *testing.T) {
	r := newRegistryWithRecorder()
	opener := NewOpener(r.registry)

	if err := opener.Open(context.Background(), "/meetings"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	msgs := r.instance.messages()
	if len(msgs) != 1 || msgs[0].Type != typeOpenWindow {
		t.Fatalf("messages = %v, want one OPEN_WINDOW", msgs)
	}
	if !strings.Contains(string(msgs[0].Payload), "/meetings") {
		t.Fatalf("payload = %s, want target url", msgs[0].Payload)
	}
}

func TestSSEInstanceFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	instance := &sseInstance{w: rec, flusher: rec, origin: "http://localhost"}

	err := instance.Send(context.Background(), control.Message{Type: control.TypeControllerChange})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := instance.Focus(context.Background()); err != nil {
		t.Fatalf("Focus: %v", err)
	}

	out := rec.Body.String()
	if !strings.Contains(out, "event: message\ndata: {\"type\":\"CONTROLLER_CHANGE\"}\n\n") {
		t.Fatalf("stream = %q, want controller-change frame", out)
	}
	if !strings.Contains(out, "event: focus\n") {
		t.Fatalf("stream = %q, want focus frame", out)
	}
}
