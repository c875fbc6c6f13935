package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/yinruiqing/granola-lite-sub000/internal/control"
)

// Core → instance notification event types, carried over the event stream.
const (
	typeNotificationShow  = "NOTIFICATION_SHOW"
	typeNotificationClose = "NOTIFICATION_CLOSE"
	typeOpenWindow        = "OPEN_WINDOW"
)

// Notifier displays notifications by broadcasting them to every connected
// instance; the instance shells render them natively.
type Notifier struct {
	registry *control.Registry
}

// NewNotifier builds a broadcast notifier over registry.
func NewNotifier(registry *control.Registry) *Notifier {
	return &Notifier{registry: registry}
}

func (n *Notifier) Show(ctx context.Context, notification control.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	n.registry.Broadcast(ctx, control.Message{Type: typeNotificationShow, Payload: payload})
	return nil
}

func (n *Notifier) Close(ctx context.Context, tag string) error {
	payload, err := json.Marshal(map[string]string{"tag": tag})
	if err != nil {
		return fmt.Errorf("encode close: %w", err)
	}
	n.registry.Broadcast(ctx, control.Message{Type: typeNotificationClose, Payload: payload})
	return nil
}

// Opener asks a connected instance shell to open a new window. With no
// instance connected the request can only be logged.
type Opener struct {
	registry *control.Registry
}

// NewOpener builds a broadcast opener over registry.
func NewOpener(registry *control.Registry) *Opener {
	return &Opener{registry: registry}
}

func (o *Opener) Open(ctx context.Context, url string) error {
	instances := o.registry.List()
	if len(instances) == 0 {
		log.Printf("no instance connected to open %s", url)
		return nil
	}
	payload, err := json.Marshal(map[string]string{"url": url})
	if err != nil {
		return fmt.Errorf("encode open: %w", err)
	}
	return instances[0].Send(ctx, control.Message{Type: typeOpenWindow, Payload: payload})
}
