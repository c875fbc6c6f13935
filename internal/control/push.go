package control

import (
	"context"
	"encoding/json"
)

// DefaultNotificationTag deduplicates notifications whose payload carries no
// tag.
const DefaultNotificationTag = "granola-notification"

// NotificationAction is one action button on a displayed notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Notification is a parsed push payload ready for platform display.
type Notification struct {
	Title   string               `json:"title"`
	Body    string               `json:"body"`
	Icon    string               `json:"icon,omitempty"`
	Badge   string               `json:"badge,omitempty"`
	Vibrate []int                `json:"vibrate,omitempty"`
	Data    map[string]any       `json:"data,omitempty"`
	Actions []NotificationAction `json:"actions"`
	Tag     string               `json:"tag"`
}

// Notifier requests display and dismissal of system notifications.
type Notifier interface {
	Show(ctx context.Context, notification Notification) error
	Close(ctx context.Context, tag string) error
}

// ParsePush builds a Notification from a raw push payload, defaulting a
// missing action list to empty and a missing dedupe tag to the fixed default.
// A malformed payload yields a generic notification rather than an error.
func ParsePush(raw []byte) Notification {
	notification := Notification{
		Title: "Granola Lite",
		Body:  "You have a new notification.",
	}
	if len(raw) > 0 {
		// Best effort: keep whatever fields parsed before the error.
		_ = json.Unmarshal(raw, &notification)
	}
	if notification.Title == "" {
		notification.Title = "Granola Lite"
	}
	if notification.Actions == nil {
		notification.Actions = []NotificationAction{}
	}
	if notification.Tag == "" {
		notification.Tag = DefaultNotificationTag
	}
	return notification
}
