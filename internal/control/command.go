// Package control handles out-of-band commands, background sync, and push
// notifications for the offline gateway.
package control

import (
	"encoding/json"
	"strings"
)

// Message is the JSON envelope exchanged with the host application.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Host → core command types.
const (
	TypeSkipWaiting = "SKIP_WAITING"
	TypeCacheURLs   = "CACHE_URLS"
	TypeClearCache  = "CLEAR_CACHE"
)

// Core → host message types.
const (
	TypeSyncComplete     = "SYNC_COMPLETE"
	TypeControllerChange = "CONTROLLER_CHANGE"
)

// Command is the validated tagged union of host commands.
type Command interface {
	isCommand()
}

// ForceActivate promotes a waiting generation immediately.
type ForceActivate struct{}

// CacheURLs requests explicit population of the dynamic namespace.
type CacheURLs struct {
	URLs []string
}

// ClearCache deletes one namespace, or every owned namespace when Name is
// empty.
type ClearCache struct {
	Name string
}

func (ForceActivate) isCommand() {}
func (CacheURLs) isCommand()     {}
func (ClearCache) isCommand()    {}

// ParseCommand validates a raw control message. Unknown or malformed commands
// return ok=false and are ignored by the caller; there is no error channel
// back to the sender.
func ParseCommand(raw []byte) (Command, bool) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, false
	}

	switch msg.Type {
	case TypeSkipWaiting:
		return ForceActivate{}, true
	case TypeCacheURLs:
		var payload struct {
			URLs []string `json:"urls"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, false
		}
		urls := make([]string, 0, len(payload.URLs))
		for _, u := range payload.URLs {
			if strings.TrimSpace(u) != "" {
				urls = append(urls, u)
			}
		}
		if len(urls) == 0 {
			return nil, false
		}
		return CacheURLs{URLs: urls}, true
	case TypeClearCache:
		command := ClearCache{}
		if len(msg.Payload) > 0 {
			var payload struct {
				CacheName string `json:"cacheName"`
			}
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				return nil, false
			}
			command.Name = strings.TrimSpace(payload.CacheName)
		}
		return command, true
	default:
		return nil, false
	}
}
