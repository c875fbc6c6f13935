package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/yinruiqing/granola-lite-sub000/internal/control"
	"github.com/yinruiqing/granola-lite-sub000/internal/core"
)

// sseInstance is one connected application instance reached over a
// server-sent-events stream. It satisfies control.Instance.
type sseInstance struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	origin  string
}

func (s *sseInstance) Send(_ context.Context, msg control.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return s.write("message", data)
}

func (s *sseInstance) Origin() string {
	return s.origin
}

// Focus asks the instance to bring itself to the foreground.
func (s *sseInstance) Focus(_ context.Context) error {
	return s.write("focus", []byte("{}"))
}

func (s *sseInstance) write(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// handleEvents registers the caller as a connected instance and streams
// control messages to it until the connection closes.
func handleEvents(c *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		header := w.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = r.Host
		}
		instance := &sseInstance{w: w, flusher: flusher, origin: origin}
		remove := c.Registry().Add(instance)
		defer remove()

		<-r.Context().Done()
	}
}
