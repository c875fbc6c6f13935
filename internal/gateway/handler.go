// Package gateway exposes the offline core over HTTP: a proxy surface for
// intercepted application requests plus control endpoints under /_offline/.
package gateway

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
	"github.com/yinruiqing/granola-lite-sub000/internal/core"
)

// maxControlBody caps control and push payload sizes.
const maxControlBody = 1 << 20

// NewHandler builds the gateway HTTP handler around a core.
func NewHandler(c *core.Core) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /_offline/control", handleControl(c))
	mux.HandleFunc("GET /_offline/events", handleEvents(c))
	mux.HandleFunc("POST /_offline/sync", handleSync(c))
	mux.HandleFunc("POST /_offline/push", handlePush(c))
	mux.HandleFunc("POST /_offline/notification-click", handleNotificationClick(c))
	mux.HandleFunc("GET /_offline/status", handleStatus(c))
	mux.HandleFunc("/", handleProxy(c))
	return mux
}

// handleProxy serves every intercepted application request through the
// dispatcher. The dispatcher guarantees a response even when the origin is
// unreachable.
func handleProxy(c *core.Core) http.HandlerFunc {
	tracer := otel.Tracer("granola-lite/gateway")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "gateway.request",
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.RequestURI()),
			))
		defer span.End()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read request body", http.StatusBadRequest)
			return
		}

		result := c.HandleRequest(ctx, classify.Request{
			Method:         r.Method,
			URL:            r.URL.RequestURI(),
			Header:         r.Header,
			Body:           body,
			NavigationMode: r.Header.Get("Sec-Fetch-Mode") == "navigate",
		})

		span.SetAttributes(
			attribute.String("gateway.source", string(result.Source)),
			attribute.Int("http.status_code", result.Snapshot.Status),
		)

		header := w.Header()
		for name, values := range result.Snapshot.Header {
			header[name] = values
		}
		w.WriteHeader(result.Snapshot.Status)
		if _, err := w.Write(result.Snapshot.Body); err != nil {
			log.Printf("write response for %s %s: %v", r.Method, r.URL.Path, err)
		}
	}
}

// handleControl accepts one raw control message. Unknown and malformed
// messages are accepted and ignored, matching the channel contract.
func handleControl(c *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxControlBody))
		if err != nil {
			http.Error(w, "read control message", http.StatusBadRequest)
			return
		}
		c.HandleCommand(r.Context(), raw)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleSync(c *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Tag string `json:"tag"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxControlBody)).Decode(&payload); err != nil {
			http.Error(w, "parse sync payload", http.StatusBadRequest)
			return
		}
		if payload.Tag == "" {
			http.Error(w, "sync tag is required", http.StatusBadRequest)
			return
		}
		c.HandleSync(r.Context(), payload.Tag)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handlePush(c *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxControlBody))
		if err != nil {
			http.Error(w, "read push payload", http.StatusBadRequest)
			return
		}
		c.HandlePush(r.Context(), raw)
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleNotificationClick(c *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Tag  string         `json:"tag"`
			Data map[string]any `json:"data"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxControlBody)).Decode(&payload); err != nil {
			http.Error(w, "parse click payload", http.StatusBadRequest)
			return
		}
		c.HandleNotificationClick(r.Context(), payload.Tag, payload.Data)
		w.WriteHeader(http.StatusAccepted)
	}
}

// handleStatus reports the generation state and recent journal entries.
func handleStatus(c *core.Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			Tag        string         `json:"tag"`
			State      string         `json:"state"`
			Instances  int            `json:"instances"`
			Namespaces map[string]int `json:"namespaces,omitempty"`
			Events     []any          `json:"events,omitempty"`
		}{
			Tag:       c.Tag(),
			State:     string(c.State()),
			Instances: len(c.Registry().List()),
		}
		sizes, err := c.NamespaceSizes(r.Context())
		if err != nil {
			log.Printf("count namespaces: %v", err)
		} else {
			status.Namespaces = sizes
		}
		if emitter := c.Journal(); emitter != nil {
			events, err := emitter.Recent(r.Context(), 20)
			if err != nil {
				log.Printf("list journal events: %v", err)
			}
			for _, evt := range events {
				status.Events = append(status.Events, evt)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("encode status: %v", err)
		}
	}
}
