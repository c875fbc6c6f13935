package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	cachebbolt "github.com/yinruiqing/granola-lite-sub000/internal/cache/bbolt"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
	"github.com/yinruiqing/granola-lite-sub000/internal/core"
)

type fakeFetcher struct {
	err       error
	responses map[string]cache.Snapshot
}

func (f *fakeFetcher) Fetch(_ context.Context, req classify.Request) (cache.Snapshot, error) {
	if f.err != nil {
		return cache.Snapshot{}, f.err
	}
	if snap, ok := f.responses[req.URL]; ok {
		return snap.Clone(), nil
	}
	return cache.Snapshot{Status: 200, Body: []byte("ok")}, nil
}

func newTestHandler(t *testing.T, fetcher core.Fetcher) (http.Handler, *core.Core) {
	t.Helper()
	store, err := cachebbolt.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c, err := core.New(core.Config{Tag: "v1", Store: store, Fetcher: fetcher})
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	return NewHandler(c), c
}

func TestProxyServesOriginResponse(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeFetcher{
		responses: map[string]cache.Snapshot{
			"/api/meetings": {
				Status: 200,
				Header: http.Header{"Content-Type": {"application/json"}},
				Body:   []byte(`[{"id":"m1"}]`),
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/meetings", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q, want application/json", got)
	}
	if !strings.Contains(rec.Body.String(), "m1") {
		t.Fatalf("body = %q, want origin payload", rec.Body.String())
	}
}

func TestProxyOfflineAPIReturnsJSONSubstitute(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeFetcher{err: errors.New("network down")})

	req := httptest.NewRequest(http.MethodGet, "/api/meetings", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload.Error != "Offline" {
		t.Fatalf("error = %q, want Offline", payload.Error)
	}
}

func TestProxyOfflineNavigationReturnsPage(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeFetcher{err: errors.New("network down")})

	req := httptest.NewRequest(http.MethodGet, "/meetings", nil)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 offline page", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<html") {
		t.Fatalf("body is not an html page: %q", rec.Body.String()[:min(len(rec.Body.String()), 80)])
	}
}

func TestControlEndpointAcceptsCommands(t *testing.T) {
	handler, c := newTestHandler(t, &fakeFetcher{})
	ctx := context.Background()

	if err := c.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/_offline/control", strings.NewReader(`{"type":"SKIP_WAITING"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if c.State() != "active" {
		t.Fatalf("state = %q, want active", c.State())
	}
}

func TestSyncEndpointRequiresTag(t *testing.T) {
	handler, _ := newTestHandler(t, &fakeFetcher{})

	req := httptest.NewRequest(http.MethodPost, "/_offline/sync", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	handler, c := newTestHandler(t, &fakeFetcher{})
	ctx := context.Background()

	if err := c.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/_offline/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var status struct {
		Tag        string         `json:"tag"`
		State      string         `json:"state"`
		Namespaces map[string]int `json:"namespaces"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Tag != "v1" || status.State != "waiting" {
		t.Fatalf("status = %+v, want tag v1 state waiting", status)
	}
	if status.Namespaces["granola-static-v1"] == 0 {
		t.Fatalf("namespaces = %v, want precached static entries", status.Namespaces)
	}
}

func TestPushEndpointBroadcastsNotification(t *testing.T) {
	store, err := cachebbolt.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := newRegistryWithRecorder()
	c, err := core.New(core.Config{
		Tag:      "v1",
		Store:    store,
		Fetcher:  &fakeFetcher{},
		Registry: registry.registry,
		Notifier: NewNotifier(registry.registry),
	})
	if err != nil {
		t.Fatalf("new core: %v", err)
	}
	handler := NewHandler(c)

	body := strings.NewReader(`{"title":"Meeting soon","body":"Standup in 5 minutes"}`)
	req := httptest.NewRequest(http.MethodPost, "/_offline/push", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	msgs := registry.instance.messages()
	if len(msgs) != 1 || msgs[0].Type != typeNotificationShow {
		t.Fatalf("messages = %v, want one NOTIFICATION_SHOW", msgs)
	}
	if !strings.Contains(string(msgs[0].Payload), "Meeting soon") {
		t.Fatalf("payload = %s, want notification title", msgs[0].Payload)
	}
}
