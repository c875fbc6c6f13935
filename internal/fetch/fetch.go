// Package fetch performs network fetches against the application origin.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	"github.com/yinruiqing/granola-lite-sub000/internal/classify"
)

// Origin fetches intercepted requests from the upstream application origin.
//
// The client carries no timeout: a slow-but-eventually-successful fetch is
// awaited to completion or rejection, never cancelled by this layer.
type Origin struct {
	baseURL *url.URL
	client  *http.Client
}

// NewOrigin creates an origin fetcher for baseURL.
func NewOrigin(baseURL string) (*Origin, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("origin base url is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse origin base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("origin base url must be absolute: %s", baseURL)
	}
	return &Origin{baseURL: parsed, client: &http.Client{}}, nil
}

// Fetch performs the request against the origin and captures the response.
func (o *Origin) Fetch(ctx context.Context, req classify.Request) (cache.Snapshot, error) {
	if o == nil || o.client == nil {
		return cache.Snapshot{}, fmt.Errorf("origin fetcher is not configured")
	}

	target := *o.baseURL
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return cache.Snapshot{}, fmt.Errorf("parse request url: %w", err)
	}
	target.Path = parsed.Path
	if target.Path == "" {
		target.Path = "/"
	}
	target.RawQuery = parsed.RawQuery

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return cache.Snapshot{}, fmt.Errorf("build origin request: %w", err)
	}
	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return cache.Snapshot{}, fmt.Errorf("fetch %s: %w", target.Path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return cache.Snapshot{}, fmt.Errorf("read origin response: %w", err)
	}

	return cache.Snapshot{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   payload,
	}, nil
}
