package gateway

import (
	"flag"
	"testing"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	t.Setenv("GRANOLA_LITE_GATEWAY_HTTP_ADDR", "localhost:9090")
	t.Setenv("GRANOLA_LITE_GATEWAY_TAG", "v2")

	cfg, err := ParseConfig(fs, []string{"-origin-url", "http://origin:3000"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:9090" {
		t.Fatalf("http addr = %q, want %q", cfg.HTTPAddr, "localhost:9090")
	}
	if cfg.Tag != "v2" {
		t.Fatalf("tag = %q, want v2", cfg.Tag)
	}
	if cfg.OriginURL != "http://origin:3000" {
		t.Fatalf("origin url = %q, want flag override", cfg.OriginURL)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8080" {
		t.Fatalf("http addr = %q, want %q", cfg.HTTPAddr, "localhost:8080")
	}
	if cfg.CacheDBPath != "data/cache.db" {
		t.Fatalf("cache db path = %q, want %q", cfg.CacheDBPath, "data/cache.db")
	}
	if cfg.AppName != "Granola Lite" {
		t.Fatalf("app name = %q, want %q", cfg.AppName, "Granola Lite")
	}
}
