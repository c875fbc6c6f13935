// Package cachectl inspects and clears the gateway cache store offline.
package cachectl

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/yinruiqing/granola-lite-sub000/internal/cache"
	cachebbolt "github.com/yinruiqing/granola-lite-sub000/internal/cache/bbolt"
)

// Config holds cachectl command configuration.
type Config struct {
	CacheDBPath string `env:"GRANOLA_LITE_GATEWAY_CACHE_DB_PATH"`
	Namespace   string
	Clear       bool
	JSONOutput  bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CacheDBPath == "" {
		cfg.CacheDBPath = filepath.Join("data", "cache.db")
	}

	fs.StringVar(&cfg.CacheDBPath, "cache-db-path", cfg.CacheDBPath, "path to the cache store database")
	fs.StringVar(&cfg.Namespace, "namespace", "", "namespace to list or clear; empty lists all namespaces")
	fs.BoolVar(&cfg.Clear, "clear", false, "delete the named namespace instead of listing it")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "emit JSON instead of plain text")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Clear && cfg.Namespace == "" {
		return Config{}, fmt.Errorf("clear requires a namespace")
	}
	return cfg, nil
}

// Run executes the requested inspection against the cache store.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	store, err := cachebbolt.Open(cfg.CacheDBPath)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer store.Close()

	if cfg.Clear {
		if err := store.DeleteNamespace(ctx, cfg.Namespace); err != nil {
			return fmt.Errorf("clear namespace %s: %w", cfg.Namespace, err)
		}
		fmt.Fprintf(out, "cleared %s\n", cfg.Namespace)
		return nil
	}

	if cfg.Namespace != "" {
		keys, err := store.Keys(ctx, cfg.Namespace)
		if err != nil {
			return fmt.Errorf("list keys in %s: %w", cfg.Namespace, err)
		}
		return report(out, cfg.JSONOutput, cfg.Namespace, keys)
	}

	namespaces, err := store.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	known := cache.DefaultNamespaces()
	labeled := make([]string, 0, len(namespaces))
	for _, namespace := range namespaces {
		labeled = append(labeled, fmt.Sprintf("%s (%s)", namespace, known.PurposeOf(namespace)))
	}
	return report(out, cfg.JSONOutput, "", labeled)
}

func report(out io.Writer, jsonOutput bool, namespace string, entries []string) error {
	if jsonOutput {
		payload := struct {
			Namespace string   `json:"namespace,omitempty"`
			Entries   []string `json:"entries"`
			Count     int      `json:"count"`
		}{Namespace: namespace, Entries: entries, Count: len(entries)}
		if entries == nil {
			payload.Entries = []string{}
		}
		return json.NewEncoder(out).Encode(payload)
	}

	for _, entry := range entries {
		fmt.Fprintln(out, entry)
	}
	fmt.Fprintf(out, "%d entries\n", len(entries))
	return nil
}
