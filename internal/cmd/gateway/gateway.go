// Package gateway parses gateway command flags and launches the gateway
// runtime.
package gateway

import (
	"context"
	"flag"

	gatewayserver "github.com/yinruiqing/granola-lite-sub000/internal/gateway"
	entrypoint "github.com/yinruiqing/granola-lite-sub000/internal/platform/cmd"
)

// Config holds gateway command configuration.
type Config struct {
	HTTPAddr      string `env:"GRANOLA_LITE_GATEWAY_HTTP_ADDR" envDefault:"localhost:8080"`
	OriginURL     string `env:"GRANOLA_LITE_GATEWAY_ORIGIN_URL" envDefault:"http://localhost:3000"`
	CacheDBPath   string `env:"GRANOLA_LITE_GATEWAY_CACHE_DB_PATH" envDefault:"data/cache.db"`
	JournalDBPath string `env:"GRANOLA_LITE_GATEWAY_JOURNAL_DB_PATH" envDefault:"data/journal.db"`
	ManifestPath  string `env:"GRANOLA_LITE_GATEWAY_MANIFEST_PATH"`
	Tag           string `env:"GRANOLA_LITE_GATEWAY_TAG" envDefault:"v1"`
	AppName       string `env:"GRANOLA_LITE_GATEWAY_APP_NAME" envDefault:"Granola Lite"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.OriginURL, "origin-url", cfg.OriginURL, "Upstream application server URL")
	fs.StringVar(&cfg.CacheDBPath, "cache-db-path", cfg.CacheDBPath, "The cache store database path")
	fs.StringVar(&cfg.JournalDBPath, "journal-db-path", cfg.JournalDBPath, "The event journal database path, empty disables the journal")
	fs.StringVar(&cfg.ManifestPath, "manifest-path", cfg.ManifestPath, "Asset manifest YAML override path")
	fs.StringVar(&cfg.Tag, "tag", cfg.Tag, "Gateway generation tag")
	fs.StringVar(&cfg.AppName, "app-name", cfg.AppName, "Application name shown on offline pages")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the gateway runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGateway, func(ctx context.Context) error {
		return gatewayserver.Run(ctx, gatewayserver.RuntimeConfig{
			HTTPAddr:      cfg.HTTPAddr,
			OriginURL:     cfg.OriginURL,
			CacheDBPath:   cfg.CacheDBPath,
			JournalDBPath: cfg.JournalDBPath,
			ManifestPath:  cfg.ManifestPath,
			Tag:           cfg.Tag,
			AppName:       cfg.AppName,
		})
	})
}
