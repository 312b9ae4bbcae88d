// Package healinghome parses scripts service flags and launches the service.
package healinghome

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/healinghome/internal/platform/cmd"
	"github.com/louisbranch/healinghome/internal/services/scripts"
)

// Config holds the healinghome command configuration.
type Config struct {
	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:"localhost:8080"`
	DataURL     string        `env:"DATA_URL"`
	DataFile    string        `env:"DATA_FILE"`
	WatchData   bool          `env:"WATCH_DATA" envDefault:"false"`
	SessionIdle time.Duration `env:"SESSION_IDLE" envDefault:"30m"`
	MaxSessions int           `env:"MAX_SESSIONS" envDefault:"10000"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.DataURL, "data-url", cfg.DataURL, "Base URL serving /scripts.json (default: this service)")
	fs.StringVar(&cfg.DataFile, "data-file", cfg.DataFile, "Situations JSON file replacing the built-in data")
	fs.BoolVar(&cfg.WatchData, "watch-data", cfg.WatchData, "Reload the data file when it changes")
	fs.DurationVar(&cfg.SessionIdle, "session-idle", cfg.SessionIdle, "Idle time before a view session is unmounted")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the scripts web server.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceHealingHome, func(ctx context.Context) error {
		server, err := scripts.NewServer(ctx, scripts.Config{
			HTTPAddr:    cfg.HTTPAddr,
			DataURL:     cfg.DataURL,
			DataFile:    cfg.DataFile,
			WatchData:   cfg.WatchData,
			SessionIdle: cfg.SessionIdle,
			MaxSessions: cfg.MaxSessions,
		})
		if err != nil {
			return fmt.Errorf("init scripts server: %w", err)
		}
		defer server.Close()

		if err := server.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve scripts: %w", err)
		}
		return nil
	})
}
