// Fetcher runs one ingestion pass: it pulls every active feed, scores and
// deduplicates the entries, persists the new items, and sweeps out anything
// past the retention window. It is meant to run on a schedule and exit.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"

	"github.com/rssking/rssking/internal/fetch"
	"github.com/rssking/rssking/internal/ingest"
	"github.com/rssking/rssking/internal/logger"
	"github.com/rssking/rssking/internal/migrations"
	"github.com/rssking/rssking/internal/sqlite"
)

type config struct {
	Database string `env:"DATABASE, required"`

	FeedTimeout   time.Duration `env:"FEED_TIMEOUT, default=10s"`
	RetentionDays int           `env:"RETENTION_DAYS, default=30"`
	ChunkSize     int           `env:"CHUNK_SIZE, default=100"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(cfg.LoggerFormat))

	if err := run(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	// Connect to the db
	dbx, err := sqlx.Open("sqlite", fmt.Sprintf("%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000", cfg.Database))
	if err != nil {
		return fmt.Errorf("error opening database: %s", err)
	}
	defer dbx.Close()

	// Retry until the database accepts connections
	if err := retry.Fibonacci(ctx, 1*time.Second, func(ctx context.Context) error {
		if err := dbx.PingContext(ctx); err != nil {
			return retry.RetryableError(err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("error pinging database: %s", err)
	}

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	pipeline := ingest.NewPipeline(
		fetch.NewClient(cfg.FeedTimeout),
		sqlite.New(dbx),
		time.Duration(cfg.RetentionDays)*24*time.Hour,
		cfg.ChunkSize,
	)
	if _, err := pipeline.Run(ctx); err != nil {
		return fmt.Errorf("error running ingestion: %s", err)
	}

	return nil
}
