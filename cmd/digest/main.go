// Digest generates the daily digest for every user with an active feed,
// calling Claude once per user and writing the validated result. It is
// meant to run on a schedule and exit.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jmoiron/sqlx"
	"github.com/sethvargo/go-envconfig"
	"github.com/sethvargo/go-retry"
	_ "golang.org/x/crypto/x509roots/fallback"
	_ "modernc.org/sqlite"

	"github.com/rssking/rssking/internal/digest"
	"github.com/rssking/rssking/internal/logger"
	"github.com/rssking/rssking/internal/migrations"
	"github.com/rssking/rssking/internal/sqlite"
)

type config struct {
	Database        string `env:"DATABASE, required"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY, required"`

	TimeWindowHours int `env:"TIME_WINDOW_HOURS, default=24"`
	MaxPicks        int `env:"MAX_PICKS, default=5"`
	MaxArticles     int `env:"MAX_ARTICLES, default=200"`

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

	claudeClient := anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	runner := digest.NewRunner(
		sqlite.New(dbx),
		digest.NewClaudeSummarizer(claudeClient),
		cfg.TimeWindowHours,
		cfg.MaxPicks,
		cfg.MaxArticles,
	)

	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("error running digest generation: %s", err)
	}

	return nil
}
