// Package digest generates the per-user daily digest: it gathers each
// user's recent ranked items, asks the summarizer for an overview and picks,
// validates the answer, and persists the result.
package digest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rssking/rssking/internal/rssking"
)

const (
	DefaultWindowHours = 24
	DefaultMaxPicks    = 5

	// Cap on how many articles one prompt may carry.
	DefaultMaxArticles = 200

	starredLimit = 30
)

type (
	// Summarizer produces the raw structured response for a prompt. The
	// output is untrusted until validated.
	Summarizer interface {
		Summarize(ctx context.Context, prompt string) ([]byte, error)
	}

	// Store is the slice of the repository the digest run needs.
	Store interface {
		UsersWithActiveFeeds(ctx context.Context) ([]rssking.User, error)
		UserItems(ctx context.Context, userID string, since time.Time, limit int) ([]rssking.Item, error)
		StarredTitles(ctx context.Context, userID string, limit int) ([]string, error)
		InsertDigest(ctx context.Context, digest rssking.Digest) (rssking.Digest, error)
	}

	// Runner walks all users sequentially. A failure for one user is logged
	// and the run moves on to the next.
	Runner struct {
		store       Store
		summarizer  Summarizer
		windowHours int
		maxPicks    int
		maxArticles int
		now         func() time.Time
	}
)

func NewRunner(store Store, summarizer Summarizer, windowHours, maxPicks, maxArticles int) *Runner {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}
	if maxPicks <= 0 {
		maxPicks = DefaultMaxPicks
	}
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}

	return &Runner{
		store:       store,
		summarizer:  summarizer,
		windowHours: windowHours,
		maxPicks:    maxPicks,
		maxArticles: maxArticles,
		now:         time.Now,
	}
}

// The shape we expect back from the summarizer. Picks stay raw until the
// validator has looked at each one.
type summaryResponse struct {
	Overview string          `json:"overview"`
	Picks    json.RawMessage `json:"picks"`
}

// Run generates a digest for every user with at least one active feed.
func (r *Runner) Run(ctx context.Context) error {
	users, err := r.store.UsersWithActiveFeeds(ctx)
	if err != nil {
		return fmt.Errorf("error loading users: %w", err)
	}
	slog.Info("generating digests", "users", len(users))

	written := 0
	for _, user := range users {
		if r.runUser(ctx, user) {
			written++
		}
	}

	slog.Info("digest run complete", "users", len(users), "digests_written", written)

	return nil
}

// runUser handles one user end to end and reports whether a digest was
// written.
func (r *Runner) runUser(ctx context.Context, user rssking.User) bool {
	name := user.Profile.DisplayName
	if name == "" {
		name = user.ID
	}

	now := r.now().UTC()
	since := now.Add(-time.Duration(r.windowHours) * time.Hour)

	items, err := r.store.UserItems(ctx, user.ID, since, r.maxArticles)
	if err != nil {
		slog.Warn("error loading items, skipping user", "user", name, "error", err)
		return false
	}
	if len(items) == 0 {
		slog.Info("no recent items, skipping user", "user", name)
		return false
	}

	starred, err := r.store.StarredTitles(ctx, user.ID, starredLimit)
	if err != nil {
		slog.Warn("error loading starred titles, continuing without", "user", name, "error", err)
		starred = nil
	}

	slog.Info("summarizing", "user", name, "articles", len(items), "starred", len(starred))

	prompt := buildPrompt(items, user.Profile, starred, r.windowHours, r.maxPicks)
	raw, err := r.summarizer.Summarize(ctx, prompt)
	if err != nil {
		slog.Warn("summarizer call failed, skipping user", "user", name, "error", err)
		return false
	}

	var resp summaryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Warn("summarizer returned invalid json, skipping user", "user", name, "error", err)
		return false
	}

	// A digest with an overview and zero surviving picks is still worth
	// storing.
	digest := rssking.Digest{
		UserID:          user.ID,
		Overview:        resp.Overview,
		Picks:           ValidatePicks(items, resp.Picks),
		TimeWindowHours: r.windowHours,
		GeneratedAt:     now,
	}
	if _, err := r.store.InsertDigest(ctx, digest); err != nil {
		slog.Warn("error writing digest", "user", name, "error", err)
		return false
	}

	slog.Info("digest written", "user", name, "picks", len(digest.Picks))

	return true
}
