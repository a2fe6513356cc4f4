// Package ingest implements the scoring and deduplication pipeline that
// turns raw feed entries into ranked, persisted items.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rssking/rssking/internal/rssking"
)

const (
	// DefaultRetention is how long items stay relevant: older entries are
	// excluded from scoring and eventually purged.
	DefaultRetention = 30 * 24 * time.Hour

	// DefaultChunkSize bounds how many items go into a single insert.
	DefaultChunkSize = 100
)

type (
	// Source produces normalized candidates for one feed.
	Source interface {
		Fetch(ctx context.Context, feed rssking.Feed) ([]rssking.Candidate, error)
	}

	// Store is the slice of the repository the pipeline needs.
	Store interface {
		ActiveFeeds(ctx context.Context) ([]rssking.Feed, error)
		ExistingURLs(ctx context.Context) (map[string]struct{}, error)
		InsertItems(ctx context.Context, items []rssking.Item) error
		DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
		DeleteUndatedFetchedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// Pipeline runs one full ingestion pass. Processing is deliberately
	// sequential: correlation counting needs the complete candidate set
	// before any score can be computed, so fetching finishes before scoring
	// starts.
	Pipeline struct {
		source    Source
		store     Store
		retention time.Duration
		chunkSize int
		now       func() time.Time
	}

	// Stats summarizes what one run did.
	Stats struct {
		FeedsFound     int
		FeedsFailed    int
		Candidates     int
		NewItems       int
		Inserted       int
		InsertFailed   int
		DeletedDated   int64
		DeletedUndated int64
	}
)

func NewPipeline(source Source, store Store, retention time.Duration, chunkSize int) *Pipeline {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Pipeline{
		source:    source,
		store:     store,
		retention: retention,
		chunkSize: chunkSize,
		now:       time.Now,
	}
}

// Run executes one ingestion pass across every active feed.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	feeds, err := p.store.ActiveFeeds(ctx)
	if err != nil {
		return stats, fmt.Errorf("error loading active feeds: %w", err)
	}
	stats.FeedsFound = len(feeds)
	slog.Info("loaded active feeds", "count", len(feeds))

	if len(feeds) == 0 {
		return stats, nil
	}

	existing, err := p.store.ExistingURLs(ctx)
	if err != nil {
		return stats, fmt.Errorf("error loading existing urls: %w", err)
	}
	slog.Info("loaded existing urls", "count", len(existing))

	// First pass: fetch everything so the correlation index covers the
	// whole run before any scoring decision.
	now := p.now().UTC()
	cutoff := now.Add(-p.retention)
	corr := NewCorrelationIndex()

	var candidates []rssking.Candidate
	for _, feed := range feeds {
		fetched, err := p.source.Fetch(ctx, feed)
		if err != nil {
			slog.Warn("feed fetch failed, skipping", "feed", feed.Name, "url", feed.URL, "error", err)
			stats.FeedsFailed++
			continue
		}

		for _, c := range fetched {
			// Entries past the retention window don't score and must not
			// inflate correlation counts for republished links.
			if c.PublishedAt != nil && c.PublishedAt.Before(cutoff) {
				continue
			}

			corr.Add(feed.ID, c.URL)
			candidates = append(candidates, c)
		}
	}
	stats.Candidates = len(candidates)
	slog.Info("collected candidates", "count", len(candidates))

	// Second pass: score, then dedup in feed-then-entry order.
	deduper := NewDeduper(existing)

	var batch []rssking.Item
	for _, c := range candidates {
		if !deduper.Admit(c.URL) {
			continue
		}

		batch = append(batch, rssking.Item{
			FeedID:      c.Feed.ID,
			Title:       c.Title,
			URL:         c.URL,
			Summary:     c.Summary,
			PublishedAt: c.PublishedAt,
			Score:       Score(c, corr.Count(c.URL), p.retention, now),
			Category:    category(c.Feed),
			SourceName:  c.Feed.Name,
		})
	}
	stats.NewItems = len(batch)
	slog.Info("new items to insert", "count", len(batch))

	stats.Inserted, stats.InsertFailed = p.insertChunked(ctx, batch)

	p.sweep(ctx, cutoff, &stats)

	slog.Info("ingestion run complete",
		"feeds", stats.FeedsFound,
		"feeds_failed", stats.FeedsFailed,
		"candidates", stats.Candidates,
		"new_items", stats.NewItems,
		"inserted", stats.Inserted,
		"insert_failed", stats.InsertFailed,
	)

	return stats, nil
}

// insertChunked persists the batch a chunk at a time. A failed chunk is
// logged and skipped; the remaining chunks are still attempted.
func (p *Pipeline) insertChunked(ctx context.Context, batch []rssking.Item) (inserted, failed int) {
	for start := 0; start < len(batch); start += p.chunkSize {
		end := min(start+p.chunkSize, len(batch))

		chunk := batch[start:end]
		if err := p.store.InsertItems(ctx, chunk); err != nil {
			slog.Error("chunk insert failed", "from", start, "size", len(chunk), "error", err)
			failed += len(chunk)
			continue
		}

		inserted += len(chunk)
		slog.Info("inserted chunk", "inserted", inserted, "total", len(batch))
	}

	return inserted, failed
}

// sweep removes items past the retention window. Items the source never
// dated are judged by their fetch time instead. Failures are logged and the
// run still counts as successful.
func (p *Pipeline) sweep(ctx context.Context, cutoff time.Time, stats *Stats) {
	dated, err := p.store.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		slog.Warn("retention sweep failed for dated items", "error", err)
	} else {
		stats.DeletedDated = dated
	}

	undated, err := p.store.DeleteUndatedFetchedBefore(ctx, cutoff)
	if err != nil {
		slog.Warn("retention sweep failed for undated items", "error", err)
	} else {
		stats.DeletedUndated = undated
	}

	slog.Info("retention sweep complete", "deleted_dated", stats.DeletedDated, "deleted_undated", stats.DeletedUndated)
}

func category(feed rssking.Feed) string {
	if feed.Category == "" {
		return rssking.DefaultCategory
	}

	return feed.Category
}
