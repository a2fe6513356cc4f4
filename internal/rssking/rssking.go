// Package rssking holds the domain types shared between the fetcher, the
// digest generator, and the management API.
package rssking

import (
	"context"
	"errors"
	"time"
)

var (
	ErrConflict = errors.New("resource already exists")
	ErrNotFound = errors.New("resource not found")
)

// Tier weights and limits that feed configuration falls back to when a
// row carries a zero value.
const (
	DefaultTier     = 2
	DefaultMaxItems = 10
	DefaultCategory = "Uncategorized"
)

type (
	// Feed is a single RSS/Atom source owned by a user. The ingestion
	// pipeline treats feeds as read-only; they are managed through the API.
	Feed struct {
		ID        string    `db:"id"`
		UserID    string    `db:"user_id"`
		Name      string    `db:"name"`
		URL       string    `db:"url"`
		Tier      int       `db:"tier"`
		Category  string    `db:"category"`
		MaxItems  int       `db:"max_items"`
		Active    bool      `db:"active"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	// Candidate is an in-memory feed entry that has been normalized but not
	// yet scored or persisted. It only lives for the duration of one
	// ingestion run.
	Candidate struct {
		Feed        Feed
		URL         string
		Title       string
		Summary     string
		Tags        []string
		PublishedAt *time.Time // nil when the source gave no parseable date
	}

	// Item is a persisted article. The url is unique across the whole store
	// and acts as the dedup key; rows are immutable once written, except for
	// deletion by the retention sweep.
	Item struct {
		ID          string     `db:"id"`
		FeedID      string     `db:"feed_id"`
		Title       string     `db:"title"`
		URL         string     `db:"url"`
		Summary     string     `db:"summary"`
		PublishedAt *time.Time `db:"published_at"`
		Score       float64    `db:"score"`
		Category    string     `db:"category"`
		SourceName  string     `db:"source_name"`
		FetchedAt   time.Time  `db:"fetched_at"`
	}

	// Profile carries the free-text signals a user gives us for digest
	// personalization.
	Profile struct {
		UserID      string `db:"user_id"`
		DisplayName string `db:"display_name"`
		Interests   string `db:"interests"`
	}

	// User pairs a user id with their (possibly empty) profile.
	User struct {
		ID      string
		Profile Profile
	}

	// Pick is one summarizer-highlighted item inside a digest.
	Pick struct {
		ItemID string `json:"item_id"`
		Reason string `json:"reason"`
	}

	// Digest is one generated daily digest for a user.
	Digest struct {
		ID              string    `db:"id"`
		UserID          string    `db:"user_id"`
		Overview        string    `db:"overview"`
		Picks           []Pick    `db:"-"`
		TimeWindowHours int       `db:"time_window_hours"`
		GeneratedAt     time.Time `db:"generated_at"`
	}

	// FeedService manages feed configuration.
	FeedService interface {
		Feed(ctx context.Context, id string) (Feed, error)
		UserFeeds(ctx context.Context, userID string) ([]Feed, error)
		// ActiveFeeds returns every active feed across all users in a fixed
		// order, so in-run dedup tie-breaks are deterministic.
		ActiveFeeds(ctx context.Context) ([]Feed, error)
		InsertFeed(ctx context.Context, feed Feed) (Feed, error)
		DeleteFeed(ctx context.Context, id string) error
	}

	// ItemService persists and queries scored articles.
	ItemService interface {
		Item(ctx context.Context, id string) (Item, error)
		// ExistingURLs returns every url already in the store, for cross-run
		// deduplication.
		ExistingURLs(ctx context.Context) (map[string]struct{}, error)
		InsertItems(ctx context.Context, items []Item) error
		// UserItems returns items from the user's active feeds published
		// since the cutoff, highest score first.
		UserItems(ctx context.Context, userID string, since time.Time, limit int) ([]Item, error)
		DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
		DeleteUndatedFetchedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// UserService exposes users and their digest-personalization signals.
	UserService interface {
		// UsersWithActiveFeeds returns every user owning at least one active
		// feed. Users without a profile row come back with an empty profile.
		UsersWithActiveFeeds(ctx context.Context) ([]User, error)
		UpsertProfile(ctx context.Context, profile Profile) error
		// SetStarred records whether a user has starred an item. Starred
		// titles later feed digest personalization.
		SetStarred(ctx context.Context, userID, itemID string, starred bool) error
		// StarredTitles returns the titles of the user's most recently
		// starred items, newest first.
		StarredTitles(ctx context.Context, userID string, limit int) ([]string, error)
	}

	// DigestService persists generated digests.
	DigestService interface {
		InsertDigest(ctx context.Context, digest Digest) (Digest, error)
		LatestDigest(ctx context.Context, userID string) (Digest, error)
	}

	// Repository is the full storage surface.
	Repository interface {
		FeedService
		ItemService
		UserService
		DigestService
	}
)
