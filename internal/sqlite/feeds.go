package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"modernc.org/sqlite"

	"github.com/rssking/rssking/internal/rssking"
)

const feedNamespace = "-fd"

func (r Repo) Feed(ctx context.Context, id string) (rssking.Feed, error) {
	const q = `SELECT * FROM feeds WHERE id = ?;`

	var feed rssking.Feed
	err := r.db.GetContext(ctx, &feed, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return rssking.Feed{}, rssking.ErrNotFound
	}
	if err != nil {
		return rssking.Feed{}, fmt.Errorf("error fetching feed: %s", err)
	}

	return feed, nil
}

func (r Repo) UserFeeds(ctx context.Context, userID string) ([]rssking.Feed, error) {
	const q = `SELECT * FROM feeds WHERE user_id = ? ORDER BY created_at, id;`

	var feeds []rssking.Feed
	if err := r.db.SelectContext(ctx, &feeds, q, userID); err != nil {
		return nil, fmt.Errorf("error selecting user feeds: %s", err)
	}

	return feeds, nil
}

// ActiveFeeds retrieves every active feed across all users. The ordering is
// fixed so that the ingestion pipeline considers feeds in the same sequence
// on every run.
func (r Repo) ActiveFeeds(ctx context.Context) ([]rssking.Feed, error) {
	const q = `SELECT * FROM feeds WHERE active = TRUE ORDER BY created_at, id;`

	var feeds []rssking.Feed
	if err := r.db.SelectContext(ctx, &feeds, q); err != nil {
		return nil, fmt.Errorf("error selecting active feeds: %s", err)
	}

	return feeds, nil
}

func (r Repo) InsertFeed(ctx context.Context, feed rssking.Feed) (rssking.Feed, error) {
	const q = `INSERT INTO feeds (id, user_id, name, url, tier, category, max_items, active)
	VALUES (:id, :user_id, :name, :url, :tier, :category, :max_items, :active);`

	feed.ID = fmt.Sprintf("%s%s", uuid.NewString(), feedNamespace)
	if feed.Tier == 0 {
		feed.Tier = rssking.DefaultTier
	}
	if feed.MaxItems == 0 {
		feed.MaxItems = rssking.DefaultMaxItems
	}
	if feed.Category == "" {
		feed.Category = rssking.DefaultCategory
	}

	_, err := r.db.NamedExecContext(ctx, q, feed)
	if sqliteErr := (&sqlite.Error{}); errors.As(err, &sqliteErr) && sqliteErr.Code() == 2067 {
		return rssking.Feed{}, fmt.Errorf("feed already exists: %w", rssking.ErrConflict)
	}
	if err != nil {
		return rssking.Feed{}, fmt.Errorf("error inserting feed: %s", err)
	}

	return r.Feed(ctx, feed.ID)
}

func (r Repo) DeleteFeed(ctx context.Context, id string) error {
	const q = `DELETE FROM feeds WHERE id = ?;`

	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("error deleting feed: %s", err)
	}

	return nil
}
