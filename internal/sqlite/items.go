package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/rssking/rssking/internal/rssking"
)

const itemNamespace = "-itm"

func (r Repo) Item(ctx context.Context, id string) (rssking.Item, error) {
	const q = `SELECT * FROM items WHERE id = ?;`

	var item rssking.Item
	err := r.db.GetContext(ctx, &item, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return rssking.Item{}, rssking.ErrNotFound
	}
	if err != nil {
		return rssking.Item{}, fmt.Errorf("error fetching item: %s", err)
	}

	return item, nil
}

// ExistingURLs returns every url currently in the items table. The fetcher
// loads this once per run to dedup against prior runs.
func (r Repo) ExistingURLs(ctx context.Context) (map[string]struct{}, error) {
	const q = `SELECT url FROM items;`

	var urls []string
	if err := r.db.SelectContext(ctx, &urls, q); err != nil {
		return nil, fmt.Errorf("error selecting existing urls: %s", err)
	}

	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}

	return set, nil
}

func (r Repo) InsertItems(ctx context.Context, items []rssking.Item) error {
	if len(items) == 0 {
		return nil
	}

	// Create id's for the items; fetched_at is assigned by the database.
	for i := range items {
		items[i].ID = fmt.Sprintf("%s%s", uuid.NewString(), itemNamespace)
	}

	const q = `INSERT INTO items (id, feed_id, title, url, summary, published_at, score, category, source_name)
	VALUES (:id, :feed_id, :title, :url, :summary, :published_at, :score, :category, :source_name)
	ON CONFLICT(url) DO NOTHING;`
	if _, err := r.db.NamedExecContext(ctx, q, items); err != nil {
		return fmt.Errorf("error inserting items: %s", err)
	}

	return nil
}

// UserItems returns recent items from the user's active feeds, highest score
// first. Undated items never match the published_at cutoff, which keeps them
// out of digests.
func (r Repo) UserItems(ctx context.Context, userID string, since time.Time, limit int) ([]rssking.Item, error) {
	query, args, err := sq.Select("items.*").
		From("items").
		Join("feeds ON feeds.id = items.feed_id").
		Where(sq.Eq{"feeds.user_id": userID, "feeds.active": true}).
		Where(sq.GtOrEq{"items.published_at": since}).
		OrderBy("items.score DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}

	var items []rssking.Item
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting user items: %s", err)
	}

	return items, nil
}

func (r Repo) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM items WHERE published_at IS NOT NULL AND published_at < ?;`

	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting old items: %s", err)
	}

	return res.RowsAffected()
}

// DeleteUndatedFetchedBefore covers items the source never dated: once their
// fetch time passes the cutoff they get purged too.
func (r Repo) DeleteUndatedFetchedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM items WHERE published_at IS NULL AND fetched_at < ?;`

	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting undated items: %s", err)
	}

	return res.RowsAffected()
}
