package sqlite

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/rssking/rssking/internal/rssking"
)

// UsersWithActiveFeeds returns every user owning at least one active feed,
// with their profile when one exists.
func (r Repo) UsersWithActiveFeeds(ctx context.Context) ([]rssking.User, error) {
	const q = `SELECT DISTINCT user_id FROM feeds WHERE active = TRUE ORDER BY user_id;`

	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs, q); err != nil {
		return nil, fmt.Errorf("error selecting users with active feeds: %s", err)
	}
	if len(userIDs) == 0 {
		return []rssking.User{}, nil
	}

	query, args, err := sq.Select("*").From("user_profiles").Where(sq.Eq{"user_id": userIDs}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error constructing sql: %s", err)
	}
	var profiles []rssking.Profile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("error selecting profiles: %s", err)
	}

	profileByID := make(map[string]rssking.Profile, len(profiles))
	for _, p := range profiles {
		profileByID[p.UserID] = p
	}

	users := make([]rssking.User, 0, len(userIDs))
	for _, id := range userIDs {
		users = append(users, rssking.User{
			ID:      id,
			Profile: profileByID[id],
		})
	}

	return users, nil
}

func (r Repo) UpsertProfile(ctx context.Context, profile rssking.Profile) error {
	const q = `INSERT INTO user_profiles (user_id, display_name, interests)
	VALUES (:user_id, :display_name, :interests)
	ON CONFLICT(user_id) DO UPDATE SET display_name = excluded.display_name, interests = excluded.interests;`

	if _, err := r.db.NamedExecContext(ctx, q, profile); err != nil {
		return fmt.Errorf("error upserting profile: %s", err)
	}

	return nil
}

func (r Repo) SetStarred(ctx context.Context, userID, itemID string, starred bool) error {
	const q = `INSERT INTO user_state (user_id, item_id, starred, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(user_id, item_id) DO UPDATE SET starred = excluded.starred, updated_at = CURRENT_TIMESTAMP;`

	if _, err := r.db.ExecContext(ctx, q, userID, itemID, starred); err != nil {
		return fmt.Errorf("error setting starred state: %s", err)
	}

	return nil
}

func (r Repo) StarredTitles(ctx context.Context, userID string, limit int) ([]string, error) {
	const q = `
	SELECT
		items.title
	FROM
		user_state
		INNER JOIN items ON items.id = user_state.item_id
	WHERE
		user_state.user_id = ? AND user_state.starred = TRUE
	ORDER BY
		user_state.updated_at DESC
	LIMIT ?;
	`

	var titles []string
	if err := r.db.SelectContext(ctx, &titles, q, userID, limit); err != nil {
		return nil, fmt.Errorf("error selecting starred titles: %s", err)
	}

	return titles, nil
}
