package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rssking/rssking/internal/rssking"
)

const digestNamespace = "-dgst"

// Picks are stored as a JSON column rather than a join table: they are only
// ever read back as a unit alongside their digest.
type digestRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	Overview        string    `db:"overview"`
	Picks           string    `db:"picks"`
	TimeWindowHours int       `db:"time_window_hours"`
	GeneratedAt     time.Time `db:"generated_at"`
}

func (r Repo) InsertDigest(ctx context.Context, digest rssking.Digest) (rssking.Digest, error) {
	const q = `INSERT INTO digests (id, user_id, overview, picks, time_window_hours, generated_at)
	VALUES (:id, :user_id, :overview, :picks, :time_window_hours, :generated_at);`

	digest.ID = fmt.Sprintf("%s%s", uuid.NewString(), digestNamespace)
	if digest.Picks == nil {
		digest.Picks = []rssking.Pick{}
	}

	picks, err := json.Marshal(digest.Picks)
	if err != nil {
		return rssking.Digest{}, fmt.Errorf("error marshaling picks: %s", err)
	}

	row := digestRow{
		ID:              digest.ID,
		UserID:          digest.UserID,
		Overview:        digest.Overview,
		Picks:           string(picks),
		TimeWindowHours: digest.TimeWindowHours,
		GeneratedAt:     digest.GeneratedAt,
	}
	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		return rssking.Digest{}, fmt.Errorf("error inserting digest: %s", err)
	}

	return digest, nil
}

func (r Repo) LatestDigest(ctx context.Context, userID string) (rssking.Digest, error) {
	const q = `SELECT * FROM digests WHERE user_id = ? ORDER BY generated_at DESC LIMIT 1;`

	var row digestRow
	err := r.db.GetContext(ctx, &row, q, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return rssking.Digest{}, rssking.ErrNotFound
	}
	if err != nil {
		return rssking.Digest{}, fmt.Errorf("error fetching digest: %s", err)
	}

	digest := rssking.Digest{
		ID:              row.ID,
		UserID:          row.UserID,
		Overview:        row.Overview,
		TimeWindowHours: row.TimeWindowHours,
		GeneratedAt:     row.GeneratedAt,
	}
	if err := json.Unmarshal([]byte(row.Picks), &digest.Picks); err != nil {
		return rssking.Digest{}, fmt.Errorf("error unmarshaling picks: %s", err)
	}

	return digest, nil
}
