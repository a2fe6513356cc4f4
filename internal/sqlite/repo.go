// Package sqlite is the storage layer, backed by a single sqlite database.
package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/rssking/rssking/internal/rssking"
)

// Ensure Repo implements the full storage surface
var _ rssking.Repository = (*Repo)(nil)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}
