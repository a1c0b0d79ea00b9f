// Package store persists generated content in PostgreSQL and keeps
// unsaved drafts in Redis.
package store

import (
	"database/sql"
	"errors"

	"edu-content-workers/internal/common/database"
)

// ErrNotFound is returned when a row or draft does not exist.
var ErrNotFound = errors.New("store: not found")

// Store wraps the PostgreSQL tables written by the workers.
type Store struct {
	pg *database.PostgresClient
}

func New(pg *database.PostgresClient) *Store {
	return &Store{pg: pg}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
