package store

import (
	"database/sql"
)

// Store is the postgres-backed data store collaborator. Methods are grouped
// by aggregate across the files in this package; all of them take a context
// and return wrapped errors in the repository style used throughout.
type Store struct {
	db *sql.DB
}

// New creates a store around an open database handle
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}
