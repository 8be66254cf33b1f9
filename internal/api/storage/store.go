// Package storage is the persistence layer. All mutation of jobs,
// deliverables, transactions, messages, reviews, and profiles passes
// through here; lifecycle-sensitive writes are typed conditional
// updates keyed on the expected prior status, never free-form writes.
package storage

import (
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// List pagination bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Store wraps the shared sqlx pool.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store.
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// ClampLimit normalizes a caller-supplied page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
