// Package sqlite wraps database/sql over github.com/mattn/go-sqlite3,
// mirroring the teacher's internal/services/sqlite/instance.go: a small
// Service-shaped struct exposing the raw *sql.DB plus a Queries handle.
// Unlike the teacher (whose Queries are sqlc-generated), this package's
// repository layer is hand-written directly against the schema in §6,
// since no sqlc output was available to carry over.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrelmedia/archivist/internal/db/repository"
)

// Store owns the database handle and the repository built on top of it.
type Store struct {
	db      *sql.DB
	queries *repository.Queries
}

// Open opens (creating if absent) the sqlite file at path, applies
// pragmas for a single-writer task-scheduler workload (WAL + busy
// timeout, since §5 serializes writes within a task but concurrent
// worker-pool reads still happen), and runs pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db, queries: repository.New(db)}, nil
}

func (s *Store) DB() *sql.DB                 { return s.db }
func (s *Store) Query() *repository.Queries  { return s.queries }
func (s *Store) Close() error                { return s.db.Close() }
