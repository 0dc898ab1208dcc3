// Package repository is the hand-written Catalog Store (C2) query layer.
// The teacher repo generates this layer with sqlc from .sql schema files
// that were not part of the retrieval pack (internal/integrations/sonarr
// and /radarr import github.com/mahcks/serra/internal/db/repository but
// no such package or schema exists anywhere under the example tree), so
// these queries are written directly against database/sql here, styled
// after the teacher's internal/services/sqlite/instance.go wrapper shape
// (a Queries struct built from *sql.DB, one method per access pattern).
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Queries wraps a *sql.DB with the hand-written access methods used by
// every core component.
type Queries struct {
	db *sql.DB
}

// New builds a Queries handle over an already-open, already-migrated DB.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// DB exposes the underlying handle for callers that need a transaction
// spanning several repository calls (e.g. the metadata sync batch, which
// wraps each row in its own SAVEPOINT per §5 "Locking discipline").
func (q *Queries) DB() *sql.DB { return q.db }

func marshalJSON(v interface{}) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	return string(b), nil
}

func unmarshalJSON(s string, v interface{}) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// WithSavepoint runs fn inside a named SAVEPOINT on tx, rolling back to
// the savepoint (not the whole transaction) on error so one bad row does
// not abort the batch, per §5 and the row-local-corruption policy in §7.
func WithSavepoint(ctx context.Context, tx *sql.Tx, name string, fn func() error) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("rollback to savepoint %s: %w (original: %v)", name, rbErr, err)
		}
		_, _ = tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}
