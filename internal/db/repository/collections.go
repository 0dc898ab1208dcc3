package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

const collectionColumns = `id, name, type, definition_json, enabled, emby_collection_id,
	item_type, last_synced_at, in_library_count, missing_count, health_status, generated_media_info_json`

func scanCollection(row rowScanner) (*structures.CollectionDefinition, error) {
	var (
		c                                  structures.CollectionDefinition
		definitionJSON, generatedJSON      string
		embyCollectionID, itemType         sql.NullString
		lastSyncedAt                       sql.NullString
		enabled                            int
	)

	if err := row.Scan(
		&c.ID, &c.Name, &c.Type, &definitionJSON, &enabled, &embyCollectionID,
		&itemType, &lastSyncedAt, &c.InLibraryCount, &c.MissingCount, &c.HealthStatus, &generatedJSON,
	); err != nil {
		return nil, err
	}

	c.Enabled = enabled != 0
	c.EmbyCollectionID = embyCollectionID.String
	c.ItemType = structures.ItemType(itemType.String)
	if lastSyncedAt.Valid && lastSyncedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, lastSyncedAt.String); err == nil {
			c.LastSyncedAt = &t
		}
	}
	_ = unmarshalJSON(generatedJSON, &c.GeneratedMediaInfo)

	if c.Type == structures.CollectionTypeList {
		var ld structures.ListDefinition
		if unmarshalJSON(definitionJSON, &ld) == nil {
			c.ListDefinition = &ld
		}
	} else {
		var fn structures.FilterNode
		if unmarshalJSON(definitionJSON, &fn) == nil {
			c.FilterRoot = &fn
		}
	}

	return &c, nil
}

// ListEnabledCollections returns every enabled collection definition, the
// universe the rebuild task walks (§4.3).
func (q *Queries) ListEnabledCollections(ctx context.Context) ([]*structures.CollectionDefinition, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+collectionColumns+` FROM custom_collections WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*structures.CollectionDefinition
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCollectionBuildResult persists the outcome of a rebuild: the
// reconciled Emby container id, the health counts, and the tmdb_id list
// used for next cycle's source-cleanup diff (§4.3).
func (q *Queries) UpdateCollectionBuildResult(ctx context.Context, c *structures.CollectionDefinition) error {
	generated, err := marshalJSON(c.GeneratedMediaInfo)
	if err != nil {
		return err
	}
	c.LastSyncedAt = timePtr(time.Now().UTC())

	_, err = q.db.ExecContext(ctx, `UPDATE custom_collections SET
		emby_collection_id = ?, item_type = ?, last_synced_at = ?,
		in_library_count = ?, missing_count = ?, health_status = ?, generated_media_info_json = ?
		WHERE id = ?`,
		c.EmbyCollectionID, c.ItemType, c.LastSyncedAt.Format(time.RFC3339),
		c.InLibraryCount, c.MissingCount, c.HealthStatus, generated, c.ID,
	)
	return err
}

func timePtr(t time.Time) *time.Time { return &t }

// UpsertUserCollectionCache writes the per-user visibility cache row
// (§4.3 "Per-user visibility cache").
func (q *Queries) UpsertUserCollectionCache(ctx context.Context, c *structures.UserCollectionCache) error {
	c.LastUpdatedAt = time.Now().UTC()
	visible, err := marshalJSON(c.VisibleEmbyIDs)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO user_collection_cache (user_id, collection_id, visible_emby_ids_json, total_count, last_updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (user_id, collection_id) DO UPDATE SET
			visible_emby_ids_json = excluded.visible_emby_ids_json,
			total_count = excluded.total_count,
			last_updated_at = excluded.last_updated_at
	`, c.UserID, c.CollectionID, visible, c.TotalCount, c.LastUpdatedAt.Format(time.RFC3339))
	return err
}

// GetUserCollectionCache reads one cached visibility row, the only read
// path for "what's in this collection for this user" (§4.3).
func (q *Queries) GetUserCollectionCache(ctx context.Context, userID string, collectionID int64) (*structures.UserCollectionCache, error) {
	var (
		c       structures.UserCollectionCache
		visible string
		updated sql.NullString
	)
	row := q.db.QueryRowContext(ctx, `SELECT user_id, collection_id, visible_emby_ids_json, total_count, last_updated_at
		FROM user_collection_cache WHERE user_id = ? AND collection_id = ?`, userID, collectionID)
	if err := row.Scan(&c.UserID, &c.CollectionID, &visible, &c.TotalCount, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	_ = unmarshalJSON(visible, &c.VisibleEmbyIDs)
	if updated.Valid && updated.String != "" {
		if t, err := time.Parse(time.RFC3339, updated.String); err == nil {
			c.LastUpdatedAt = t
		}
	}
	return &c, nil
}
