package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

const watchlistColumns = `item_id, tmdb_id, item_name, item_type, status, paused_until,
	tmdb_status, next_episode_to_air_json, last_episode_to_air_json, missing_info_json,
	is_airing, force_ended, resubscribe_info_json, last_checked_at`

func scanWatchlistEntry(row rowScanner) (*structures.WatchlistEntry, error) {
	var (
		w                                     structures.WatchlistEntry
		pausedUntil, lastCheckedAt            sql.NullString
		nextEpJSON, lastEpJSON, missingJSON    sql.NullString
		resubJSON                              string
		isAiring, forceEnded                   int
	)

	if err := row.Scan(
		&w.ItemID, &w.TmdbID, &w.ItemName, &w.ItemType, &w.Status, &pausedUntil,
		&w.TmdbStatus, &nextEpJSON, &lastEpJSON, &missingJSON,
		&isAiring, &forceEnded, &resubJSON, &lastCheckedAt,
	); err != nil {
		return nil, err
	}

	w.IsAiring = isAiring != 0
	w.ForceEnded = forceEnded != 0

	if pausedUntil.Valid && pausedUntil.String != "" {
		if t, err := time.Parse(time.RFC3339, pausedUntil.String); err == nil {
			w.PausedUntil = &t
		}
	}
	if lastCheckedAt.Valid && lastCheckedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, lastCheckedAt.String); err == nil {
			w.LastCheckedAt = t
		}
	}
	if nextEpJSON.Valid && nextEpJSON.String != "" {
		var ref structures.EpisodeRef
		if unmarshalJSON(nextEpJSON.String, &ref) == nil {
			w.NextEpisodeToAir = &ref
		}
	}
	if lastEpJSON.Valid && lastEpJSON.String != "" {
		var ref structures.EpisodeRef
		if unmarshalJSON(lastEpJSON.String, &ref) == nil {
			w.LastEpisodeToAir = &ref
		}
	}
	if missingJSON.Valid && missingJSON.String != "" {
		var mi structures.MissingInfo
		if unmarshalJSON(missingJSON.String, &mi) == nil {
			w.MissingInfo = &mi
		}
	}

	var resubRaw map[string]time.Time
	if resubJSON != "" {
		_ = unmarshalJSON(resubJSON, &resubRaw)
	}
	if len(resubRaw) > 0 {
		w.ResubscribeInfo = make(map[int]time.Time, len(resubRaw))
		for k, v := range resubRaw {
			if n, err := strconv.Atoi(k); err == nil {
				w.ResubscribeInfo[n] = v
			}
		}
	}

	return &w, nil
}

// GetWatchlistEntry fetches one row by its Media-Server item id.
func (q *Queries) GetWatchlistEntry(ctx context.Context, itemID string) (*structures.WatchlistEntry, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+watchlistColumns+` FROM watchlist WHERE item_id = ?`, itemID)
	w, err := scanWatchlistEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

// ListWatchlistByStatus returns every row with the given status.
func (q *Queries) ListWatchlistByStatus(ctx context.Context, status structures.WatchlistStatus) ([]*structures.WatchlistEntry, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+watchlistColumns+` FROM watchlist WHERE status = ?`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWatchlistRows(rows)
}

// ListWatchlistActive returns every Watching or Paused row, the universe
// the per-series refresh task walks (§4.2).
func (q *Queries) ListWatchlistActive(ctx context.Context) ([]*structures.WatchlistEntry, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+watchlistColumns+` FROM watchlist WHERE status IN (?, ?)`,
		structures.WatchlistWatching, structures.WatchlistPaused)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWatchlistRows(rows)
}

func scanWatchlistRows(rows *sql.Rows) ([]*structures.WatchlistEntry, error) {
	var out []*structures.WatchlistEntry
	for rows.Next() {
		w, err := scanWatchlistEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ResubscribeCandidates implements the §4.4 union of three predicates:
// stuck-tmdb-status-with-missing, 365-day zombie, completed-with-missing.
// Grounded on original_source/watchlist_processor.py, which unions the
// same three conditions before interior-gap analysis.
func (q *Queries) ResubscribeCandidates(ctx context.Context, now time.Time) ([]*structures.WatchlistEntry, error) {
	zombieCutoff := now.AddDate(0, 0, -365).Format(time.RFC3339)
	rows, err := q.db.QueryContext(ctx, `SELECT `+watchlistColumns+` FROM watchlist
		WHERE missing_info_json IS NOT NULL AND missing_info_json != '{}' AND missing_info_json != '' AND (
			(status IN (?, ?) AND tmdb_status IN (?, ?))
			OR (status IN (?, ?) AND last_episode_to_air_json IS NOT NULL AND json_extract(last_episode_to_air_json, '$.air_date') < ?)
			OR (status = ?)
		)`,
		structures.WatchlistWatching, structures.WatchlistPaused,
		structures.TmdbStatusEnded, structures.TmdbStatusCanceled,
		structures.WatchlistWatching, structures.WatchlistPaused, zombieCutoff,
		structures.WatchlistCompleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWatchlistRows(rows)
}

// UpsertWatchlistEntry writes the full row, stamping last_checked_at
// unconditionally per the original_source supplement in SPEC_FULL.md §3.
func (q *Queries) UpsertWatchlistEntry(ctx context.Context, w *structures.WatchlistEntry) error {
	w.LastCheckedAt = time.Now().UTC()

	var pausedUntil interface{}
	if w.PausedUntil != nil {
		pausedUntil = w.PausedUntil.Format(time.RFC3339)
	}
	nextEp, _ := marshalJSON(w.NextEpisodeToAir)
	lastEp, _ := marshalJSON(w.LastEpisodeToAir)
	missing, _ := marshalJSON(w.MissingInfo)

	resubRaw := make(map[string]time.Time, len(w.ResubscribeInfo))
	for season, ts := range w.ResubscribeInfo {
		resubRaw[strconv.Itoa(season)] = ts
	}
	resub, _ := marshalJSON(resubRaw)

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO watchlist (item_id, tmdb_id, item_name, item_type, status, paused_until,
			tmdb_status, next_episode_to_air_json, last_episode_to_air_json, missing_info_json,
			is_airing, force_ended, resubscribe_info_json, last_checked_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (item_id) DO UPDATE SET
			tmdb_id = excluded.tmdb_id,
			item_name = excluded.item_name,
			item_type = excluded.item_type,
			status = excluded.status,
			paused_until = excluded.paused_until,
			tmdb_status = excluded.tmdb_status,
			next_episode_to_air_json = excluded.next_episode_to_air_json,
			last_episode_to_air_json = excluded.last_episode_to_air_json,
			missing_info_json = excluded.missing_info_json,
			is_airing = excluded.is_airing,
			force_ended = excluded.force_ended,
			resubscribe_info_json = excluded.resubscribe_info_json,
			last_checked_at = excluded.last_checked_at
	`,
		w.ItemID, w.TmdbID, w.ItemName, w.ItemType, w.Status, pausedUntil,
		w.TmdbStatus, nextEp, lastEp, missing,
		boolToInt(w.IsAiring), boolToInt(w.ForceEnded), resub, w.LastCheckedAt.Format(time.RFC3339),
	)
	return err
}

// DeleteWatchlistEntry removes a row when its series has disappeared
// from the Media Server (§4.2 step 1, existence check).
func (q *Queries) DeleteWatchlistEntry(ctx context.Context, itemID string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM watchlist WHERE item_id = ?`, itemID)
	return err
}

