package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMediaItem reads one media_metadata row into a structures.MediaItem.
func scanMediaItem(row rowScanner) (*structures.MediaItem, error) {
	var (
		m                                                      structures.MediaItem
		dbID                                                   int64
		releaseYear, seasonNumber, episodeNumber               sql.NullInt64
		releaseDate, officialRating, unifiedRating, parentSeries sql.NullString
		ignoreReason, lastSyncedAt                             sql.NullString
		rating                                                 sql.NullFloat64
		genresJSON, directorsJSON, studiosJSON, countriesJSON    string
		keywordsJSON, embyIDsJSON, childrenJSON, assetsJSON      string
		sourcesJSON                                             string
		inLibrary                                               int
	)

	if err := row.Scan(
		&dbID, &m.TmdbID, &m.ItemType, &m.Title, &m.OriginalTitle,
		&releaseYear, &releaseDate, &rating, &officialRating, &unifiedRating,
		&m.Overview, &m.PosterPath, &m.OriginalLanguage,
		&genresJSON, &directorsJSON, &studiosJSON, &countriesJSON, &keywordsJSON,
		&inLibrary, &embyIDsJSON, &childrenJSON, &assetsJSON,
		&m.SubscriptionStatus, &sourcesJSON, &parentSeries, &seasonNumber, &episodeNumber,
		&ignoreReason, &lastSyncedAt,
	); err != nil {
		return nil, err
	}

	m.InLibrary = inLibrary != 0
	if releaseYear.Valid {
		m.ReleaseYear = int(releaseYear.Int64)
	}
	if releaseDate.Valid && releaseDate.String != "" {
		if t, err := time.Parse("2006-01-02", releaseDate.String); err == nil {
			m.ReleaseDate = &t
		}
	}
	if seasonNumber.Valid {
		n := int(seasonNumber.Int64)
		m.SeasonNumber = &n
	}
	if episodeNumber.Valid {
		n := int(episodeNumber.Int64)
		m.EpisodeNumber = &n
	}
	m.OfficialRating = officialRating.String
	m.UnifiedRating = unifiedRating.String
	m.Rating = rating.Float64
	m.ParentSeriesTmdbID = parentSeries.String
	m.IgnoreReason = ignoreReason.String
	if lastSyncedAt.Valid && lastSyncedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, lastSyncedAt.String); err == nil {
			m.LastSyncedAt = t
		}
	}

	_ = unmarshalJSON(genresJSON, &m.Genres)
	_ = unmarshalJSON(directorsJSON, &m.Directors)
	_ = unmarshalJSON(studiosJSON, &m.Studios)
	_ = unmarshalJSON(countriesJSON, &m.Countries)
	_ = unmarshalJSON(keywordsJSON, &m.Keywords)
	_ = unmarshalJSON(embyIDsJSON, &m.EmbyItemIDs)
	_ = unmarshalJSON(childrenJSON, &m.EmbyChildrenDetails)
	_ = unmarshalJSON(assetsJSON, &m.AssetDetails)
	_ = unmarshalJSON(sourcesJSON, &m.SubscriptionSources)

	return &m, nil
}

const mediaItemColumns = `id, tmdb_id, item_type, title, original_title,
	release_year, release_date, rating, official_rating, unified_rating,
	overview, poster_path, original_language,
	genres_json, directors_json, studios_json, countries_json, keywords_json,
	in_library, emby_item_ids_json, emby_children_details_json, asset_details_json,
	subscription_status, subscription_sources_json, parent_series_tmdb_id, season_number, episode_number,
	ignore_reason, last_synced_at`

// GetMediaItem fetches one row by its (tmdb_id, item_type) composite key.
func (q *Queries) GetMediaItem(ctx context.Context, tmdbID string, itemType structures.ItemType) (*structures.MediaItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+mediaItemColumns+` FROM media_metadata WHERE tmdb_id = ? AND item_type = ?`, tmdbID, itemType)
	item, err := scanMediaItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// ListInLibraryTopLevel returns the keys of every in-library Movie/Series
// row, used to build the emby_set \ db_set diff in §4.5.
func (q *Queries) ListInLibraryTopLevel(ctx context.Context) ([]structures.MediaKey, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT tmdb_id, item_type FROM media_metadata
		WHERE in_library = 1 AND item_type IN (?, ?)`, structures.ItemTypeMovie, structures.ItemTypeSeries)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []structures.MediaKey
	for rows.Next() {
		var k structures.MediaKey
		if err := rows.Scan(&k.TmdbID, &k.ItemType); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// UpsertMediaItemTx performs the §4.5 upsert semantics inside tx: conflict
// target (tmdb_id, item_type), set-union on emby_item_ids_json, cleared
// ignore_reason, refreshed last_synced_at. Callers wrap each row in a
// SAVEPOINT via WithSavepoint so one bad row does not abort the batch.
func (q *Queries) UpsertMediaItemTx(ctx context.Context, tx *sql.Tx, item *structures.MediaItem) error {
	existing, err := q.getMediaItemTx(ctx, tx, item.TmdbID, item.ItemType)
	if err != nil {
		return err
	}
	if existing != nil {
		item.EmbyItemIDs = structures.UnionEmbyItemIDs(existing.EmbyItemIDs, item.EmbyItemIDs)
	}
	item.IgnoreReason = ""
	item.LastSyncedAt = time.Now().UTC()

	genres, _ := marshalJSON(item.Genres)
	directors, _ := marshalJSON(item.Directors)
	studios, _ := marshalJSON(item.Studios)
	countries, _ := marshalJSON(item.Countries)
	keywords, _ := marshalJSON(item.Keywords)
	embyIDs, _ := marshalJSON(item.EmbyItemIDs)
	children, _ := marshalJSON(item.EmbyChildrenDetails)
	assets, _ := marshalJSON(item.AssetDetails)
	sources, _ := marshalJSON(item.SubscriptionSources)

	var releaseDate interface{}
	if item.ReleaseDate != nil {
		releaseDate = item.ReleaseDate.Format("2006-01-02")
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO media_metadata (
			tmdb_id, item_type, title, original_title, release_year, release_date,
			rating, official_rating, unified_rating, overview, poster_path, original_language,
			genres_json, directors_json, studios_json, countries_json, keywords_json,
			in_library, emby_item_ids_json, emby_children_details_json, asset_details_json,
			subscription_status, subscription_sources_json, parent_series_tmdb_id, season_number, episode_number,
			ignore_reason, last_synced_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (tmdb_id, item_type) DO UPDATE SET
			title = excluded.title,
			original_title = excluded.original_title,
			release_year = excluded.release_year,
			release_date = excluded.release_date,
			rating = excluded.rating,
			official_rating = excluded.official_rating,
			unified_rating = excluded.unified_rating,
			overview = excluded.overview,
			poster_path = excluded.poster_path,
			original_language = excluded.original_language,
			genres_json = excluded.genres_json,
			directors_json = excluded.directors_json,
			studios_json = excluded.studios_json,
			countries_json = excluded.countries_json,
			keywords_json = excluded.keywords_json,
			in_library = excluded.in_library,
			emby_item_ids_json = excluded.emby_item_ids_json,
			emby_children_details_json = excluded.emby_children_details_json,
			asset_details_json = excluded.asset_details_json,
			parent_series_tmdb_id = excluded.parent_series_tmdb_id,
			season_number = excluded.season_number,
			episode_number = excluded.episode_number,
			ignore_reason = NULL,
			last_synced_at = excluded.last_synced_at
	`,
		item.TmdbID, item.ItemType, item.Title, item.OriginalTitle, nullInt(item.ReleaseYear), releaseDate,
		nullFloat(item.Rating), item.OfficialRating, item.UnifiedRating, item.Overview, item.PosterPath, item.OriginalLanguage,
		genres, directors, studios, countries, keywords,
		boolToInt(item.InLibrary), embyIDs, children, assets,
		item.SubscriptionStatus, sources, nullString(item.ParentSeriesTmdbID), item.SeasonNumber, item.EpisodeNumber,
		nil, item.LastSyncedAt.Format(time.RFC3339),
	)
	return err
}

// UpsertMediaItem wraps UpsertMediaItemTx in its own single-row
// transaction, for callers outside the metadata sync batch (e.g. the
// Watchlist Engine persisting a refreshed series' children snapshot)
// that don't already hold one.
func (q *Queries) UpsertMediaItem(ctx context.Context, item *structures.MediaItem) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := q.UpsertMediaItemTx(ctx, tx, item); err != nil {
		return err
	}
	return tx.Commit()
}

func (q *Queries) getMediaItemTx(ctx context.Context, tx *sql.Tx, tmdbID string, itemType structures.ItemType) (*structures.MediaItem, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+mediaItemColumns+` FROM media_metadata WHERE tmdb_id = ? AND item_type = ?`, tmdbID, itemType)
	item, err := scanMediaItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

// ListInLibrarySeasons returns every in-library Season row's
// (parent_series_tmdb_id, season_number) pair, the precomputed set the
// Collection Builder's health analysis consults for explicit-season
// Series candidates (§4.3 step 2).
func (q *Queries) ListInLibrarySeasons(ctx context.Context) (map[structures.SeasonKey]bool, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT parent_series_tmdb_id, season_number FROM media_metadata
		WHERE item_type = ? AND in_library = 1`, structures.ItemTypeSeason)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[structures.SeasonKey]bool)
	for rows.Next() {
		var seriesID string
		var season sql.NullInt64
		if err := rows.Scan(&seriesID, &season); err != nil {
			return nil, err
		}
		if !season.Valid {
			continue
		}
		out[structures.SeasonKey{SeriesTmdbID: seriesID, SeasonNumber: int(season.Int64)}] = true
	}
	return out, rows.Err()
}

// ListMediaItemsByType returns every row of one item type, the
// evaluation universe for a filter-type collection's predicate tree
// (§4.3 "Filter-type").
func (q *Queries) ListMediaItemsByType(ctx context.Context, itemType structures.ItemType) ([]*structures.MediaItem, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+mediaItemColumns+` FROM media_metadata WHERE item_type = ?`, itemType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*structures.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// RemoveSubscriptionSource drops one named source from an item's
// subscription_sources_json, used by the Collection Builder's source
// cleanup when a tmdb_id falls out of a list-type collection (§4.3).
func (q *Queries) RemoveSubscriptionSource(ctx context.Context, tmdbID string, itemType structures.ItemType, source string) error {
	item, err := q.GetMediaItem(ctx, tmdbID, itemType)
	if err != nil || item == nil {
		return err
	}
	kept := item.SubscriptionSources[:0]
	for _, s := range item.SubscriptionSources {
		if s != source {
			kept = append(kept, s)
		}
	}
	return q.SetSubscriptionStatus(ctx, tmdbID, itemType, item.SubscriptionStatus, kept)
}

// MarkOutOfLibrary implements the §4.5 to_retire step: rows present in
// the catalog but absent from the current Media Server sweep are flipped
// to in_library=false with their emby_item_ids cleared, along with every
// descendant (Season/Episode rows whose parent_series_tmdb_id matches).
func (q *Queries) MarkOutOfLibrary(ctx context.Context, keys []structures.MediaKey) error {
	for _, k := range keys {
		if _, err := q.db.ExecContext(ctx, `UPDATE media_metadata SET in_library = 0, emby_item_ids_json = '[]'
			WHERE tmdb_id = ? AND item_type = ?`, k.TmdbID, k.ItemType); err != nil {
			return fmt.Errorf("retire %s/%s: %w", k.TmdbID, k.ItemType, err)
		}
		if k.ItemType == structures.ItemTypeSeries {
			if _, err := q.db.ExecContext(ctx, `UPDATE media_metadata SET in_library = 0, emby_item_ids_json = '[]'
				WHERE parent_series_tmdb_id = ?`, k.TmdbID); err != nil {
				return fmt.Errorf("retire descendants of %s: %w", k.TmdbID, err)
			}
		}
	}
	return nil
}

// SetSubscriptionStatus updates the denormalized subscription status and
// source list on one media item (§3, used by the Collection Builder and
// Subscription Controller).
func (q *Queries) SetSubscriptionStatus(ctx context.Context, tmdbID string, itemType structures.ItemType, status structures.SubscriptionStatus, sources []string) error {
	sourcesJSON, err := marshalJSON(sources)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `UPDATE media_metadata SET subscription_status = ?, subscription_sources_json = ?
		WHERE tmdb_id = ? AND item_type = ?`, status, sourcesJSON, tmdbID, itemType)
	return err
}

// EnsurePlaceholderSeries creates a minimal in_library=false Series row
// if one does not already exist, so the Collection Builder's health
// analysis can reference a missing season's parent (§4.3).
func (q *Queries) EnsurePlaceholderSeries(ctx context.Context, tmdbID, title string) error {
	existing, err := q.GetMediaItem(ctx, tmdbID, structures.ItemTypeSeries)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = q.db.ExecContext(ctx, `INSERT INTO media_metadata (tmdb_id, item_type, title, in_library, subscription_status)
		VALUES (?, ?, ?, 0, ?)`, tmdbID, structures.ItemTypeSeries, title, structures.SubscriptionNone)
	return err
}

// ReseedSequence re-seeds SQLite's autoincrement counter for a table to
// max(pk), so the next insert gets max(pk)+1. The teacher's domain targets PostgreSQL SERIAL sequences
// after a bulk import (spec §4.5 "Post-import sequence repair"); this is
// the sqlite-native equivalent, since this catalog is sqlite-backed.
func (q *Queries) ReseedSequence(ctx context.Context, table, pkColumn string) error {
	var maxID sql.NullInt64
	if err := q.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT MAX(%s) FROM %s`, pkColumn, table)).Scan(&maxID); err != nil {
		return err
	}
	if !maxID.Valid {
		return nil
	}
	_, err := q.db.ExecContext(ctx, `UPDATE sqlite_sequence SET seq = ? WHERE name = ?`, maxID.Int64, table)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullFloat(f float64) interface{} {
	if f == 0 {
		return nil
	}
	return f
}

func nullInt(n int) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
