package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/db/sqlite"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUpsertAndGetMediaItem(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "603", ItemType: structures.ItemTypeMovie, Title: "The Matrix",
		Genres: []string{"Action"}, InLibrary: true, EmbyItemIDs: []string{"e1"},
	}))

	got, err := q.GetMediaItem(ctx, "603", structures.ItemTypeMovie)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "The Matrix", got.Title)
	assert.ElementsMatch(t, []string{"Action"}, got.Genres)
	assert.True(t, got.InLibrary)

	missing, err := q.GetMediaItem(ctx, "not-there", structures.ItemTypeMovie)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertMediaItemUnionsEmbyIDsOnConflict(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "603", ItemType: structures.ItemTypeMovie, Title: "The Matrix",
		InLibrary: true, EmbyItemIDs: []string{"e1"},
	}))
	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "603", ItemType: structures.ItemTypeMovie, Title: "The Matrix Reloaded",
		InLibrary: true, EmbyItemIDs: []string{"e2"},
	}))

	got, err := q.GetMediaItem(ctx, "603", structures.ItemTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix Reloaded", got.Title)
	assert.ElementsMatch(t, []string{"e1", "e2"}, got.EmbyItemIDs)
}

func TestSetSubscriptionStatusThenRemoveSource(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "27205", ItemType: structures.ItemTypeMovie, Title: "Inception",
	}))
	require.NoError(t, q.SetSubscriptionStatus(ctx, "27205", structures.ItemTypeMovie,
		structures.SubscriptionSubscribed, []string{"watchlist"}))

	got, err := q.GetMediaItem(ctx, "27205", structures.ItemTypeMovie)
	require.NoError(t, err)
	assert.Equal(t, structures.SubscriptionSubscribed, got.SubscriptionStatus)
	assert.Equal(t, []string{"watchlist"}, got.SubscriptionSources)

	require.NoError(t, q.RemoveSubscriptionSource(ctx, "27205", structures.ItemTypeMovie, "watchlist"))
	got, err = q.GetMediaItem(ctx, "27205", structures.ItemTypeMovie)
	require.NoError(t, err)
	assert.Empty(t, got.SubscriptionSources)
}

func TestEnsurePlaceholderSeriesIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.EnsurePlaceholderSeries(ctx, "1399", "Game of Thrones"))
	require.NoError(t, q.EnsurePlaceholderSeries(ctx, "1399", "Game of Thrones"))

	got, err := q.GetMediaItem(ctx, "1399", structures.ItemTypeSeries)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.InLibrary)
	assert.Equal(t, structures.SubscriptionNone, got.SubscriptionStatus)
}

func TestListInLibrarySeasons(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	season := 2
	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "s1", ItemType: structures.ItemTypeSeason, InLibrary: true,
		ParentSeriesTmdbID: "1399", SeasonNumber: &season,
	}))
	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "s2", ItemType: structures.ItemTypeSeason, InLibrary: false,
		ParentSeriesTmdbID: "1399", SeasonNumber: &season,
	}))

	seasons, err := q.ListInLibrarySeasons(ctx)
	require.NoError(t, err)
	assert.True(t, seasons[structures.SeasonKey{SeriesTmdbID: "1399", SeasonNumber: 2}])
	assert.Len(t, seasons, 1)
}

func TestListMediaItemsByType(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{TmdbID: "1", ItemType: structures.ItemTypeMovie}))
	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{TmdbID: "2", ItemType: structures.ItemTypeMovie}))
	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{TmdbID: "3", ItemType: structures.ItemTypeSeries}))

	movies, err := q.ListMediaItemsByType(ctx, structures.ItemTypeMovie)
	require.NoError(t, err)
	assert.Len(t, movies, 2)
}

func TestMarkOutOfLibraryClearsDescendants(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "1399", ItemType: structures.ItemTypeSeries, InLibrary: true, EmbyItemIDs: []string{"e1"},
	}))
	season := 1
	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "s1", ItemType: structures.ItemTypeSeason, InLibrary: true,
		ParentSeriesTmdbID: "1399", SeasonNumber: &season, EmbyItemIDs: []string{"e2"},
	}))

	require.NoError(t, q.MarkOutOfLibrary(ctx, []structures.MediaKey{
		{TmdbID: "1399", ItemType: structures.ItemTypeSeries},
	}))

	series, err := q.GetMediaItem(ctx, "1399", structures.ItemTypeSeries)
	require.NoError(t, err)
	assert.False(t, series.InLibrary)
	assert.Empty(t, series.EmbyItemIDs)

	seasonRow, err := q.GetMediaItem(ctx, "s1", structures.ItemTypeSeason)
	require.NoError(t, err)
	assert.False(t, seasonRow.InLibrary)
}

func TestListInLibraryTopLevel(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "603", ItemType: structures.ItemTypeMovie, InLibrary: true,
	}))
	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "1399", ItemType: structures.ItemTypeSeries, InLibrary: false,
	}))

	keys, err := q.ListInLibraryTopLevel(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "603", keys[0].TmdbID)
}

func TestReseedSequenceAdvancesPastMaxID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	q := store.Query()

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "603", ItemType: structures.ItemTypeMovie, InLibrary: true,
	}))
	var maxID int64
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT MAX(id) FROM media_metadata`).Scan(&maxID))

	// Simulate a bulk import/restore that left the autoincrement counter
	// behind the highest imported id (§4.5 "Post-import sequence repair").
	_, err := store.DB().ExecContext(ctx, `UPDATE sqlite_sequence SET seq = 0 WHERE name = 'media_metadata'`)
	require.NoError(t, err)

	require.NoError(t, q.ReseedSequence(ctx, "media_metadata", "id"))

	var seq int64
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = 'media_metadata'`).Scan(&seq))
	assert.Equal(t, maxID, seq, "reseeding must restore the counter to the highest existing id")

	require.NoError(t, q.UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "1399", ItemType: structures.ItemTypeSeries, InLibrary: true,
	}))
	var nextID int64
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT id FROM media_metadata WHERE tmdb_id = '1399'`).Scan(&nextID))
	assert.Greater(t, nextID, maxID, "the next insert must not collide with an id at or below the prior max")
}
