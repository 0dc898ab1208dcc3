package collections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

type fakeBuilderMediaServer struct {
	mediaserver.Client
	createdName string
	createdIDs  []string
}

func (f *fakeBuilderMediaServer) CreateOrUpdateCollection(ctx context.Context, name string, orderedIDs []string) (string, error) {
	f.createdName = name
	f.createdIDs = orderedIDs
	return "container-1", nil
}

func (f *fakeBuilderMediaServer) GetAllUsers(ctx context.Context) ([]mediaserver.User, error) {
	return nil, nil
}

func TestRebuildAllBuildsFilterCollection(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Query().UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "603", ItemType: structures.ItemTypeMovie, Title: "The Matrix",
		ReleaseYear: 1999, InLibrary: true, EmbyItemIDs: []string{"e603"},
	}))
	require.NoError(t, store.Query().UpsertMediaItem(ctx, &structures.MediaItem{
		TmdbID: "27205", ItemType: structures.ItemTypeMovie, Title: "Inception",
		ReleaseYear: 2010, InLibrary: true, EmbyItemIDs: []string{"e27205"},
	}))

	_, err := store.Query().DB().ExecContext(ctx, `INSERT INTO custom_collections
		(name, type, definition_json, enabled, item_type)
		VALUES (?, ?, ?, 1, ?)`,
		"Nineties", structures.CollectionTypeFilter,
		`{"column":"release_year","operator":"eq","value":1999}`,
		structures.ItemTypeMovie,
	)
	require.NoError(t, err)

	ms := &fakeBuilderMediaServer{}
	b := &Builder{Store: store.Query(), MediaServer: ms}

	require.NoError(t, b.RebuildAll(ctx, scheduler.NewStopFlag(), nil))

	assert.Equal(t, "Nineties", ms.createdName)
	assert.Equal(t, []string{"e603"}, ms.createdIDs)

	defs, err := store.Query().ListEnabledCollections(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "container-1", defs[0].EmbyCollectionID)
	assert.Equal(t, 1, defs[0].InLibraryCount)
	assert.Equal(t, structures.HealthOK, defs[0].HealthStatus)
}

func TestRebuildAllContinuesPastBadDefinition(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Query().DB().ExecContext(ctx, `INSERT INTO custom_collections
		(name, type, definition_json, enabled)
		VALUES (?, ?, ?, 1)`,
		"Broken", structures.CollectionTypeList, `{}`,
	)
	require.NoError(t, err)

	ms := &fakeBuilderMediaServer{}
	b := &Builder{Store: store.Query(), MediaServer: ms}

	require.NoError(t, b.RebuildAll(ctx, scheduler.NewStopFlag(), nil))
	assert.Empty(t, ms.createdName)
}
