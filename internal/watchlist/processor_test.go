package watchlist

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/db/sqlite"
	"github.com/kestrelmedia/archivist/internal/scheduler"
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

type fakeResubscriber struct {
	called bool
	err    error
}

func (f *fakeResubscriber) Resubscribe(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	f.called = true
	return f.err
}

func TestRunTaskDispatchesRefreshRevivalAndResubscribe(t *testing.T) {
	store := openTestStore(t)
	resub := &fakeResubscriber{}
	p := &Processor{Store: store.Query(), Resubscriber: resub}

	require.NoError(t, p.RunTask(context.Background(), structures.TaskWatchlistRefresh, scheduler.NewStopFlag(), nil, false))
	require.NoError(t, p.RunTask(context.Background(), structures.TaskWatchlistRevival, scheduler.NewStopFlag(), nil, false))
	require.NoError(t, p.RunTask(context.Background(), structures.TaskSubscriptionResub, scheduler.NewStopFlag(), nil, false))
	assert.True(t, resub.called)
}

func TestRunTaskRejectsSubscriptionResubWithoutResubscriber(t *testing.T) {
	store := openTestStore(t)
	p := &Processor{Store: store.Query()}

	err := p.RunTask(context.Background(), structures.TaskSubscriptionResub, scheduler.NewStopFlag(), nil, false)
	assert.Error(t, err)
}

func TestRunTaskRejectsUnknownKey(t *testing.T) {
	store := openTestStore(t)
	p := &Processor{Store: store.Query()}

	err := p.RunTask(context.Background(), structures.TaskKey("unknown"), scheduler.NewStopFlag(), nil, false)
	assert.Error(t, err)
}

type missingItemMediaServer struct {
	mediaserver.Client
}

func (missingItemMediaServer) GetItem(ctx context.Context, id string, fields []string) (*mediaserver.Item, error) {
	return nil, errors.New("item not found")
}

func TestRefreshOneDeletesEntryWhenSeriesNoLongerInMediaServer(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := &structures.WatchlistEntry{ItemID: "emby-1399", TmdbID: "1399", ItemName: "Game of Thrones", ItemType: structures.ItemTypeSeries, Status: structures.WatchlistWatching}
	require.NoError(t, store.Query().UpsertWatchlistEntry(ctx, w))

	p := &Processor{Store: store.Query(), MediaServer: missingItemMediaServer{}}
	require.NoError(t, p.RefreshOne(ctx, w))

	entry, err := store.Query().GetWatchlistEntry(ctx, "emby-1399")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

type fakeWatchlistMediaServer struct {
	mediaserver.Client
	children []mediaserver.Item
}

func (fakeWatchlistMediaServer) GetItem(ctx context.Context, id string, fields []string) (*mediaserver.Item, error) {
	return &mediaserver.Item{ID: id}, nil
}

func (f fakeWatchlistMediaServer) GetSeriesChildren(ctx context.Context, seriesID string, fields []string) ([]mediaserver.Item, error) {
	return f.children, nil
}

func (fakeWatchlistMediaServer) UpdateItemDetails(ctx context.Context, id string, fields map[string]interface{}) error {
	return nil
}

type fakeWatchlistMetadataProvider struct {
	metadataprovider.Client
	series  *metadataprovider.TVDetails
	seasons map[int]*metadataprovider.SeasonDetails
}

func (f fakeWatchlistMetadataProvider) GetTVDetails(ctx context.Context, id int) (*metadataprovider.TVDetails, error) {
	return f.series, nil
}

func (f fakeWatchlistMetadataProvider) GetTVSeasonDetails(ctx context.Context, id, seasonNumber int) (*metadataprovider.SeasonDetails, error) {
	return f.seasons[seasonNumber], nil
}

func TestRefreshOnePersistsCompletedStateWhenNothingMissing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := &structures.WatchlistEntry{ItemID: "emby-1399", TmdbID: "1399", ItemName: "Game of Thrones", ItemType: structures.ItemTypeSeries, Status: structures.WatchlistWatching}
	require.NoError(t, store.Query().UpsertWatchlistEntry(ctx, w))

	ms := fakeWatchlistMediaServer{children: []mediaserver.Item{
		{ID: "ep-1", Type: "Episode", SeasonNumber: 1, EpisodeNumber: 1, Overview: "pilot overview"},
	}}
	mp := fakeWatchlistMetadataProvider{
		series: &metadataprovider.TVDetails{
			ID: 1399, Name: "Game of Thrones", Status: "Ended",
			Seasons: []struct {
				ID           int    `json:"id"`
				SeasonNumber int    `json:"season_number"`
				Name         string `json:"name"`
			}{{ID: 1, SeasonNumber: 1, Name: "Season 1"}},
		},
		seasons: map[int]*metadataprovider.SeasonDetails{
			1: {ID: 1, SeasonNumber: 1, Episodes: []struct {
				ID            int    `json:"id"`
				EpisodeNumber int    `json:"episode_number"`
				Name          string `json:"name"`
				Overview      string `json:"overview"`
				AirDate       string `json:"air_date"`
			}{{ID: 1, EpisodeNumber: 1, Name: "Winter Is Coming", Overview: "pilot overview", AirDate: "2011-04-17"}}},
		},
	}
	p := &Processor{Store: store.Query(), MediaServer: ms, MetadataProvider: mp}

	require.NoError(t, p.RefreshOne(ctx, w))

	entry, err := store.Query().GetWatchlistEntry(ctx, "emby-1399")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, structures.WatchlistCompleted, entry.Status)
	assert.Equal(t, structures.TmdbStatusEnded, entry.TmdbStatus)
}

func TestRevivalCheckRevivesWhenSeasonCountGrew(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := &structures.WatchlistEntry{
		ItemID: "emby-1399", TmdbID: "1399", ItemName: "Show", ItemType: structures.ItemTypeSeries,
		Status: structures.WatchlistCompleted, TmdbStatus: structures.TmdbStatusEnded,
		LastEpisodeToAir: &structures.EpisodeRef{SeasonNumber: 1},
	}
	require.NoError(t, store.Query().UpsertWatchlistEntry(ctx, w))

	mp := fakeWatchlistMetadataProvider{series: &metadataprovider.TVDetails{
		ID: 1399, Status: "Returning Series", NumberOfSeasons: 2,
	}}
	p := &Processor{Store: store.Query(), MetadataProvider: mp}

	require.NoError(t, p.RevivalCheck(ctx, scheduler.NewStopFlag(), nil))

	entry, err := store.Query().GetWatchlistEntry(ctx, "emby-1399")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, structures.WatchlistWatching, entry.Status)
}

func TestRevivalCheckIgnoresSameSeasonCountBlip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := &structures.WatchlistEntry{
		ItemID: "emby-1399", TmdbID: "1399", ItemName: "Show", ItemType: structures.ItemTypeSeries,
		Status: structures.WatchlistCompleted, TmdbStatus: structures.TmdbStatusEnded,
		LastEpisodeToAir: &structures.EpisodeRef{SeasonNumber: 2},
	}
	require.NoError(t, store.Query().UpsertWatchlistEntry(ctx, w))

	mp := fakeWatchlistMetadataProvider{series: &metadataprovider.TVDetails{
		ID: 1399, Status: "Returning Series", NumberOfSeasons: 2,
	}}
	p := &Processor{Store: store.Query(), MetadataProvider: mp}

	require.NoError(t, p.RevivalCheck(ctx, scheduler.NewStopFlag(), nil))

	entry, err := store.Query().GetWatchlistEntry(ctx, "emby-1399")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, structures.WatchlistCompleted, entry.Status, "equal season count must not trigger a revival")
}

func TestRevivalCheckSkipsSeriesStillEnded(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := &structures.WatchlistEntry{
		ItemID: "emby-1399", TmdbID: "1399", ItemName: "Show", ItemType: structures.ItemTypeSeries,
		Status: structures.WatchlistCompleted, TmdbStatus: structures.TmdbStatusEnded,
	}
	require.NoError(t, store.Query().UpsertWatchlistEntry(ctx, w))

	mp := fakeWatchlistMetadataProvider{series: &metadataprovider.TVDetails{
		ID: 1399, Status: "Ended", NumberOfSeasons: 5,
	}}
	p := &Processor{Store: store.Query(), MetadataProvider: mp}

	require.NoError(t, p.RevivalCheck(ctx, scheduler.NewStopFlag(), nil))

	entry, err := store.Query().GetWatchlistEntry(ctx, "emby-1399")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, structures.WatchlistCompleted, entry.Status)
}

func TestAutoAddSkipsExistingEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Query().UpsertWatchlistEntry(ctx, &structures.WatchlistEntry{
		ItemID: "emby-1399", TmdbID: "1399", ItemName: "Show", ItemType: structures.ItemTypeSeries, Status: structures.WatchlistWatching,
	}))
	p := &Processor{Store: store.Query()}

	require.NoError(t, p.AutoAdd(ctx, "emby-1399", "Show", "1399"))
}

func TestAutoAddDerivesStatusFromUpstreamTmdbStatus(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mp := fakeWatchlistMetadataProvider{series: &metadataprovider.TVDetails{ID: 603, Status: "Ended"}}
	p := &Processor{Store: store.Query(), MetadataProvider: mp}

	require.NoError(t, p.AutoAdd(ctx, "emby-603", "Some Show", "603"))

	entry, err := store.Query().GetWatchlistEntry(ctx, "emby-603")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, structures.TmdbStatusEnded, entry.TmdbStatus)
}
