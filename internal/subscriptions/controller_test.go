package subscriptions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/downloader"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/db/sqlite"
	"github.com/kestrelmedia/archivist/internal/ratelimit"
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

type fakeDownloader struct {
	calls []downloader.SubscribeRequest
	err   error
}

func (f *fakeDownloader) Subscribe(ctx context.Context, req downloader.SubscribeRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

type fakeSearchProvider struct {
	metadataprovider.Client
	results []metadataprovider.SearchResult
}

func (f *fakeSearchProvider) Search(ctx context.Context, name string, kind string) ([]metadataprovider.SearchResult, error) {
	return f.results, nil
}

func TestSubmitNonVIPCreatesPendingRequest(t *testing.T) {
	store := openTestStore(t)
	dl := &fakeDownloader{}
	c := NewController(store.Query(), dl, nil, nil, ratelimit.NewQuota(10), nil)

	result, err := c.Submit(context.Background(), Request{
		EmbyUserID: "user1", TmdbID: "603", ItemType: structures.ItemTypeMovie, ItemName: "The Matrix",
	})
	require.NoError(t, err)
	assert.Equal(t, structures.RequestPending, result.Status)
	assert.Empty(t, dl.calls)
	assert.NotEmpty(t, result.RequestToken, "every new request gets a client-traceable token")
}

func TestSubmitVIPMovieAutoSubscribes(t *testing.T) {
	store := openTestStore(t)
	dl := &fakeDownloader{}
	c := NewController(store.Query(), dl, nil, nil, ratelimit.NewQuota(10), []string{"vip1"})

	result, err := c.Submit(context.Background(), Request{
		EmbyUserID: "vip1", TmdbID: "603", ItemType: structures.ItemTypeMovie, ItemName: "The Matrix",
	})
	require.NoError(t, err)
	assert.Equal(t, structures.RequestApproved, result.Status)
	assert.Equal(t, structures.ProcessedByAuto, result.ProcessedBy)
	require.Len(t, dl.calls, 1)
	assert.Equal(t, 603, dl.calls[0].TmdbID)
	assert.Equal(t, downloader.MediaMovie, dl.calls[0].Kind)
}

func TestSubmitIsIdempotentForSameTmdbID(t *testing.T) {
	store := openTestStore(t)
	dl := &fakeDownloader{}
	c := NewController(store.Query(), dl, nil, nil, ratelimit.NewQuota(10), nil)
	ctx := context.Background()

	_, err := c.Submit(ctx, Request{EmbyUserID: "user1", TmdbID: "603", ItemType: structures.ItemTypeMovie, ItemName: "The Matrix"})
	require.NoError(t, err)

	result, err := c.Submit(ctx, Request{EmbyUserID: "user2", TmdbID: "603", ItemType: structures.ItemTypeMovie, ItemName: "The Matrix"})
	require.NoError(t, err)
	assert.True(t, result.Existing)
	assert.Equal(t, structures.RequestPending, result.Status)
	assert.Len(t, dl.calls, 0)
}

func TestSubmitVIPMovieQuotaExhaustedFails(t *testing.T) {
	store := openTestStore(t)
	dl := &fakeDownloader{}
	c := NewController(store.Query(), dl, nil, nil, ratelimit.NewQuota(0), []string{"vip1"})

	_, err := c.Submit(context.Background(), Request{
		EmbyUserID: "vip1", TmdbID: "603", ItemType: structures.ItemTypeMovie, ItemName: "The Matrix",
	})
	assert.Error(t, err)
	assert.Empty(t, dl.calls)
}

func TestSubmitVIPSeriesWithoutSeasonSubscribesWholeSeries(t *testing.T) {
	store := openTestStore(t)
	dl := &fakeDownloader{}
	c := NewController(store.Query(), dl, nil, nil, ratelimit.NewQuota(10), []string{"vip1"})

	result, err := c.Submit(context.Background(), Request{
		EmbyUserID: "vip1", TmdbID: "1399", ItemType: structures.ItemTypeSeries, ItemName: "Game of Thrones",
	})
	require.NoError(t, err)
	assert.Equal(t, structures.RequestApproved, result.Status)
	require.Len(t, dl.calls, 1)
	assert.Nil(t, dl.calls[0].Season)
}

func TestSubmitVIPSeriesWithSeasonResolvesParent(t *testing.T) {
	store := openTestStore(t)
	dl := &fakeDownloader{}
	mp := &fakeSearchProvider{results: []metadataprovider.SearchResult{{ID: 1399, Name: "Game of Thrones"}}}
	c := NewController(store.Query(), dl, mp, nil, ratelimit.NewQuota(10), []string{"vip1"})

	result, err := c.Submit(context.Background(), Request{
		EmbyUserID: "vip1", TmdbID: "999", ItemType: structures.ItemTypeSeries, ItemName: "Game of Thrones Season 3",
	})
	require.NoError(t, err)
	assert.Equal(t, structures.RequestApproved, result.Status)
	require.Len(t, dl.calls, 1)
	assert.Equal(t, 1399, dl.calls[0].TmdbID)
	require.NotNil(t, dl.calls[0].Season)
	assert.Equal(t, 3, *dl.calls[0].Season)
}
