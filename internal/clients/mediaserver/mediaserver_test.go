package mediaserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/httpx"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

func newTestClient(t *testing.T, provider structures.Provider, handler http.Handler) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	h, err := httpx.New(httpx.Options{})
	require.NoError(t, err)
	return New(srv.URL, "api-key", provider, "1.0", h), srv
}

func TestEmbyUsesXEmbyTokenHeader(t *testing.T) {
	var gotHeader string
	c, _ := newTestClient(t, structures.ProviderEmby, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Emby-Token")
		json.NewEncoder(w).Encode(struct {
			Items []Item `json:"Items"`
		}{})
	}))

	_, err := c.ListItems(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "api-key", gotHeader)
}

func TestJellyfinUsesMediaBrowserAuthHeader(t *testing.T) {
	var gotHeader string
	c, _ := newTestClient(t, structures.ProviderJellyfin, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(struct {
			Items []Item `json:"Items"`
		}{})
	}))

	_, err := c.ListItems(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Contains(t, gotHeader, `Token="api-key"`)
	assert.Contains(t, gotHeader, `Version="1.0"`)
}

func TestListItemsReturnsDecodedItems(t *testing.T) {
	c, _ := newTestClient(t, structures.ProviderEmby, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("Recursive"))
		json.NewEncoder(w).Encode(struct {
			Items []Item `json:"Items"`
		}{Items: []Item{{ID: "1", Name: "The Matrix"}}})
	}))

	items, err := c.ListItems(context.Background(), []string{"lib1"}, []string{"Movie"}, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "The Matrix", items[0].Name)
}

func TestGetItemsByIDsSkipsRequestWhenEmpty(t *testing.T) {
	called := false
	c, _ := newTestClient(t, structures.ProviderEmby, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	items, err := c.GetItemsByIDs(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, items)
	assert.False(t, called)
}

func TestGetUserAccessibleItemsPagesInChunksOf150(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, structures.ProviderEmby, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(struct {
			Items []Item `json:"Items"`
		}{Items: []Item{{ID: "x"}}})
	}))

	ids := make([]string, 200)
	for i := range ids {
		ids[i] = "id"
	}
	visible, err := c.GetUserAccessibleItems(context.Background(), "user-1", ids)
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	assert.Len(t, visible, 2)
}

func TestDoJSONMapsNon2xxToMediaServerUnreachable(t *testing.T) {
	c, _ := newTestClient(t, structures.ProviderEmby, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.GetItem(context.Background(), "missing", nil)
	require.Error(t, err)
	ae, ok := err.(*apierrors.Error)
	require.True(t, ok)
	assert.Equal(t, apierrors.KindTransientRemote, ae.Kind())
}

func TestCreateOrUpdateCollectionPostsNameAndIDs(t *testing.T) {
	var gotName, gotIDs string
	c, _ := newTestClient(t, structures.ProviderEmby, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("Name")
		gotIDs = r.URL.Query().Get("Ids")
		json.NewEncoder(w).Encode(struct {
			ID string `json:"Id"`
		}{ID: "col-1"})
	}))

	id, err := c.CreateOrUpdateCollection(context.Background(), "My Collection", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "col-1", id)
	assert.Equal(t, "My Collection", gotName)
	assert.Equal(t, "a,b", gotIDs)
}

func TestItemTmdbIDExtractsProviderID(t *testing.T) {
	item := Item{ProviderIds: map[string]string{"Tmdb": "603"}}
	id, ok := item.TmdbID()
	assert.True(t, ok)
	assert.Equal(t, 603, id)
}

func TestItemTmdbIDMissingReturnsFalse(t *testing.T) {
	item := Item{}
	_, ok := item.TmdbID()
	assert.False(t, ok)
}
