package collections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

type fakeVisibilityMediaServer struct {
	mediaserver.Client
	users       []mediaserver.User
	accessible  map[string][]string
}

func (f *fakeVisibilityMediaServer) GetAllUsers(ctx context.Context) ([]mediaserver.User, error) {
	return f.users, nil
}

func (f *fakeVisibilityMediaServer) GetUserAccessibleItems(ctx context.Context, userID string, idList []string) ([]string, error) {
	return f.accessible[userID], nil
}

func TestIntersectPreservingOrder(t *testing.T) {
	ordered := []string{"a", "b", "c"}
	allowed := []string{"c", "a"}
	assert.Equal(t, []string{"a", "c"}, intersectPreservingOrder(ordered, allowed))
}

func TestRebuildVisibilityAdminSeesEverything(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ms := &fakeVisibilityMediaServer{
		users: []mediaserver.User{
			{ID: "admin", Policy: mediaserver.UserPolicy{IsAdministrator: true}},
		},
	}
	c := &structures.CollectionDefinition{ID: 5}
	require.NoError(t, rebuildVisibility(ctx, store.Query(), ms, c, []string{"e1", "e2"}))

	cache, err := store.Query().GetUserCollectionCache(ctx, "admin", 5)
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.Equal(t, []string{"e1", "e2"}, cache.VisibleEmbyIDs)
}

func TestRebuildVisibilityNonAdminIntersects(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	ms := &fakeVisibilityMediaServer{
		users: []mediaserver.User{
			{ID: "kid", Policy: mediaserver.UserPolicy{IsAdministrator: false}},
		},
		accessible: map[string][]string{"kid": {"e2"}},
	}
	c := &structures.CollectionDefinition{ID: 5}
	require.NoError(t, rebuildVisibility(ctx, store.Query(), ms, c, []string{"e1", "e2"}))

	cache, err := store.Query().GetUserCollectionCache(ctx, "kid", 5)
	require.NoError(t, err)
	require.NotNil(t, cache)
	assert.Equal(t, []string{"e2"}, cache.VisibleEmbyIDs)
}
