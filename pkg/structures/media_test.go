package structures

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaItemKey(t *testing.T) {
	item := MediaItem{TmdbID: "603", ItemType: ItemTypeMovie}
	assert.Equal(t, MediaKey{TmdbID: "603", ItemType: ItemTypeMovie}, item.Key())
}

func TestMediaKeyCompositeKey(t *testing.T) {
	k := MediaKey{TmdbID: "603", ItemType: ItemTypeMovie}
	assert.Equal(t, "603_Movie", k.CompositeKey())
}

func TestUnionEmbyItemIDsDeduplicatesPreservingOrder(t *testing.T) {
	result := UnionEmbyItemIDs([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, result)
}

func TestUnionEmbyItemIDsSkipsEmptyStrings(t *testing.T) {
	result := UnionEmbyItemIDs([]string{"a", ""}, []string{"", "b"})
	assert.Equal(t, []string{"a", "b"}, result)
}

func TestUnionEmbyItemIDsHandlesEmptyInputs(t *testing.T) {
	assert.Empty(t, UnionEmbyItemIDs(nil, nil))
	assert.Equal(t, []string{"a"}, UnionEmbyItemIDs(nil, []string{"a"}))
}
