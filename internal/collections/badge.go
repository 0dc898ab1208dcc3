package collections

import (
	"strconv"
	"strings"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

// BadgeText implements the §4.3 "Badge text contract": a list-type
// collection's badge is derived from its source URL scheme via a closed
// mapping; every other collection exposes its numeric in-library count.
func BadgeText(c *structures.CollectionDefinition) string {
	if c.Type != structures.CollectionTypeList || c.ListDefinition == nil {
		return strconv.Itoa(c.InLibraryCount)
	}

	url := c.ListDefinition.Source.SourceURL
	switch {
	case strings.HasPrefix(url, "maoyan://"):
		return "猫眼"
	case strings.Contains(url, "douban.com/doulist"):
		return "豆列"
	case strings.Contains(url, "themoviedb.org/discover/"):
		return "探索"
	default:
		return "榜单"
	}
}
