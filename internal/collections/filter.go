package collections

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// evaluateFilterCollection implements the §4.3 "Filter-type" path: it
// loads the candidate universe for the definition's item type and
// returns each row that satisfies the predicate tree, already carrying
// its local id (filter candidates skip the join-to-local-ids step).
func evaluateFilterCollection(ctx context.Context, store *repository.Queries, c *structures.CollectionDefinition) ([]structures.CandidateItem, error) {
	if c.FilterRoot == nil {
		return nil, fmt.Errorf("collections: filter-type collection %q has no filter root", c.Name)
	}
	itemType := c.ItemType
	if itemType == "" {
		itemType = structures.ItemTypeMovie
	}

	items, err := store.ListMediaItemsByType(ctx, itemType)
	if err != nil {
		return nil, err
	}

	out := make([]structures.CandidateItem, 0, len(items))
	for _, item := range items {
		if !matches(*c.FilterRoot, item) {
			continue
		}
		localID := ""
		if len(item.EmbyItemIDs) > 0 {
			localID = item.EmbyItemIDs[0]
		}
		out = append(out, structures.CandidateItem{
			TmdbID:       item.TmdbID,
			ItemType:     item.ItemType,
			SeasonNumber: item.SeasonNumber,
			LocalEmbyID:  localID,
			Title:        item.Title,
			ReleaseDate:  item.ReleaseDate,
		})
	}
	return out, nil
}

// matches evaluates one predicate-tree node against a catalog row.
func matches(node structures.FilterNode, item *structures.MediaItem) bool {
	switch {
	case len(node.And) > 0:
		for _, child := range node.And {
			if !matches(child, item) {
				return false
			}
		}
		return true
	case len(node.Or) > 0:
		for _, child := range node.Or {
			if matches(child, item) {
				return true
			}
		}
		return false
	case node.Not != nil:
		return !matches(*node.Not, item)
	default:
		return matchLeaf(node, item)
	}
}

func matchLeaf(node structures.FilterNode, item *structures.MediaItem) bool {
	actual := fieldValue(node.Column, item)
	if actual == nil {
		return false
	}

	switch node.Operator {
	case "eq":
		return fmt.Sprint(actual) == fmt.Sprint(node.Value)
	case "neq":
		return fmt.Sprint(actual) != fmt.Sprint(node.Value)
	case "contains":
		return containsValue(actual, node.Value)
	case "in":
		return inValue(actual, node.Value)
	case "gt", "gte", "lt", "lte":
		return compareNumeric(node.Operator, actual, node.Value)
	default:
		return false
	}
}

func fieldValue(column string, item *structures.MediaItem) interface{} {
	switch column {
	case "title":
		return item.Title
	case "original_title":
		return item.OriginalTitle
	case "release_year":
		return item.ReleaseYear
	case "rating":
		return item.Rating
	case "official_rating":
		return item.OfficialRating
	case "genres":
		return item.Genres
	case "directors":
		return item.Directors
	case "studios":
		return item.Studios
	case "countries":
		return item.Countries
	case "keywords":
		return item.Keywords
	case "in_library":
		return item.InLibrary
	case "subscription_status":
		return string(item.SubscriptionStatus)
	default:
		return nil
	}
}

func containsValue(actual, want interface{}) bool {
	wantStr := fmt.Sprint(want)
	switch v := actual.(type) {
	case []string:
		for _, s := range v {
			if strings.EqualFold(s, wantStr) {
				return true
			}
		}
		return false
	case string:
		return strings.Contains(strings.ToLower(v), strings.ToLower(wantStr))
	default:
		return false
	}
}

func inValue(actual, want interface{}) bool {
	list, ok := want.([]interface{})
	if !ok {
		return false
	}
	for _, v := range list {
		if fmt.Sprint(v) == fmt.Sprint(actual) {
			return true
		}
	}
	return false
}

func compareNumeric(op string, actual, want interface{}) bool {
	a, aok := toFloat(actual)
	b, bok := toFloat(want)
	if !aok || !bok {
		return false
	}
	switch op {
	case "gt":
		return a > b
	case "gte":
		return a >= b
	case "lt":
		return a < b
	case "lte":
		return a <= b
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
