package structures

import "time"

// CollectionType discriminates a list-driven collection from a
// filter-driven one (§3, §4.3).
type CollectionType string

const (
	CollectionTypeList   CollectionType = "list"
	CollectionTypeFilter CollectionType = "filter"
)

// HealthStatus reports whether a collection has any missing members.
type HealthStatus string

const (
	HealthOK         HealthStatus = "ok"
	HealthHasMissing HealthStatus = "has_missing"
)

// ListSource identifies where a list-type collection's candidate ids come
// from. The scheme of SourceURL decides both the ListImporter used and
// the badge text (§4.3 "Badge text contract").
type ListSource struct {
	SourceURL string `json:"source_url"`
}

// Correction maps one source tmdb_id to a replacement target, either a
// bare tmdb_id or a {tmdb_id, season} pair (§4.3).
type Correction struct {
	NewTmdbID    string `json:"tmdb_id,omitempty"`
	SeasonNumber *int   `json:"season,omitempty"`
}

// ListDefinition is the definition_json payload of a list-type
// collection.
type ListDefinition struct {
	Source      ListSource            `json:"source"`
	Corrections map[string]Correction `json:"corrections,omitempty"`
}

// FilterNode is one node of a filter-type collection's predicate tree
// evaluated over the Catalog Store (§4.3).
type FilterNode struct {
	// Leaf predicate, mutually exclusive with And/Or/Not.
	Column   string      `json:"column,omitempty"`
	Operator string      `json:"operator,omitempty"` // eq|neq|gt|gte|lt|lte|contains|in
	Value    interface{} `json:"value,omitempty"`

	And []FilterNode `json:"and,omitempty"`
	Or  []FilterNode `json:"or,omitempty"`
	Not *FilterNode  `json:"not,omitempty"`
}

// CollectionDefinition is one row of custom_collections (§3).
type CollectionDefinition struct {
	ID                 int64          `json:"id"`
	Name               string         `json:"name"`
	Type               CollectionType `json:"type"`
	ListDefinition     *ListDefinition `json:"-"`
	FilterRoot         *FilterNode     `json:"-"`
	Enabled            bool           `json:"enabled"`
	EmbyCollectionID   string         `json:"emby_collection_id,omitempty"`
	ItemType           ItemType       `json:"item_type,omitempty"`
	LastSyncedAt       *time.Time     `json:"last_synced_at,omitempty"`
	InLibraryCount     int            `json:"in_library_count"`
	HealthStatus       HealthStatus   `json:"health_status"`
	MissingCount       int            `json:"missing_count"`
	GeneratedMediaInfo []string       `json:"generated_media_info_json,omitempty"` // tmdb_ids from the last build
}

// CandidateItem is one entry returned by a ListImporter or filter
// evaluation, before the join-to-local-ids step (§4.3).
type CandidateItem struct {
	TmdbID       string
	ItemType     ItemType
	SeasonNumber *int // set only for an explicit-season Series candidate

	// LocalEmbyID is already known for filter-type candidates (they query
	// the Catalog Store directly) and for list-type candidates that
	// survived a correction mapping to a local row.
	LocalEmbyID string

	Title       string
	ReleaseDate *time.Time

	// ParentSeriesTmdbID is set once a candidate resolves to a Season:
	// TmdbID is reassigned to the season's own tmdb id, and this field
	// carries the series' id forward for the season's catalog row.
	ParentSeriesTmdbID string
}

// UserCollectionCache is one row of user_collection_cache (§3).
type UserCollectionCache struct {
	UserID          string    `json:"user_id"`
	CollectionID    int64     `json:"collection_id"`
	VisibleEmbyIDs  []string  `json:"visible_emby_ids_json"`
	TotalCount      int       `json:"total_count"`
	LastUpdatedAt   time.Time `json:"last_updated_at"`
}
