package structures

import "time"

// ItemType discriminates the four kinds of media catalog row.
type ItemType string

const (
	ItemTypeMovie   ItemType = "Movie"
	ItemTypeSeries  ItemType = "Series"
	ItemTypeSeason  ItemType = "Season"
	ItemTypeEpisode ItemType = "Episode"
)

func (t ItemType) String() string { return string(t) }

// SubscriptionStatus is the denormalized subscription state carried on a
// MediaItem row.
type SubscriptionStatus string

const (
	SubscriptionNone            SubscriptionStatus = "NONE"
	SubscriptionWanted          SubscriptionStatus = "WANTED"
	SubscriptionPendingRelease  SubscriptionStatus = "PENDING_RELEASE"
	SubscriptionSubscribed      SubscriptionStatus = "SUBSCRIBED"
	SubscriptionIgnored         SubscriptionStatus = "IGNORED"
)

// ResolutionTier is the coarse resolution bucket assigned to a version.
type ResolutionTier string

const (
	Resolution4K    ResolutionTier = "4k"
	Resolution1080p ResolutionTier = "1080p"
	Resolution720p  ResolutionTier = "720p"
	Resolution480p  ResolutionTier = "480p"
)

// QualityTag is the source-quality label extracted from a release name.
type QualityTag string

const (
	QualityRemux  QualityTag = "Remux"
	QualityBluRay QualityTag = "BluRay"
	QualityWebDL  QualityTag = "WEB-DL"
	QualityWebrip QualityTag = "WEBrip"
	QualityHDTV   QualityTag = "HDTV"
	QualityDVDrip QualityTag = "DVDrip"
)

// HDREffect is the dynamic-range tag assigned to a version.
type HDREffect string

const (
	HDRDoviP5  HDREffect = "dovi_p5"
	HDRDoviP7  HDREffect = "dovi_p7"
	HDRDoviP8  HDREffect = "dovi_p8"
	HDROther   HDREffect = "other"
	HDRPlus    HDREffect = "hdr10+"
	HDRBase    HDREffect = "hdr"
	HDRNone    HDREffect = "sdr"
)

// AudioTrack describes one audio stream of a version.
type AudioTrack struct {
	Codec    string `json:"codec"`
	Language string `json:"language,omitempty"`
	Channels int    `json:"channels,omitempty"`
	Title    string `json:"title,omitempty"`
}

// SubtitleTrack describes one subtitle stream of a version.
type SubtitleTrack struct {
	Codec    string `json:"codec"`
	Language string `json:"language,omitempty"`
	Forced   bool   `json:"forced,omitempty"`
}

// AssetDetail describes one physical file backing a MediaItem version.
// Extractors are pure functions of (path, MediaStreams); see
// internal/metadatasync/assets.go.
type AssetDetail struct {
	EmbyItemID     string          `json:"emby_item_id"`
	Path           string          `json:"path"`
	Container      string          `json:"container"`
	SizeBytes      int64           `json:"size_bytes"`
	VideoCodec     string          `json:"video_codec"`
	BitDepth       int             `json:"bit_depth,omitempty"`
	FrameRate      float64         `json:"frame_rate,omitempty"`
	Resolution     ResolutionTier  `json:"resolution"`
	Quality        QualityTag      `json:"quality"`
	HDR            HDREffect       `json:"hdr"`
	AudioTracks    []AudioTrack    `json:"audio_tracks,omitempty"`
	Subtitles      []SubtitleTrack `json:"subtitles,omitempty"`
	ReleaseGroup   string          `json:"release_group,omitempty"`
}

// ChildSummary is a flattened entry in a Series row's
// emby_children_details_json cache.
type ChildSummary struct {
	ID            string `json:"Id"`
	Type          string `json:"Type"`
	Name          string `json:"Name"`
	SeasonNumber  int    `json:"SeasonNumber,omitempty"`
	EpisodeNumber int    `json:"EpisodeNumber,omitempty"`
	Overview      string `json:"Overview,omitempty"`
}

// MediaItem is one row of the Catalog Store (media_metadata). It
// represents a Movie, Series, Season, or Episode, aggregated across every
// local version via EmbyItemIDs.
type MediaItem struct {
	TmdbID        string   `json:"tmdb_id"`
	ItemType      ItemType `json:"item_type"`
	Title         string   `json:"title"`
	OriginalTitle string   `json:"original_title,omitempty"`
	ReleaseYear   int      `json:"release_year,omitempty"`
	ReleaseDate   *time.Time `json:"release_date,omitempty"`
	Rating        float64  `json:"rating,omitempty"`
	OfficialRating string  `json:"official_rating,omitempty"`
	UnifiedRating  string  `json:"unified_rating,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	PosterPath    string   `json:"poster_path,omitempty"`
	OriginalLanguage string `json:"original_language,omitempty"`

	Genres    []string `json:"genres,omitempty"`
	Directors []string `json:"directors,omitempty"`
	Studios   []string `json:"studios,omitempty"`
	Countries []string `json:"countries,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`

	InLibrary            bool           `json:"in_library"`
	EmbyItemIDs          []string       `json:"emby_item_ids_json"`
	EmbyChildrenDetails  []ChildSummary `json:"emby_children_details_json,omitempty"`
	AssetDetails         []AssetDetail  `json:"asset_details_json,omitempty"`

	SubscriptionStatus  SubscriptionStatus `json:"subscription_status"`
	SubscriptionSources []string           `json:"subscription_sources_json,omitempty"`

	ParentSeriesTmdbID string `json:"parent_series_tmdb_id,omitempty"`
	SeasonNumber       *int   `json:"season_number,omitempty"`
	EpisodeNumber      *int   `json:"episode_number,omitempty"`

	IgnoreReason string    `json:"ignore_reason,omitempty"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// Key returns the composite (tmdb_id, item_type) identity used as the
// catalog's unique conflict target.
func (m MediaItem) Key() MediaKey {
	return MediaKey{TmdbID: m.TmdbID, ItemType: m.ItemType}
}

// MediaKey is the catalog's natural key: (tmdb_id, item_type).
type MediaKey struct {
	TmdbID   string
	ItemType ItemType
}

// SeasonKey identifies one in-library season by its parent series and
// season number, the precomputed lookup set for explicit-season
// collection candidates (§4.3).
type SeasonKey struct {
	SeriesTmdbID string
	SeasonNumber int
}

// CompositeKey renders the `{tmdb_id}_{item_type}` string used when
// joining list-importer output back to local ids (§4.3).
func (k MediaKey) CompositeKey() string {
	return k.TmdbID + "_" + string(k.ItemType)
}

// UnionEmbyItemIDs returns the deduplicated set-union of two id lists,
// preserving the order of a followed by new entries from b. This is the
// upsert semantics required for emby_item_ids_json (§4.5).
func UnionEmbyItemIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
