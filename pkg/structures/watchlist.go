package structures

import "time"

// WatchlistStatus is the three-state watchlist state machine (§3, §4.2).
type WatchlistStatus string

const (
	WatchlistWatching  WatchlistStatus = "Watching"
	WatchlistPaused    WatchlistStatus = "Paused"
	WatchlistCompleted WatchlistStatus = "Completed"
)

// TmdbSeriesStatus mirrors the upstream status vocabulary used to decide
// auto-add and completion (§4.2).
type TmdbSeriesStatus string

const (
	TmdbStatusReturning  TmdbSeriesStatus = "Returning Series"
	TmdbStatusInProd     TmdbSeriesStatus = "In Production"
	TmdbStatusPlanned    TmdbSeriesStatus = "Planned"
	TmdbStatusEnded      TmdbSeriesStatus = "Ended"
	TmdbStatusCanceled   TmdbSeriesStatus = "Canceled"
)

// IsEndedOrCanceled reports whether s is one of the two terminal upstream
// statuses that permit a Completed transition.
func (s TmdbSeriesStatus) IsEndedOrCanceled() bool {
	return s == TmdbStatusEnded || s == TmdbStatusCanceled
}

// EpisodeRef identifies one upstream episode, used for next/last
// episode-to-air payloads.
type EpisodeRef struct {
	SeasonNumber  int        `json:"season_number"`
	EpisodeNumber int        `json:"episode_number"`
	Name          string     `json:"name,omitempty"`
	Overview      string     `json:"overview,omitempty"`
	AirDate       *time.Time `json:"air_date,omitempty"`
}

// MissingSeason records one season absent from local inventory entirely.
type MissingSeason struct {
	SeasonNumber int `json:"season_number"`
}

// MissingEpisode records one (season,episode) absent from local
// inventory whose season is otherwise present.
type MissingEpisode struct {
	SeasonNumber  int `json:"season_number"`
	EpisodeNumber int `json:"episode_number"`
}

// MissingInfo is the computed gap report for one series (§4.2 step 4).
type MissingInfo struct {
	MissingSeasons  []MissingSeason  `json:"missing_seasons"`
	MissingEpisodes []MissingEpisode `json:"missing_episodes"`
}

// HasMissing reports whether any season or episode is missing.
func (m MissingInfo) HasMissing() bool {
	return len(m.MissingSeasons) > 0 || len(m.MissingEpisodes) > 0
}

// WatchlistEntry is one row of the watchlist table (§3).
type WatchlistEntry struct {
	ItemID     string   `json:"item_id"`
	TmdbID     string   `json:"tmdb_id"`
	ItemName   string   `json:"item_name"`
	ItemType   ItemType `json:"item_type"`
	Status     WatchlistStatus `json:"status"`
	PausedUntil *time.Time     `json:"paused_until,omitempty"`

	TmdbStatus TmdbSeriesStatus `json:"tmdb_status,omitempty"`

	NextEpisodeToAir *EpisodeRef  `json:"next_episode_to_air_json,omitempty"`
	LastEpisodeToAir *EpisodeRef  `json:"last_episode_to_air_json,omitempty"`
	MissingInfo      *MissingInfo `json:"missing_info_json,omitempty"`

	IsAiring   bool `json:"is_airing"`
	ForceEnded bool `json:"force_ended"`

	// ResubscribeInfo maps a season number to the UTC timestamp of the
	// last best-version resubscribe attempt for that season (§3, §4.4).
	ResubscribeInfo map[int]time.Time `json:"resubscribe_info_json,omitempty"`

	LastCheckedAt time.Time `json:"last_checked_at"`
}

// Invariant P3: Paused iff PausedUntil is set.
func (w WatchlistEntry) ValidPauseInvariant() bool {
	return (w.Status == WatchlistPaused) == (w.PausedUntil != nil)
}

// LocalInventory maps season number to the set of locally-present episode
// numbers, built from Media Server children (§4.2 step 3).
type LocalInventory map[int]map[int]struct{}

// HasEpisode reports whether (season, episode) is present locally.
func (l LocalInventory) HasEpisode(season, episode int) bool {
	eps, ok := l[season]
	if !ok {
		return false
	}
	_, ok = eps[episode]
	return ok
}

// HasSeason reports whether any local episode exists for season.
func (l LocalInventory) HasSeason(season int) bool {
	eps, ok := l[season]
	return ok && len(eps) > 0
}

// MaxEpisode returns the highest locally-present episode number for a
// season, and whether the season has any local episodes at all.
func (l LocalInventory) MaxEpisode(season int) (int, bool) {
	eps, ok := l[season]
	if !ok || len(eps) == 0 {
		return 0, false
	}
	max := 0
	for e := range eps {
		if e > max {
			max = e
		}
	}
	return max, true
}
