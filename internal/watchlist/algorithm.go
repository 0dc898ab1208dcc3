// Package watchlist implements the Watchlist Engine (C4): the
// per-series refresh algorithm, the low-frequency revival check, and
// the auto-add rule triggered by new library arrivals. Grounded on
// original_source/watchlist_processor.py's WatchlistProcessor
// (_process_one_series, _calculate_real_next_episode,
// _calculate_missing_info, the revival loop), re-expressed against this
// system's mediaserver/metadataprovider clients and repository layer.
package watchlist

import (
	"sort"
	"time"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// buildLocalInventory turns Media-Server children into the season ->
// episode-number-set map from §4.2 step 3.
func buildLocalInventory(children []mediaserver.Item) structures.LocalInventory {
	return BuildLocalInventory(children)
}

// BuildLocalInventory is the exported form of buildLocalInventory, used
// by internal/subscriptions to re-derive local inventory for its
// interior-gap check without duplicating the mapping logic.
func BuildLocalInventory(children []mediaserver.Item) structures.LocalInventory {
	inv := make(structures.LocalInventory)
	for _, c := range children {
		if c.Type != "Episode" {
			continue
		}
		if _, ok := inv[c.SeasonNumber]; !ok {
			inv[c.SeasonNumber] = make(map[int]struct{})
		}
		inv[c.SeasonNumber][c.EpisodeNumber] = struct{}{}
	}
	return inv
}

// tmdbEpisode is the subset of an upstream season's episode list this
// algorithm consumes, collected across every non-zero season.
type tmdbEpisode struct {
	SeasonNumber  int
	EpisodeNumber int
	Overview      string
	AirDate       string
}

func collectEpisodes(seasons []*metadataprovider.SeasonDetails) []tmdbEpisode {
	var out []tmdbEpisode
	for _, s := range seasons {
		for _, ep := range s.Episodes {
			out = append(out, tmdbEpisode{
				SeasonNumber:  s.SeasonNumber,
				EpisodeNumber: ep.EpisodeNumber,
				Overview:      ep.Overview,
				AirDate:       ep.AirDate,
			})
		}
	}
	return out
}

// computeMissingInfo implements §4.2 step 4: a season is missing if it
// never appears locally (and isn't season 0); an episode is missing if
// its (s,e) pair isn't present locally.
func computeMissingInfo(upstreamSeasons []int, episodes []tmdbEpisode, local structures.LocalInventory) structures.MissingInfo {
	var info structures.MissingInfo

	for _, s := range upstreamSeasons {
		if s == 0 {
			continue
		}
		if !local.HasSeason(s) {
			info.MissingSeasons = append(info.MissingSeasons, structures.MissingSeason{SeasonNumber: s})
		}
	}
	missingSeasons := make(map[int]bool, len(info.MissingSeasons))
	for _, m := range info.MissingSeasons {
		missingSeasons[m.SeasonNumber] = true
	}

	for _, ep := range episodes {
		if ep.SeasonNumber == 0 || missingSeasons[ep.SeasonNumber] {
			continue
		}
		if !local.HasEpisode(ep.SeasonNumber, ep.EpisodeNumber) {
			info.MissingEpisodes = append(info.MissingEpisodes, structures.MissingEpisode{
				SeasonNumber: ep.SeasonNumber, EpisodeNumber: ep.EpisodeNumber,
			})
		}
	}
	return info
}

// computeRealNextEpisode implements §4.2 step 5: the first (s,e) sorted
// ascending, skipping season 0, not present in local inventory —
// regardless of air date.
func computeRealNextEpisode(episodes []tmdbEpisode, local structures.LocalInventory) *tmdbEpisode {
	candidates := make([]tmdbEpisode, 0, len(episodes))
	for _, ep := range episodes {
		if ep.SeasonNumber == 0 {
			continue
		}
		if !local.HasEpisode(ep.SeasonNumber, ep.EpisodeNumber) {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SeasonNumber != candidates[j].SeasonNumber {
			return candidates[i].SeasonNumber < candidates[j].SeasonNumber
		}
		return candidates[i].EpisodeNumber < candidates[j].EpisodeNumber
	})
	return &candidates[0]
}

// hasCompleteMetadata implements §4.2 step 6: true iff every non-special
// episode upstream has a non-empty overview.
func hasCompleteMetadata(episodes []tmdbEpisode) bool {
	for _, ep := range episodes {
		if ep.SeasonNumber == 0 {
			continue
		}
		if ep.Overview == "" {
			return false
		}
	}
	return true
}

// isSeasonFinale implements §4.2 step 7: upstream has a non-null
// last_episode_to_air whose air date is on or before today, and a null
// next_episode_to_air.
func isSeasonFinale(last, next *structures.EpisodeRef, now time.Time) bool {
	if last == nil || next != nil || last.AirDate == nil {
		return false
	}
	return !last.AirDate.After(now)
}

// transitionResult is the full set of side-effect-bearing outputs from
// §4.2 step 8's deterministic state function.
type transitionResult struct {
	Status           structures.WatchlistStatus
	PausedUntil      *time.Time
	IsAiring         bool
}

// computeTransition implements §4.2 step 8 exactly, including the
// force_ended override.
func computeTransition(
	missingInfo structures.MissingInfo,
	metadataComplete bool,
	tmdbStatus structures.TmdbSeriesStatus,
	seasonFinale bool,
	realNextEpisode *tmdbEpisode,
	forceEnded bool,
	now time.Time,
) transitionResult {
	hasMissingMedia := missingInfo.HasMissing()
	canBeCompleted := !hasMissingMedia && metadataComplete
	isAiring := realNextEpisode != nil || hasMissingMedia

	var status structures.WatchlistStatus
	var pausedUntil *time.Time

	switch {
	case canBeCompleted && (tmdbStatus.IsEndedOrCanceled() || seasonFinale):
		status = structures.WatchlistCompleted
	case realNextEpisode != nil && realNextEpisode.AirDate != "":
		airDate, err := time.Parse("2006-01-02", realNextEpisode.AirDate)
		if err != nil {
			// An unparseable date isn't a known air date; treat it like
			// no upcoming episode at all.
			status = structures.WatchlistPaused
			t := now.AddDate(0, 0, 7)
			pausedUntil = &t
			break
		}
		daysUntil := int(airDate.Sub(now).Hours() / 24)
		if daysUntil > 3 {
			status = structures.WatchlistPaused
			t := airDate.AddDate(0, 0, -1)
			pausedUntil = &t
		} else {
			status = structures.WatchlistWatching
		}
	default:
		status = structures.WatchlistPaused
		t := now.AddDate(0, 0, 7)
		pausedUntil = &t
	}

	if forceEnded && status != structures.WatchlistCompleted {
		status = structures.WatchlistCompleted
		pausedUntil = nil
	}

	return transitionResult{Status: status, PausedUntil: pausedUntil, IsAiring: isAiring}
}

// autoAddStatus implements §4.2's auto-add rule: a newly-arrived
// series' initial watchlist status derives solely from its upstream
// tmdb_status.
func autoAddStatus(tmdbStatus structures.TmdbSeriesStatus) structures.WatchlistStatus {
	switch tmdbStatus {
	case structures.TmdbStatusReturning, structures.TmdbStatusInProd, structures.TmdbStatusPlanned:
		return structures.WatchlistWatching
	default:
		return structures.WatchlistCompleted
	}
}
