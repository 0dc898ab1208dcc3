package collections

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// healthResult is the outcome of one collection's health analysis
// (§4.3 "Health analysis").
type healthResult struct {
	Status       structures.HealthStatus
	MissingCount int
}

// runHealthAnalysis classifies every candidate as in-library or
// missing, and for missing items updates their denormalized
// subscription status. List-type only, per §4.3.
func runHealthAnalysis(
	ctx context.Context, store *repository.Queries, mp metadataprovider.Client,
	c *structures.CollectionDefinition, candidates []structures.CandidateItem, reverseCorrections map[string]string,
) (healthResult, error) {
	inLibrarySeasons, err := store.ListInLibrarySeasons(ctx)
	if err != nil {
		return healthResult{}, err
	}

	sourceName := fmt.Sprintf("collection:%d:%s", c.ID, c.Name)
	today := time.Now().UTC()

	var missingReleased, missingUnreleased []structures.CandidateItem
	parentsToEnsure := make(map[string]string) // series tmdb_id -> placeholder title

	for _, cand := range candidates {
		inLibrary, err := isInLibrary(ctx, store, cand, inLibrarySeasons, reverseCorrections)
		if err != nil {
			return healthResult{}, err
		}
		if inLibrary {
			continue
		}

		details, err := resolveMissingDetails(ctx, mp, cand)
		if err != nil {
			// Upstream lookup failed for this one candidate: skip it
			// rather than abort the whole collection's health pass.
			continue
		}
		cand.ItemType = details.ItemType
		cand.Title = details.Title
		cand.ReleaseDate = details.ReleaseDate

		if details.ItemType == structures.ItemTypeSeason {
			parentsToEnsure[details.ParentSeriesTmdbID] = details.ParentTitle
			cand.ParentSeriesTmdbID = details.ParentSeriesTmdbID
			cand.TmdbID = details.TmdbID // the season's own tmdb id, not the series'
		}

		if details.ReleaseDate != nil && details.ReleaseDate.After(today) {
			missingUnreleased = append(missingUnreleased, cand)
		} else {
			missingReleased = append(missingReleased, cand)
		}
	}

	for seriesTmdbID, title := range parentsToEnsure {
		if err := store.EnsurePlaceholderSeries(ctx, seriesTmdbID, title); err != nil {
			return healthResult{}, err
		}
	}

	if err := applyStatus(ctx, store, missingReleased, structures.SubscriptionWanted, sourceName); err != nil {
		return healthResult{}, err
	}
	if err := applyStatus(ctx, store, missingUnreleased, structures.SubscriptionPendingRelease, sourceName); err != nil {
		return healthResult{}, err
	}

	total := len(missingReleased) + len(missingUnreleased)
	status := structures.HealthOK
	if total > 0 {
		status = structures.HealthHasMissing
	}
	return healthResult{Status: status, MissingCount: total}, nil
}

func isInLibrary(
	ctx context.Context, store *repository.Queries, cand structures.CandidateItem,
	inLibrarySeasons map[structures.SeasonKey]bool, reverseCorrections map[string]string,
) (bool, error) {
	if cand.LocalEmbyID != "" {
		return true, nil
	}
	if cand.SeasonNumber != nil && cand.ItemType == structures.ItemTypeSeries {
		return inLibrarySeasons[structures.SeasonKey{SeriesTmdbID: cand.TmdbID, SeasonNumber: *cand.SeasonNumber}], nil
	}

	item, err := store.GetMediaItem(ctx, cand.TmdbID, cand.ItemType)
	if err != nil {
		return false, err
	}
	if item != nil {
		return true, nil
	}
	if original, ok := reverseCorrections[cand.TmdbID]; ok {
		orig, err := store.GetMediaItem(ctx, original, cand.ItemType)
		if err != nil {
			return false, err
		}
		return orig != nil, nil
	}
	return false, nil
}

// resolvedDetails is the upstream lookup result for one missing
// candidate: enough to classify it by release date, persist its own
// catalog row, and (for a Season) register its parent series.
type resolvedDetails struct {
	TmdbID      string // the id this candidate's own catalog row is keyed by
	ItemType    structures.ItemType
	Title       string
	ReleaseDate *time.Time

	// ParentSeriesTmdbID and ParentTitle are set only when ItemType is
	// ItemTypeSeason: the series' own tmdb id and name, for the
	// placeholder series row the season hangs off of.
	ParentSeriesTmdbID string
	ParentTitle        string
}

// resolveMissingDetails fetches upstream details for a missing
// candidate so health analysis can classify it by release date and
// name a placeholder title. For an explicit-season candidate, TmdbID
// on the result is the season's own tmdb id (not the series'), matching
// how the catalog keys a Season row.
func resolveMissingDetails(ctx context.Context, mp metadataprovider.Client, cand structures.CandidateItem) (resolvedDetails, error) {
	tmdbID, err := strconv.Atoi(cand.TmdbID)
	if err != nil {
		return resolvedDetails{}, err
	}

	if cand.SeasonNumber != nil && cand.ItemType == structures.ItemTypeSeries {
		season, err := mp.GetTVSeasonDetails(ctx, tmdbID, *cand.SeasonNumber)
		if err != nil {
			return resolvedDetails{}, err
		}
		parent, err := mp.GetTVDetails(ctx, tmdbID)
		if err != nil {
			return resolvedDetails{}, err
		}
		var airDate *time.Time
		if len(season.Episodes) > 0 {
			if t, err := time.Parse("2006-01-02", season.Episodes[0].AirDate); err == nil {
				airDate = &t
			}
		}
		return resolvedDetails{
			TmdbID:             strconv.Itoa(season.ID),
			ItemType:           structures.ItemTypeSeason,
			Title:              fmt.Sprintf("Season %d", *cand.SeasonNumber),
			ReleaseDate:        airDate,
			ParentSeriesTmdbID: cand.TmdbID,
			ParentTitle:        parent.Name,
		}, nil
	}

	if cand.ItemType == structures.ItemTypeMovie {
		d, err := mp.GetMovieDetails(ctx, tmdbID, nil)
		if err != nil {
			return resolvedDetails{}, err
		}
		var releaseDate *time.Time
		if t, err := time.Parse("2006-01-02", d.ReleaseDate); err == nil {
			releaseDate = &t
		}
		return resolvedDetails{TmdbID: cand.TmdbID, ItemType: structures.ItemTypeMovie, Title: d.Title, ReleaseDate: releaseDate}, nil
	}

	d, err := mp.GetTVDetails(ctx, tmdbID)
	if err != nil {
		return resolvedDetails{}, err
	}
	var releaseDate *time.Time
	if t, err := time.Parse("2006-01-02", d.FirstAirDate); err == nil {
		releaseDate = &t
	}
	return resolvedDetails{TmdbID: cand.TmdbID, ItemType: structures.ItemTypeSeries, Title: d.Name, ReleaseDate: releaseDate}, nil
}

func applyStatus(ctx context.Context, store *repository.Queries, items []structures.CandidateItem, status structures.SubscriptionStatus, source string) error {
	for _, item := range items {
		tmdbID := item.TmdbID

		existing, err := store.GetMediaItem(ctx, tmdbID, item.ItemType)
		if err != nil {
			return err
		}

		if item.ItemType == structures.ItemTypeSeason || existing == nil {
			// The item's own row may not exist yet (always the case for a
			// season, and for a movie or series never synced): create it
			// (without clobbering a status set by an earlier run) before
			// writing its subscription status below.
			if err := store.UpsertMediaItem(ctx, &structures.MediaItem{
				TmdbID:              tmdbID,
				ItemType:            item.ItemType,
				Title:               item.Title,
				ReleaseDate:         item.ReleaseDate,
				ParentSeriesTmdbID:  item.ParentSeriesTmdbID,
				SeasonNumber:        item.SeasonNumber,
				InLibrary:           false,
				SubscriptionStatus:  status,
				SubscriptionSources: []string{source},
			}); err != nil {
				return err
			}
		}

		sources := []string{source}
		if existing != nil {
			sources = appendSource(existing.SubscriptionSources, source)
		}
		if err := store.SetSubscriptionStatus(ctx, tmdbID, item.ItemType, status, sources); err != nil {
			return err
		}
	}
	return nil
}

func appendSource(existing []string, source string) []string {
	for _, s := range existing {
		if s == source {
			return existing
		}
	}
	return append(existing, source)
}

// cleanupRemovedSources compares this build's tmdb_ids against the
// previously generated list, and strips this collection's source
// attribution from anything that fell out (§4.3 "Source cleanup").
func cleanupRemovedSources(ctx context.Context, store *repository.Queries, c *structures.CollectionDefinition, newIDs []string) error {
	newSet := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = true
	}
	sourceName := fmt.Sprintf("collection:%d:%s", c.ID, c.Name)

	for _, oldID := range c.GeneratedMediaInfo {
		if newSet[oldID] {
			continue
		}
		for _, itemType := range []structures.ItemType{structures.ItemTypeMovie, structures.ItemTypeSeries} {
			if err := store.RemoveSubscriptionSource(ctx, oldID, itemType, sourceName); err != nil {
				return err
			}
		}
	}
	return nil
}
