package metadatasync

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// persistTopLevel composes and upserts one top-level row (Movie or
// Series) and, for a Series, its Season and Episode descendants, per
// §4.5 steps 2-4. It returns the total asset bytes newly recorded, for
// the sync job's human-readable progress summary.
func (p *Processor) persistTopLevel(
	ctx context.Context, tx *sql.Tx, key structures.MediaKey, versions []mediaserver.Item,
	movie *metadataprovider.MovieDetails, series *metadataprovider.TVDetails,
	seasonsBySeries, episodesBySeries map[string][]mediaserver.Item,
) (int64, error) {
	item := &structures.MediaItem{
		TmdbID:   key.TmdbID,
		ItemType: key.ItemType,
		InLibrary: true,
	}
	for _, v := range versions {
		item.EmbyItemIDs = append(item.EmbyItemIDs, v.ID)
	}
	if key.ItemType == structures.ItemTypeMovie {
		item.SubscriptionStatus = structures.SubscriptionNone
	}

	if movie != nil {
		item.Title = movie.Title
		item.OriginalTitle = movie.OriginalTitle
		item.Overview = movie.Overview
		item.PosterPath = movie.PosterPath
		item.OriginalLanguage = movie.OriginalLanguage
		item.Rating = movie.VoteAverage
		if t, err := time.Parse("2006-01-02", movie.ReleaseDate); err == nil {
			item.ReleaseDate = &t
			item.ReleaseYear = t.Year()
		}
		for _, g := range movie.Genres {
			item.Genres = append(item.Genres, g.Name)
		}
		for _, c := range movie.ProductionCompanies {
			item.Studios = append(item.Studios, c.Name)
		}
		var countries []string
		for _, c := range movie.ProductionCountries {
			countries = append(countries, c.Iso31661)
		}
		item.Countries = translateCountries(countries)
		for _, k := range movie.Keywords.Keywords {
			item.Keywords = append(item.Keywords, k.Name)
		}
		for _, c := range movie.Credits.Crew {
			if c.Job == "Director" {
				item.Directors = append(item.Directors, c.Name)
			}
		}
		item.AssetDetails = buildAssetDetails(versions)
	}

	if series != nil {
		item.Title = series.Name
		item.OriginalTitle = series.OriginalName
		item.Overview = series.Overview
		item.PosterPath = series.PosterPath
		item.OriginalLanguage = series.OriginalLanguage
		item.Rating = series.VoteAverage
		if t, err := time.Parse("2006-01-02", series.FirstAirDate); err == nil {
			item.ReleaseDate = &t
			item.ReleaseYear = t.Year()
		}
		for _, g := range series.Genres {
			item.Genres = append(item.Genres, g.Name)
		}
		for _, c := range series.CreatedBy {
			item.Directors = append(item.Directors, c.Name)
		}
		for _, n := range series.Networks {
			item.Studios = append(item.Studios, n.Name)
		}
		item.Countries = translateCountries(series.OriginCountry)
	}

	if err := p.Store.UpsertMediaItemTx(ctx, tx, item); err != nil {
		return 0, err
	}
	assetBytes := sumAssetBytes(item.AssetDetails)

	if series == nil {
		return assetBytes, nil
	}

	seasonBytes, err := p.persistSeasonsAndEpisodes(ctx, tx, key.TmdbID, versions, series, seasonsBySeries, episodesBySeries)
	return assetBytes + seasonBytes, err
}

// persistSeasonsAndEpisodes upserts a Season row per non-zero upstream
// season and one aggregated row per (season, episode) group, per §4.5
// step 4. It returns the total episode asset bytes newly recorded.
func (p *Processor) persistSeasonsAndEpisodes(
	ctx context.Context, tx *sql.Tx, seriesTmdbID string, versions []mediaserver.Item,
	series *metadataprovider.TVDetails, seasonsBySeries, episodesBySeries map[string][]mediaserver.Item,
) (int64, error) {
	var seasonItems, episodeItems []mediaserver.Item
	for _, v := range versions {
		seasonItems = append(seasonItems, seasonsBySeries[v.ID]...)
		episodeItems = append(episodeItems, episodesBySeries[v.ID]...)
	}

	seasonEmbyBySeasonNumber := make(map[int][]string)
	for _, s := range seasonItems {
		seasonEmbyBySeasonNumber[s.SeasonNumber] = append(seasonEmbyBySeasonNumber[s.SeasonNumber], s.ID)
	}

	for _, s := range series.Seasons {
		if s.SeasonNumber == 0 {
			continue
		}
		seasonNum := s.SeasonNumber
		seasonItem := &structures.MediaItem{
			TmdbID:             strconv.Itoa(s.ID),
			ItemType:           structures.ItemTypeSeason,
			Title:              s.Name,
			InLibrary:          true,
			ParentSeriesTmdbID: seriesTmdbID,
			SeasonNumber:       &seasonNum,
			EmbyItemIDs:        seasonEmbyBySeasonNumber[seasonNum],
		}
		spName := "season_" + seasonItem.TmdbID
		if err := repository.WithSavepoint(ctx, tx, spName, func() error {
			return p.Store.UpsertMediaItemTx(ctx, tx, seasonItem)
		}); err != nil {
			return 0, err
		}
	}

	var episodeBytes int64
	type episodeKey struct {
		season, episode int
	}
	groups := make(map[episodeKey][]mediaserver.Item)
	for _, e := range episodeItems {
		k := episodeKey{season: e.SeasonNumber, episode: e.EpisodeNumber}
		groups[k] = append(groups[k], e)
	}

	for k, group := range groups {
		first := group[0]
		tmdbID, ok := first.TmdbID()
		tmdbIDStr := ""
		if ok {
			tmdbIDStr = strconv.Itoa(tmdbID)
		} else {
			tmdbIDStr = seriesTmdbID + "-S" + strconv.Itoa(k.season) + "E" + strconv.Itoa(k.episode)
		}

		epSeason, epEpisode := k.season, k.episode
		epItem := &structures.MediaItem{
			TmdbID:             tmdbIDStr,
			ItemType:           structures.ItemTypeEpisode,
			Title:              first.Name,
			Overview:           first.Overview,
			InLibrary:          true,
			ParentSeriesTmdbID: seriesTmdbID,
			SeasonNumber:       &epSeason,
			EpisodeNumber:      &epEpisode,
			AssetDetails:       buildAssetDetails(group),
		}
		for _, e := range group {
			epItem.EmbyItemIDs = append(epItem.EmbyItemIDs, e.ID)
		}

		spName := "episode_" + epItem.TmdbID
		if err := repository.WithSavepoint(ctx, tx, spName, func() error {
			return p.Store.UpsertMediaItemTx(ctx, tx, epItem)
		}); err != nil {
			return 0, err
		}
		episodeBytes += sumAssetBytes(epItem.AssetDetails)
	}

	return episodeBytes, nil
}
