package metadatasync

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// EnrichAliases refreshes OriginalTitle/Overview on in-library top-level
// rows the earlier sync pass left blank (upstream fetch failures, or
// rows imported before the field existed). This is deliberately a
// lighter targeted pass, distinct from SyncAll's full diff sweep.
func (p *Processor) EnrichAliases(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	keys, err := p.Store.ListInLibraryTopLevel(ctx)
	if err != nil {
		return err
	}

	total := len(keys)
	for i, k := range keys {
		if stop.Stopped() {
			break
		}
		item, err := p.Store.GetMediaItem(ctx, k.TmdbID, k.ItemType)
		if err != nil || item == nil || item.OriginalTitle != "" {
			continue
		}
		tmdbID, err := strconv.Atoi(k.TmdbID)
		if err != nil {
			continue
		}
		if k.ItemType == structures.ItemTypeMovie {
			d, err := p.MetadataProvider.GetMovieDetails(ctx, tmdbID, nil)
			if err != nil {
				continue
			}
			item.OriginalTitle = d.OriginalTitle
			if item.Overview == "" {
				item.Overview = d.Overview
			}
		} else {
			d, err := p.MetadataProvider.GetTVDetails(ctx, tmdbID)
			if err != nil {
				continue
			}
			item.OriginalTitle = d.OriginalName
			if item.Overview == "" {
				item.Overview = d.Overview
			}
		}
		if err := p.Store.UpsertMediaItem(ctx, item); err != nil {
			continue
		}
		if progress != nil {
			progress((i+1)*100/max(total, 1), fmt.Sprintf("enriched %s", item.Title))
		}
	}
	return nil
}

// SyncImagesMap refreshes poster_path on in-library top-level rows from
// the Metadata Provider. Actual poster-file rendering is an external
// collaborator (§1 Non-goals); this keeps only the catalog's reference
// path current.
func (p *Processor) SyncImagesMap(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	keys, err := p.Store.ListInLibraryTopLevel(ctx)
	if err != nil {
		return err
	}

	total := len(keys)
	for i, k := range keys {
		if stop.Stopped() {
			break
		}
		item, err := p.Store.GetMediaItem(ctx, k.TmdbID, k.ItemType)
		if err != nil || item == nil {
			continue
		}
		tmdbID, err := strconv.Atoi(k.TmdbID)
		if err != nil {
			continue
		}
		var poster string
		if k.ItemType == structures.ItemTypeMovie {
			d, err := p.MetadataProvider.GetMovieDetails(ctx, tmdbID, nil)
			if err != nil {
				continue
			}
			poster = d.PosterPath
		} else {
			d, err := p.MetadataProvider.GetTVDetails(ctx, tmdbID)
			if err != nil {
				continue
			}
			poster = d.PosterPath
		}
		if poster == "" || poster == item.PosterPath {
			continue
		}
		item.PosterPath = poster
		if err := p.Store.UpsertMediaItem(ctx, item); err != nil {
			continue
		}
		if progress != nil {
			progress((i+1)*100/max(total, 1), fmt.Sprintf("image map: %s", item.Title))
		}
	}
	return nil
}

// EpisodeTopUp implements the §4.5 "Targeted episode top-up": a webhook
// reporting new episodes triggers syncing assets for just those
// episodes, touching the series' last_synced_at, and notifying the user.
// This is the single-target body TaskEpisodeTopUp's registry entry
// defers to, called directly rather than through RunTask.
func (p *Processor) EpisodeTopUp(ctx context.Context, seriesTmdbID string, newEpisodeEmbyIDs []string) error {
	items, err := p.MediaServer.GetItemsByIDs(ctx, newEpisodeEmbyIDs, syncFields)
	if err != nil {
		return fmt.Errorf("episode top-up: fetch episodes: %w", err)
	}

	type episodeKey struct{ season, episode int }
	groups := make(map[episodeKey][]int)
	for i, it := range items {
		k := episodeKey{season: it.SeasonNumber, episode: it.EpisodeNumber}
		groups[k] = append(groups[k], i)
	}

	seriesItem, seriesErr := p.Store.GetMediaItem(ctx, seriesTmdbID, structures.ItemTypeSeries)

	tx, err := p.Store.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for k, idxs := range groups {
		group := make([]mediaserver.Item, 0, len(idxs))
		for _, i := range idxs {
			group = append(group, items[i])
		}
		epSeason, epEpisode := k.season, k.episode
		first := group[0]
		tmdbID, ok := first.TmdbID()
		tmdbIDStr := seriesTmdbID + "-S" + strconv.Itoa(epSeason) + "E" + strconv.Itoa(epEpisode)
		if ok {
			tmdbIDStr = strconv.Itoa(tmdbID)
		}
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
		for _, item := range group {
			epItem.EmbyItemIDs = append(epItem.EmbyItemIDs, item.ID)
		}
		if err := p.Store.UpsertMediaItemTx(ctx, tx, epItem); err != nil {
			return err
		}
	}

	if seriesErr == nil && seriesItem != nil {
		_ = p.Store.UpsertMediaItemTx(ctx, tx, seriesItem)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if p.Notifier != nil && seriesItem != nil && p.NotifyChatID != "" {
		_ = p.Notifier.SendText(ctx, p.NotifyChatID, fmt.Sprintf("%s has %d new episode(s) available", seriesItem.Title, len(items)))
	}
	return nil
}
