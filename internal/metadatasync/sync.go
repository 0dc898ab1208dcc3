// Package metadatasync implements the Media Metadata Sync (C3): the
// batched diff-based mirror of Media-Server inventory into the Catalog
// Store, plus the lighter-weight alias/image-map passes and targeted
// episode top-up that round out the "media" processor kind (§4.1
// registers Collections-Rebuild onto this same kind, so this package
// also fans out to a CollectionBuilder). Grounded on
// original_source/tasks/media.py's task_populate_metadata_cache (the
// bucket/diff/upsert sweep) and task_sync_metadata_cache (the targeted
// top-up), re-expressed against this system's mediaserver/
// metadataprovider clients and repository layer.
package metadatasync

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/clients/notifier"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/internal/workerpool"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// fetchWidth is the §5 "metadata fetch pool width 5".
const fetchWidth = 5

// batchSize is the §4.5 "batch of 50" top-level processing unit.
const batchSize = 50

var syncFields = []string{
	"ProviderIds", "Type", "Name", "OriginalTitle", "PremiereDate", "CommunityRating",
	"Genres", "Studios", "OfficialRating", "ProductionYear", "Path", "Overview",
	"MediaStreams", "Container", "Size", "SeriesId", "ParentIndexNumber", "IndexNumber",
}

// CollectionBuilder runs the Collection Builder's rebuild pass (§4.3).
// Declared here, implemented by internal/collections.Builder, so the two
// packages don't import each other; the registry dispatches
// collections-rebuild onto the media processor kind.
type CollectionBuilder interface {
	RebuildAll(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error
}

// WatchlistAutoAdder runs the Watchlist Engine's auto-add rule (§4.2)
// for a Series top-level row the sweep is ingesting for the first time.
// Declared here, implemented by internal/watchlist.Processor, so the
// two packages don't import each other.
type WatchlistAutoAdder interface {
	AutoAdd(ctx context.Context, itemID, itemName, tmdbID string) error
}

// Processor implements scheduler.Processor for ProcessorMedia.
type Processor struct {
	Store            *repository.Queries
	MediaServer      mediaserver.Client
	MetadataProvider metadataprovider.Client
	Notifier         notifier.Client
	Collections      CollectionBuilder
	Watchlist        WatchlistAutoAdder
	LibraryIDs       []string
	NotifyChatID     string
}

// RunTask dispatches the media-processor task bodies by key.
func (p *Processor) RunTask(ctx context.Context, key structures.TaskKey, stop *scheduler.StopFlag, progress scheduler.ProgressFunc, forceFullUpdate bool) error {
	switch key {
	case structures.TaskFullScan:
		return p.SyncAll(ctx, stop, progress, true)
	case structures.TaskMetadataPopulate, structures.TaskMetadataSync:
		return p.SyncAll(ctx, stop, progress, forceFullUpdate)
	case structures.TaskEnrichAliases:
		return p.EnrichAliases(ctx, stop, progress)
	case structures.TaskSyncImagesMap:
		return p.SyncImagesMap(ctx, stop, progress)
	case structures.TaskCollectionsRebuild:
		if p.Collections == nil {
			return fmt.Errorf("media processor: no collection builder wired")
		}
		return p.Collections.RebuildAll(ctx, stop, progress)
	case structures.TaskEpisodeTopUp:
		return fmt.Errorf("episode-top-up requires a series id and episode ids; use EpisodeTopUp directly")
	default:
		return fmt.Errorf("media processor cannot run task %s", key)
	}
}

// SyncAll implements the §4.5 bucket/diff/upsert sweep. deep=true
// processes every in-library top-level item (the full-scan task);
// deep=false processes only items the catalog doesn't yet have
// (the incremental metadata-populate/metadata-sync tasks).
func (p *Processor) SyncAll(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc, deep bool) error {
	if len(p.LibraryIDs) == 0 {
		return fmt.Errorf("metadata sync: empty library allowlist")
	}

	if progress != nil {
		progress(0, "listing media server inventory")
	}
	items, err := p.MediaServer.ListItems(ctx, p.LibraryIDs, []string{"Movie", "Series", "Season", "Episode"}, syncFields)
	if err != nil {
		return fmt.Errorf("metadata sync: list items: %w", err)
	}

	topLevel := make(map[structures.MediaKey][]mediaserver.Item)
	seasonsBySeries := make(map[string][]mediaserver.Item)
	episodesBySeries := make(map[string][]mediaserver.Item)

	for _, it := range items {
		switch it.Type {
		case "Movie", "Series":
			tmdbID, ok := it.TmdbID()
			if !ok {
				continue
			}
			key := structures.MediaKey{TmdbID: strconv.Itoa(tmdbID), ItemType: structures.ItemType(it.Type)}
			topLevel[key] = append(topLevel[key], it)
		case "Season":
			if it.SeriesID != "" {
				seasonsBySeries[it.SeriesID] = append(seasonsBySeries[it.SeriesID], it)
			}
		case "Episode":
			if it.SeriesID != "" {
				episodesBySeries[it.SeriesID] = append(episodesBySeries[it.SeriesID], it)
			}
		}
	}

	embySet := make(map[structures.MediaKey]bool, len(topLevel))
	for k := range topLevel {
		embySet[k] = true
	}

	dbKeys, err := p.Store.ListInLibraryTopLevel(ctx)
	if err != nil {
		return err
	}
	dbSet := make(map[structures.MediaKey]bool, len(dbKeys))
	for _, k := range dbKeys {
		dbSet[k] = true
	}

	var toRetire []structures.MediaKey
	for k := range dbSet {
		if !embySet[k] {
			toRetire = append(toRetire, k)
		}
	}
	if len(toRetire) > 0 {
		if err := p.Store.MarkOutOfLibrary(ctx, toRetire); err != nil {
			return err
		}
	}

	var toProcess []structures.MediaKey
	for k := range embySet {
		if deep || !dbSet[k] {
			toProcess = append(toProcess, k)
		}
	}

	slog.Info("metadata sync: plan computed", "to_process", len(toProcess), "to_retire", len(toRetire), "deep", deep)

	total := len(toProcess)
	var totalBytesAdded int64
	for i := 0; i < total; i += batchSize {
		if stop.Stopped() {
			return nil
		}
		end := i + batchSize
		if end > total {
			end = total
		}
		batch := toProcess[i:end]

		type fetched struct {
			key    structures.MediaKey
			movie  *metadataprovider.MovieDetails
			series *metadataprovider.TVDetails
		}
		results := make([]fetched, len(batch))
		_ = workerpool.Run(ctx, fetchWidth, makeIndices(len(batch)), func(ctx context.Context, idx int) error {
			key := batch[idx]
			tmdbID, err := strconv.Atoi(key.TmdbID)
			if err != nil {
				return err
			}
			if key.ItemType == structures.ItemTypeMovie {
				d, err := p.MetadataProvider.GetMovieDetails(ctx, tmdbID, []string{"credits", "keywords"})
				if err != nil {
					slog.Warn("metadata sync: movie fetch failed, skipping", "tmdb_id", key.TmdbID, "error", err)
					return nil
				}
				results[idx] = fetched{key: key, movie: d}
			} else {
				d, err := p.MetadataProvider.GetTVDetails(ctx, tmdbID)
				if err != nil {
					slog.Warn("metadata sync: series fetch failed, skipping", "tmdb_id", key.TmdbID, "error", err)
					return nil
				}
				results[idx] = fetched{key: key, series: d}
			}
			return nil
		})

		tx, err := p.Store.DB().BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		var newSeries []fetched
		for _, r := range results {
			if r.movie == nil && r.series == nil {
				continue
			}
			spName := fmt.Sprintf("sync_%s_%s", r.key.ItemType, r.key.TmdbID)
			var rowBytes int64
			err := repository.WithSavepoint(ctx, tx, spName, func() error {
				n, err := p.persistTopLevel(ctx, tx, r.key, topLevel[r.key], r.movie, r.series, seasonsBySeries, episodesBySeries)
				rowBytes = n
				return err
			})
			if err != nil {
				slog.Error("metadata sync: row failed, rolled back to savepoint", "tmdb_id", r.key.TmdbID, "item_type", r.key.ItemType, "error", err)
				continue
			}
			totalBytesAdded += rowBytes
			if r.series != nil && !dbSet[r.key] {
				newSeries = append(newSeries, r)
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		if p.Watchlist != nil {
			for _, r := range newSeries {
				versions := topLevel[r.key]
				if len(versions) == 0 {
					continue
				}
				if err := p.Watchlist.AutoAdd(ctx, versions[0].ID, r.series.Name, r.key.TmdbID); err != nil {
					slog.Error("metadata sync: watchlist auto-add failed", "tmdb_id", r.key.TmdbID, "error", err)
				}
			}
		}

		if progress != nil {
			progress(int(end)*100/max(total, 1), fmt.Sprintf("synced %d/%d", end, total))
		}
	}

	if progress != nil {
		progress(100, "metadata sync complete")
	}
	slog.Info("metadata sync: complete", "processed", total, "retired", len(toRetire), "assets_added", humanize.Bytes(uint64(totalBytesAdded)))
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func makeIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
