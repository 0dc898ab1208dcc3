package watchlist

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/internal/workerpool"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// refreshWidth is the §5/§4.2 worker-pool width for concurrent series
// refresh ("up to 5 series processed in parallel").
const refreshWidth = 5

// seasonFetchSpacing is the per-season politeness delay inside a single
// series' refresh (§4.2: "serial with a 100 ms spacing").
const seasonFetchSpacing = 100 * time.Millisecond

// Resubscriber runs the best-version resubscribe pass over watchlist
// rows (§4.4). It is implemented by internal/subscriptions.Controller;
// the Watchlist Engine only holds the interface so the two packages
// don't import each other — the registry dispatches
// subscription-resubscribe to the watchlist processor kind (§4.1
// defines only three processor kinds, and resubscribe walks watchlist
// rows).
type Resubscriber interface {
	Resubscribe(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error
}

// Processor implements scheduler.Processor for ProcessorWatchlist,
// grounded on the teacher's BaseJob wrapping a concrete task body.
type Processor struct {
	Store            *repository.Queries
	MediaServer      mediaserver.Client
	MetadataProvider metadataprovider.Client
	Resubscriber     Resubscriber
}

// RunTask dispatches to the watchlist-engine task bodies by key.
func (p *Processor) RunTask(ctx context.Context, key structures.TaskKey, stop *scheduler.StopFlag, progress scheduler.ProgressFunc, _ bool) error {
	switch key {
	case structures.TaskWatchlistRefresh:
		return p.RefreshAll(ctx, stop, progress)
	case structures.TaskWatchlistRevival:
		return p.RevivalCheck(ctx, stop, progress)
	case structures.TaskSubscriptionResub:
		if p.Resubscriber == nil {
			return fmt.Errorf("watchlist processor: no resubscriber wired")
		}
		return p.Resubscriber.Resubscribe(ctx, stop, progress)
	default:
		return fmt.Errorf("watchlist processor cannot run task %s", key)
	}
}

// RefreshAll walks every active (Watching or Paused) watchlist row,
// refreshing up to refreshWidth series concurrently (§4.2).
func (p *Processor) RefreshAll(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	entries, err := p.Store.ListWatchlistActive(ctx)
	if err != nil {
		return err
	}

	total := len(entries)
	var done int32
	failed := workerpool.RunCollecting(ctx, refreshWidth, entries, func(ctx context.Context, w *structures.WatchlistEntry) error {
		if stop.Stopped() {
			return nil
		}
		err := p.RefreshOne(ctx, w)
		n := atomic.AddInt32(&done, 1)
		if progress != nil {
			progress(int(n)*100/max(total, 1), fmt.Sprintf("refreshed %s", w.ItemName))
		}
		return err
	}, func(w *structures.WatchlistEntry, err error) {
		slog.Error("watchlist refresh: series failed, continuing batch", "item_id", w.ItemID, "error", err)
	})

	if failed > 0 {
		slog.Warn("watchlist refresh: some series failed", "failed", failed, "total", total)
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// RefreshOne implements the §4.2 per-series refresh algorithm end to end
// for a single watchlist row.
func (p *Processor) RefreshOne(ctx context.Context, w *structures.WatchlistEntry) error {
	// Step 1: existence check.
	if _, err := p.MediaServer.GetItem(ctx, w.ItemID, []string{"Id", "Name"}); err != nil {
		slog.Warn("watchlist: series no longer in media server, removing", "item_id", w.ItemID, "name", w.ItemName)
		return p.Store.DeleteWatchlistEntry(ctx, w.ItemID)
	}

	// Step 2: fetch upstream series + per-season episode lists.
	tmdbID, err := strconv.Atoi(w.TmdbID)
	if err != nil {
		return fmt.Errorf("watchlist: invalid tmdb id %q: %w", w.TmdbID, err)
	}
	series, err := p.MetadataProvider.GetTVDetails(ctx, tmdbID)
	if err != nil {
		return fmt.Errorf("watchlist: fetch tv details for %s: %w", w.ItemName, err)
	}

	var seasons []*metadataprovider.SeasonDetails
	var upstreamSeasonNumbers []int
	for i, s := range series.Seasons {
		if s.SeasonNumber == 0 {
			continue
		}
		upstreamSeasonNumbers = append(upstreamSeasonNumbers, s.SeasonNumber)
		details, err := p.MetadataProvider.GetTVSeasonDetails(ctx, tmdbID, s.SeasonNumber)
		if err != nil {
			slog.Warn("watchlist: season fetch failed, skipping season", "series", w.ItemName, "season", s.SeasonNumber, "error", err)
			continue
		}
		seasons = append(seasons, details)
		if i < len(series.Seasons)-1 {
			time.Sleep(seasonFetchSpacing)
		}
	}
	episodes := collectEpisodes(seasons)

	// Step 3: local inventory from Media-Server children.
	children, err := p.MediaServer.GetSeriesChildren(ctx, w.ItemID, []string{"Id", "Name", "ParentIndexNumber", "IndexNumber", "Type", "Overview"})
	if err != nil {
		return fmt.Errorf("watchlist: fetch series children for %s: %w", w.ItemName, err)
	}
	local := buildLocalInventory(children)

	// Steps 4-7: compute gaps, next episode, metadata completeness, finale.
	missingInfo := computeMissingInfo(upstreamSeasonNumbers, episodes, local)
	realNext := computeRealNextEpisode(episodes, local)
	metadataComplete := hasCompleteMetadata(episodes)

	var lastEp, nextEp *structures.EpisodeRef
	if series.LastEpisodeToAir != nil {
		lastEp = toEpisodeRef(series.LastEpisodeToAir)
	}
	if series.NextEpisodeToAir != nil {
		nextEp = toEpisodeRef(series.NextEpisodeToAir)
	}
	now := time.Now().UTC()
	finale := isSeasonFinale(lastEp, nextEp, now)

	// Step 8: state transition.
	transition := computeTransition(missingInfo, metadataComplete, structures.TmdbSeriesStatus(series.Status), finale, realNext, w.ForceEnded, now)

	// Step 9: side effects, in order.
	w.Status = transition.Status
	w.PausedUntil = transition.PausedUntil
	w.TmdbStatus = structures.TmdbSeriesStatus(series.Status)
	w.MissingInfo = &missingInfo
	w.LastEpisodeToAir = lastEp
	w.IsAiring = transition.IsAiring
	if realNext != nil {
		w.NextEpisodeToAir = &structures.EpisodeRef{SeasonNumber: realNext.SeasonNumber, EpisodeNumber: realNext.EpisodeNumber}
		if t, err := time.Parse("2006-01-02", realNext.AirDate); err == nil {
			w.NextEpisodeToAir.AirDate = &t
		}
	} else {
		w.NextEpisodeToAir = nil
	}
	if err := p.Store.UpsertWatchlistEntry(ctx, w); err != nil {
		return fmt.Errorf("watchlist: persist %s: %w", w.ItemName, err)
	}

	return p.pushMissingOverviews(ctx, w, children, episodes)
}

// pushMissingOverviews backfills blank local episode overviews from
// upstream data and keeps the in-memory children slice in sync, per
// §4.2 step 9.
func (p *Processor) pushMissingOverviews(ctx context.Context, w *structures.WatchlistEntry, children []mediaserver.Item, episodes []tmdbEpisode) error {
	upstreamByKey := make(map[[2]int]tmdbEpisode, len(episodes))
	for _, ep := range episodes {
		upstreamByKey[[2]int{ep.SeasonNumber, ep.EpisodeNumber}] = ep
	}

	for i := range children {
		c := &children[i]
		if c.Type != "Episode" || c.Overview != "" {
			continue
		}
		up, ok := upstreamByKey[[2]int{c.SeasonNumber, c.EpisodeNumber}]
		if !ok || up.Overview == "" {
			continue
		}
		if err := p.MediaServer.UpdateItemDetails(ctx, c.ID, map[string]interface{}{
			"Overview": up.Overview,
		}); err != nil {
			slog.Warn("watchlist: failed to push overview", "item_id", c.ID, "error", err)
			continue
		}
		c.Overview = up.Overview
	}

	return p.rewriteChildrenSnapshot(ctx, w, children)
}

// rewriteChildrenSnapshot writes the flat {Id,Type,Name,SeasonNumber,
// EpisodeNumber?,Overview?} list onto the series' catalog row.
func (p *Processor) rewriteChildrenSnapshot(ctx context.Context, w *structures.WatchlistEntry, children []mediaserver.Item) error {
	item, err := p.Store.GetMediaItem(ctx, w.TmdbID, structures.ItemTypeSeries)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}

	snapshot := make([]structures.ChildSummary, 0, len(children))
	for _, c := range children {
		snapshot = append(snapshot, structures.ChildSummary{
			ID:            c.ID,
			Type:          c.Type,
			Name:          c.Name,
			SeasonNumber:  c.SeasonNumber,
			EpisodeNumber: c.EpisodeNumber,
			Overview:      c.Overview,
		})
	}
	item.EmbyChildrenDetails = snapshot
	return p.Store.UpsertMediaItem(ctx, item)
}

func toEpisodeRef(e *metadataprovider.EpisodeRef) *structures.EpisodeRef {
	ref := &structures.EpisodeRef{
		SeasonNumber:  e.SeasonNumber,
		EpisodeNumber: e.EpisodeNumber,
		Name:          e.Name,
		Overview:      e.Overview,
	}
	if t, err := time.Parse("2006-01-02", e.AirDate); err == nil {
		ref.AirDate = &t
	}
	return ref
}
