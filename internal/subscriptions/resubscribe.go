package subscriptions

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/kestrelmedia/archivist/internal/clients/downloader"
	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/internal/watchlist"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// finaleCooldown skips resubscribe candidates whose last known episode
// aired too recently to call the gap final (§4.4).
const finaleCooldown = 7 * 24 * time.Hour

// resubCooldown bounds how often the same season is resubmitted (§4.4).
const resubCooldown = 24 * time.Hour

// bestVersionOne is the MoviePilot best_version flag requesting an
// upgrade pass rather than a fresh subscribe.
var bestVersionOne = 1

// Resubscribe implements watchlist.Resubscriber: it walks the union of
// resubscribe candidates and, for each interior episode gap old enough
// to not be simply pending release, submits a best-version subscribe
// request gated by cooldown and quota. Grounded on
// original_source/watchlist_processor.py's resubscribe pass.
func (c *Controller) Resubscribe(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	candidates, err := c.Store.ResubscribeCandidates(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	total := len(candidates)
	for i, w := range candidates {
		if stop.Stopped() {
			break
		}
		if err := c.resubscribeOne(ctx, w); err != nil {
			slog.Error("subscriptions: resubscribe failed for series, continuing", "item_id", w.ItemID, "error", err)
		}
		if progress != nil {
			progress((i+1)*100/max(total, 1), "resubscribe pass")
		}
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (c *Controller) resubscribeOne(ctx context.Context, w *structures.WatchlistEntry) error {
	if w.LastEpisodeToAir != nil && w.LastEpisodeToAir.AirDate != nil {
		if time.Since(*w.LastEpisodeToAir.AirDate) < finaleCooldown {
			return nil
		}
	}
	if w.MissingInfo == nil || len(w.MissingInfo.MissingEpisodes) == 0 {
		return nil
	}

	children, err := c.MediaServerInventory(ctx, w.ItemID)
	if err != nil {
		return err
	}
	local := watchlist.BuildLocalInventory(children)

	now := time.Now().UTC()
	changed := false
	for _, missing := range w.MissingInfo.MissingEpisodes {
		maxLocal, ok := local.MaxEpisode(missing.SeasonNumber)
		if !ok || maxLocal <= missing.EpisodeNumber {
			// No local episode past this gap yet: the episode simply
			// hasn't been released/downloaded, not an interior hole.
			continue
		}

		if last, ok := w.ResubscribeInfo[missing.SeasonNumber]; ok && now.Sub(last) < resubCooldown {
			continue
		}
		if !c.Quota.Decrement() {
			return nil
		}

		tmdbID, err := strconv.Atoi(w.TmdbID)
		if err != nil {
			return err
		}
		season := missing.SeasonNumber
		if err := c.Downloader.Subscribe(ctx, downloader.SubscribeRequest{
			Name:        w.ItemName,
			TmdbID:      tmdbID,
			Kind:        downloader.MediaSeries,
			Season:      &season,
			BestVersion: &bestVersionOne,
		}); err != nil {
			slog.Error("subscriptions: resubscribe submit failed", "item_id", w.ItemID, "season", season, "error", err)
			continue
		}

		if w.ResubscribeInfo == nil {
			w.ResubscribeInfo = make(map[int]time.Time)
		}
		w.ResubscribeInfo[missing.SeasonNumber] = now
		changed = true
	}

	if !changed {
		return nil
	}

	w.Status = structures.WatchlistWatching
	w.PausedUntil = nil
	return c.Store.UpsertWatchlistEntry(ctx, w)
}

// MediaServerInventory fetches a series' children for a fresh local
// inventory snapshot, delegated through the same client interface the
// Watchlist Engine uses.
func (c *Controller) MediaServerInventory(ctx context.Context, itemID string) ([]mediaserver.Item, error) {
	return c.MediaServer.GetSeriesChildren(ctx, itemID, []string{"Id", "Name", "ParentIndexNumber", "IndexNumber", "Type", "Overview"})
}
