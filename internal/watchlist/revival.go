package watchlist

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// RevivalCheck implements §4.2's low-frequency revival pass: every
// Completed row is re-checked upstream; a series whose upstream status
// has left {Ended, Canceled} and whose season count grew is revived to
// Watching. Equal season counts are a mere status blip and are ignored.
func (p *Processor) RevivalCheck(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	completed, err := p.Store.ListWatchlistByStatus(ctx, structures.WatchlistCompleted)
	if err != nil {
		return err
	}

	for i, w := range completed {
		if stop.Stopped() {
			break
		}
		if err := p.revivalCheckOne(ctx, w); err != nil {
			slog.Warn("watchlist revival: series failed, continuing", "item_id", w.ItemID, "error", err)
		}
		if progress != nil {
			progress((i+1)*100/max(len(completed), 1), "revival check: "+w.ItemName)
		}
	}
	return nil
}

func (p *Processor) revivalCheckOne(ctx context.Context, w *structures.WatchlistEntry) error {
	tmdbID, err := strconv.Atoi(w.TmdbID)
	if err != nil {
		return err
	}
	series, err := p.MetadataProvider.GetTVDetails(ctx, tmdbID)
	if err != nil {
		return err
	}

	status := structures.TmdbSeriesStatus(series.Status)
	if status.IsEndedOrCanceled() {
		return nil
	}

	lastRecordedSeasons := recordedSeasonCount(w)
	if series.NumberOfSeasons <= lastRecordedSeasons {
		return nil
	}

	w.Status = structures.WatchlistWatching
	w.PausedUntil = nil
	w.ForceEnded = false
	w.TmdbStatus = status
	return p.Store.UpsertWatchlistEntry(ctx, w)
}

// recordedSeasonCount derives the last-known season count from the
// highest season number present in LastEpisodeToAir/NextEpisodeToAir, since
// the watchlist row does not carry a dedicated season-count column; in
// practice a Completed row's season ceiling is whatever was last
// persisted as fully accounted for.
func recordedSeasonCount(w *structures.WatchlistEntry) int {
	max := 0
	if w.LastEpisodeToAir != nil && w.LastEpisodeToAir.SeasonNumber > max {
		max = w.LastEpisodeToAir.SeasonNumber
	}
	if w.NextEpisodeToAir != nil && w.NextEpisodeToAir.SeasonNumber > max {
		max = w.NextEpisodeToAir.SeasonNumber
	}
	return max
}
