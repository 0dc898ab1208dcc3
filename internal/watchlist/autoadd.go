package watchlist

import (
	"context"
	"strconv"

	"github.com/kestrelmedia/archivist/pkg/structures"
)

// AutoAdd implements §4.2's auto-add rule: when a new Series appears in
// the library, its initial watchlist status derives solely from its
// upstream tmdb_status. Called by the Media Metadata Sync (C3) when a
// newly-ingested row is a Series not already on the watchlist.
func (p *Processor) AutoAdd(ctx context.Context, itemID, itemName, tmdbID string) error {
	existing, err := p.Store.GetWatchlistEntry(ctx, itemID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	id, err := strconv.Atoi(tmdbID)
	if err != nil {
		return err
	}
	series, err := p.MetadataProvider.GetTVDetails(ctx, id)
	if err != nil {
		return err
	}

	status := structures.TmdbSeriesStatus(series.Status)
	entry := &structures.WatchlistEntry{
		ItemID:     itemID,
		TmdbID:     tmdbID,
		ItemName:   itemName,
		ItemType:   structures.ItemTypeSeries,
		Status:     autoAddStatus(status),
		TmdbStatus: status,
	}
	return p.Store.UpsertWatchlistEntry(ctx, entry)
}
