package collections

import (
	"context"

	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// joinLocalIDs resolves a local Media-Server id for every candidate that
// doesn't already carry one, by composite-key lookup against the
// Catalog Store, preserving input ordering (§4.3 "Join to local ids").
func joinLocalIDs(ctx context.Context, store *repository.Queries, candidates []structures.CandidateItem) ([]structures.CandidateItem, error) {
	out := make([]structures.CandidateItem, len(candidates))
	for i, c := range candidates {
		if c.LocalEmbyID != "" || c.SeasonNumber != nil {
			// Explicit-season candidates are resolved against the
			// precomputed in-library-seasons set during health analysis,
			// not the top-level composite key (§4.3 step 2).
			out[i] = c
			continue
		}
		item, err := store.GetMediaItem(ctx, c.TmdbID, c.ItemType)
		if err != nil {
			return nil, err
		}
		if item != nil && len(item.EmbyItemIDs) > 0 {
			c.LocalEmbyID = item.EmbyItemIDs[0]
		}
		out[i] = c
	}
	return out, nil
}
