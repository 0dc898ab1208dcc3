package collections

import (
	"context"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/internal/workerpool"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// visibilityPoolWidth is the §5 scheduling-model pool width for
// per-user visibility computation.
const visibilityPoolWidth = 10

// rebuildVisibility implements the §4.3 "Per-user visibility cache":
// an admin sees the full ordered id list; a non-admin's view is the
// intersection of that list with whatever the Media Server reports
// they can access, order preserved.
func rebuildVisibility(ctx context.Context, store *repository.Queries, ms mediaserver.Client, c *structures.CollectionDefinition, orderedIDs []string) error {
	users, err := ms.GetAllUsers(ctx)
	if err != nil {
		return err
	}

	return workerpool.Run(ctx, visibilityPoolWidth, users, func(ctx context.Context, u mediaserver.User) error {
		var visible []string
		if u.Policy.IsAdministrator {
			visible = orderedIDs
		} else {
			accessible, err := ms.GetUserAccessibleItems(ctx, u.ID, orderedIDs)
			if err != nil {
				return err
			}
			visible = intersectPreservingOrder(orderedIDs, accessible)
		}

		return store.UpsertUserCollectionCache(ctx, &structures.UserCollectionCache{
			UserID:         u.ID,
			CollectionID:   c.ID,
			VisibleEmbyIDs: visible,
			TotalCount:     len(visible),
		})
	})
}

func intersectPreservingOrder(ordered []string, allowed []string) []string {
	allow := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		allow[id] = true
	}
	out := make([]string, 0, len(ordered))
	for _, id := range ordered {
		if allow[id] {
			out = append(out, id)
		}
	}
	return out
}
