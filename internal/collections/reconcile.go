package collections

import (
	"context"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// reconcile upserts the Media-Server collection container for c, keyed
// by name, and sets its children to exactly orderedIDs (§4.3
// "Reconciliation"). It returns the container id.
func reconcile(ctx context.Context, ms mediaserver.Client, c *structures.CollectionDefinition, orderedIDs []string) (string, error) {
	return ms.CreateOrUpdateCollection(ctx, c.Name, orderedIDs)
}
