package collections

import (
	"context"
	"fmt"

	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// Builder runs the full Custom Collection Builder pipeline (§4.3):
// import, correct, join, reconcile, health-check, and compute per-user
// visibility for every enabled collection definition.
type Builder struct {
	Store            *repository.Queries
	MediaServer      mediaserver.Client
	MetadataProvider metadataprovider.Client
	Importer         ListImporter
}

// NewBuilder wires a Builder from its collaborators, defaulting the
// ListImporter to the scheme-dispatching implementation in importer.go.
func NewBuilder(store *repository.Queries, ms mediaserver.Client, mp metadataprovider.Client) *Builder {
	return &Builder{
		Store:            store,
		MediaServer:      ms,
		MetadataProvider: mp,
		Importer:         NewImporter(mp),
	}
}

// RebuildAll satisfies metadatasync.CollectionBuilder: it rebuilds every
// enabled collection definition in turn, continuing past a single
// collection's failure so one bad definition can't halt the rest.
func (b *Builder) RebuildAll(ctx context.Context, stop *scheduler.StopFlag, progress scheduler.ProgressFunc) error {
	defs, err := b.Store.ListEnabledCollections(ctx)
	if err != nil {
		return fmt.Errorf("collections: list enabled: %w", err)
	}

	total := len(defs)
	for i, def := range defs {
		if stop.Stopped() {
			break
		}
		if err := b.rebuildOne(ctx, def); err != nil {
			if progress != nil {
				progress((i+1)*100/max(total, 1), fmt.Sprintf("%s: %v", def.Name, err))
			}
			continue
		}
		if progress != nil {
			progress((i+1)*100/max(total, 1), fmt.Sprintf("rebuilt %s", def.Name))
		}
	}
	return nil
}

func (b *Builder) rebuildOne(ctx context.Context, c *structures.CollectionDefinition) error {
	var (
		candidates []structures.CandidateItem
		reverse    map[string]string
	)

	switch c.Type {
	case structures.CollectionTypeList:
		if c.ListDefinition == nil || c.ListDefinition.Source.SourceURL == "" {
			return fmt.Errorf("list collection %q has no definition", c.Name)
		}
		raw, err := b.Importer.Import(ctx, c.ListDefinition.Source)
		if err != nil {
			return err
		}
		candidates, reverse = applyCorrections(raw, c.ListDefinition.Corrections)
		candidates, err = joinLocalIDs(ctx, b.Store, candidates)
		if err != nil {
			return err
		}
	case structures.CollectionTypeFilter:
		var err error
		candidates, err = evaluateFilterCollection(ctx, b.Store, c)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("collection %q has unknown type %q", c.Name, c.Type)
	}

	orderedIDs := make([]string, 0, len(candidates))
	newTmdbIDs := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		newTmdbIDs = append(newTmdbIDs, cand.TmdbID)
		if cand.LocalEmbyID == "" || seen[cand.LocalEmbyID] {
			continue
		}
		seen[cand.LocalEmbyID] = true
		orderedIDs = append(orderedIDs, cand.LocalEmbyID)
	}

	containerID, err := reconcile(ctx, b.MediaServer, c, orderedIDs)
	if err != nil {
		return err
	}
	c.EmbyCollectionID = containerID
	c.InLibraryCount = len(orderedIDs)

	if c.Type == structures.CollectionTypeList {
		if err := cleanupRemovedSources(ctx, b.Store, c, newTmdbIDs); err != nil {
			return err
		}
		result, err := runHealthAnalysis(ctx, b.Store, b.MetadataProvider, c, candidates, reverse)
		if err != nil {
			return err
		}
		c.HealthStatus = result.Status
		c.MissingCount = result.MissingCount
	} else {
		c.HealthStatus = structures.HealthOK
		c.MissingCount = 0
	}
	c.GeneratedMediaInfo = newTmdbIDs

	if err := b.Store.UpdateCollectionBuildResult(ctx, c); err != nil {
		return err
	}

	return rebuildVisibility(ctx, b.Store, b.MediaServer, c, orderedIDs)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
