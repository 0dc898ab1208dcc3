// Package collections implements the Custom Collection Builder (C5):
// list- and filter-type collection evaluation, join-to-local-ids,
// Media-Server reconciliation, health analysis, source cleanup, and
// per-user visibility caching. Grounded on
// original_source/tasks/collections.py's task_process_all_custom_collections
// and _perform_list_collection_health_check, re-expressed against this
// system's mediaserver/metadataprovider clients and repository layer.
package collections

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// ListImporter returns a list-type collection's ordered candidate items,
// before id corrections and the join-to-local-ids step (§4.3).
type ListImporter interface {
	Import(ctx context.Context, source structures.ListSource) ([]structures.CandidateItem, error)
}

// NewImporter selects a ListImporter by the source URL's scheme, the
// same dispatch the badge-text contract keys off of.
func NewImporter(mp metadataprovider.Client) ListImporter {
	return &schemeImporter{metadataProvider: mp}
}

type schemeImporter struct {
	metadataProvider metadataprovider.Client
}

func (i *schemeImporter) Import(ctx context.Context, source structures.ListSource) ([]structures.CandidateItem, error) {
	url := source.SourceURL
	switch {
	case strings.Contains(url, "themoviedb.org/discover/"):
		return i.importDiscover(ctx, url)
	case strings.HasPrefix(url, "maoyan://"):
		return nil, apierrors.ErrExternalCollaboratorUnavailable().SetDetail("box-office scraping is an external collaborator; source %q", url)
	case strings.Contains(url, "douban.com/doulist"):
		return nil, apierrors.ErrExternalCollaboratorUnavailable().SetDetail("doulist scraping is an external collaborator; source %q", url)
	default:
		return nil, fmt.Errorf("collections: unrecognized list source %q", url)
	}
}

// importDiscover fetches one page of the Metadata Provider's
// popular-movies endpoint (the page named by the URL's page= parameter,
// default 1; no further pages are fetched), the one list source this
// system can serve natively without an external scraping collaborator.
func (i *schemeImporter) importDiscover(ctx context.Context, url string) ([]structures.CandidateItem, error) {
	page := pageFromDiscoverURL(url)
	results, err := i.metadataProvider.GetPopularMovies(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("collections: discover import: %w", err)
	}

	out := make([]structures.CandidateItem, 0, len(results))
	for _, r := range results {
		out = append(out, structures.CandidateItem{
			TmdbID:   strconv.Itoa(r.ID),
			ItemType: structures.ItemTypeMovie,
			Title:    r.Title,
		})
	}
	return out, nil
}

func pageFromDiscoverURL(url string) int {
	idx := strings.LastIndex(url, "page=")
	if idx < 0 {
		return 1
	}
	n, err := strconv.Atoi(url[idx+len("page="):])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
