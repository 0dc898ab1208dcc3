// Package subscriptions implements the Subscription Controller (C6):
// the human-request path with its VIP/non-VIP branching and global
// idempotency check, and the best-version resubscribe pass for gaps.
// Grounded on original_source/moviepilot_handler.py (the smart_subscribe
// parse-then-submit flow) and original_source/watchlist_processor.py's
// resubscribe candidate handling, re-expressed against this system's
// downloader/metadataprovider clients and repository layer.
package subscriptions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kestrelmedia/archivist/internal/clients/downloader"
	"github.com/kestrelmedia/archivist/internal/clients/mediaserver"
	"github.com/kestrelmedia/archivist/internal/clients/metadataprovider"
	"github.com/kestrelmedia/archivist/internal/db/repository"
	"github.com/kestrelmedia/archivist/internal/ratelimit"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
	"github.com/kestrelmedia/archivist/pkg/structures"
	"github.com/kestrelmedia/archivist/pkg/textparse"
)

// Controller implements the human-request subscription path and, via
// Resubscribe, watchlist.Resubscriber.
type Controller struct {
	Store            *repository.Queries
	Downloader       downloader.Client
	MetadataProvider metadataprovider.Client
	MediaServer      mediaserver.Client
	Quota            *ratelimit.Quota
	VIPUserIDs       map[string]bool
}

// NewController builds a Controller, indexing vipUserIDs for O(1)
// membership checks.
func NewController(store *repository.Queries, d downloader.Client, mp metadataprovider.Client, ms mediaserver.Client, quota *ratelimit.Quota, vipUserIDs []string) *Controller {
	vip := make(map[string]bool, len(vipUserIDs))
	for _, id := range vipUserIDs {
		vip[id] = true
	}
	return &Controller{Store: store, Downloader: d, MetadataProvider: mp, MediaServer: ms, Quota: quota, VIPUserIDs: vip}
}

// Request is the human-originated subscription request inputs (§4.4).
type Request struct {
	EmbyUserID string
	TmdbID     string
	ItemType   structures.ItemType
	ItemName   string
}

// RequestResult reports the outcome of Submit.
type RequestResult struct {
	Status       structures.RequestStatus
	ProcessedBy  string
	Existing     bool
	RequestToken string
}

// Submit implements §4.4's human-request path: idempotency check, then
// VIP/non-VIP branching.
func (c *Controller) Submit(ctx context.Context, req Request) (*RequestResult, error) {
	existing, err := c.Store.FindActiveRequestByTmdbID(ctx, req.TmdbID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &RequestResult{Status: existing.Status, ProcessedBy: existing.ProcessedBy, Existing: true}, nil
	}

	if !c.VIPUserIDs[req.EmbyUserID] {
		row := &structures.SubscriptionRequest{
			EmbyUserID: req.EmbyUserID,
			TmdbID:     req.TmdbID,
			ItemType:   req.ItemType,
			ItemName:   req.ItemName,
			Status:     structures.RequestPending,
		}
		if _, err := c.Store.InsertSubscriptionRequest(ctx, row); err != nil {
			return nil, err
		}
		return &RequestResult{Status: structures.RequestPending, RequestToken: row.RequestToken}, nil
	}

	return c.autoSubscribeVIP(ctx, req)
}

// autoSubscribeVIP implements §4.4's VIP branch: movie path is a single
// payload; series path is the smart parse-then-submit, one approved row
// per season actually submitted.
func (c *Controller) autoSubscribeVIP(ctx context.Context, req Request) (*RequestResult, error) {
	if req.ItemType == structures.ItemTypeMovie {
		return c.autoSubscribeMovie(ctx, req)
	}
	return c.autoSubscribeSeries(ctx, req)
}

func (c *Controller) autoSubscribeMovie(ctx context.Context, req Request) (*RequestResult, error) {
	if !c.Quota.Decrement() {
		return nil, apierrors.ErrQuotaExhausted()
	}

	tmdbID, err := strconv.Atoi(req.TmdbID)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: invalid tmdb id %q: %w", req.TmdbID, err)
	}
	if err := c.Downloader.Subscribe(ctx, downloader.SubscribeRequest{
		Name:   req.ItemName,
		TmdbID: tmdbID,
		Kind:   downloader.MediaMovie,
	}); err != nil {
		return nil, err
	}

	row := &structures.SubscriptionRequest{
		EmbyUserID:  req.EmbyUserID,
		TmdbID:      req.TmdbID,
		ItemType:    req.ItemType,
		ItemName:    req.ItemName,
		Status:      structures.RequestApproved,
		ProcessedBy: structures.ProcessedByAuto,
	}
	if _, err := c.Store.InsertSubscriptionRequest(ctx, row); err != nil {
		return nil, err
	}
	return &RequestResult{Status: structures.RequestApproved, ProcessedBy: structures.ProcessedByAuto, RequestToken: row.RequestToken}, nil
}

func (c *Controller) autoSubscribeSeries(ctx context.Context, req Request) (*RequestResult, error) {
	parsed := textparse.ParseSeriesTitleAndSeason(req.ItemName)
	baseName, season := parsed.BaseName, parsed.SeasonNumber

	if season == nil {
		if !c.Quota.Decrement() {
			return nil, apierrors.ErrQuotaExhausted()
		}
		tmdbID, err := strconv.Atoi(req.TmdbID)
		if err != nil {
			return nil, fmt.Errorf("subscriptions: invalid tmdb id %q: %w", req.TmdbID, err)
		}
		if err := c.Downloader.Subscribe(ctx, downloader.SubscribeRequest{Name: req.ItemName, TmdbID: tmdbID, Kind: downloader.MediaSeries}); err != nil {
			return nil, err
		}
		row := &structures.SubscriptionRequest{
			EmbyUserID: req.EmbyUserID, TmdbID: req.TmdbID, ItemType: req.ItemType, ItemName: req.ItemName,
			Status: structures.RequestApproved, ProcessedBy: structures.ProcessedByAuto,
		}
		if _, err := c.Store.InsertSubscriptionRequest(ctx, row); err != nil {
			return nil, err
		}
		return &RequestResult{Status: structures.RequestApproved, ProcessedBy: structures.ProcessedByAuto, RequestToken: row.RequestToken}, nil
	}

	results, err := c.MetadataProvider.Search(ctx, baseName, "tv")
	if err != nil || len(results) == 0 {
		return nil, fmt.Errorf("subscriptions: could not resolve parent series %q: %w", baseName, err)
	}
	parent := results[0]

	if !c.Quota.Decrement() {
		return nil, apierrors.ErrQuotaExhausted()
	}
	if err := c.Downloader.Subscribe(ctx, downloader.SubscribeRequest{
		Name:   parent.Name,
		TmdbID: parent.ID,
		Kind:   downloader.MediaSeries,
		Season: season,
	}); err != nil {
		return nil, err
	}

	parentTmdbID := strconv.Itoa(parent.ID)
	row := &structures.SubscriptionRequest{
		EmbyUserID: req.EmbyUserID, TmdbID: req.TmdbID, ItemType: req.ItemType, ItemName: req.ItemName,
		Status: structures.RequestApproved, ProcessedBy: structures.ProcessedByAuto,
		ParentTmdbID: parentTmdbID, ParsedSeriesName: parent.Name, ParsedSeasonNumber: season,
	}
	if _, err := c.Store.InsertSubscriptionRequest(ctx, row); err != nil {
		return nil, err
	}
	return &RequestResult{Status: structures.RequestApproved, ProcessedBy: structures.ProcessedByAuto, RequestToken: row.RequestToken}, nil
}
