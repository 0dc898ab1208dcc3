// Package webhook is the thin HTTP boundary adapter spec.md places out
// of scope as anything more than a boundary contract (§1: "HTTP/web
// controllers ... are thin adapters ... specify only boundary
// contracts"). It owns four routes: a webhook endpoint that enqueues
// tasks onto the Task Scheduler, an episode-top-up trigger, a
// user-updated event that is dropped when a self-update marker covers
// that user, and the human-input subscription-request endpoint. It deliberately does not
// carry the teacher's gofiber/jwt/websocket stack, since nothing in
// SPEC_FULL.md needs a real web tier behind this boundary.
package webhook

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kestrelmedia/archivist/internal/metadatasync"
	"github.com/kestrelmedia/archivist/internal/scheduler"
	"github.com/kestrelmedia/archivist/internal/selfupdate"
	"github.com/kestrelmedia/archivist/internal/subscriptions"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// Options wires the listener to the long-lived services it dispatches
// against.
type Options struct {
	Scheduler      *scheduler.Scheduler
	Subscriptions  *subscriptions.Controller
	MediaProcessor *metadatasync.Processor
	SelfUpdate     *selfupdate.Markers
	ListenAddr     string
}

// Listener is the boundary adapter's HTTP server.
type Listener struct {
	opts Options
	srv  *http.Server
}

// New builds a Listener; call ListenAndServe to start accepting.
func New(opts Options) *Listener {
	mux := http.NewServeMux()
	l := &Listener{opts: opts}

	mux.HandleFunc("POST /webhooks/task", l.handleTaskWebhook)
	mux.HandleFunc("POST /webhooks/episode-top-up", l.handleEpisodeTopUp)
	mux.HandleFunc("POST /webhooks/user-updated", l.handleUserUpdated)
	mux.HandleFunc("POST /subscriptions", l.handleSubscriptionRequest)

	l.srv = &http.Server{Addr: opts.ListenAddr, Handler: mux}
	return l
}

// ListenAndServe starts accepting connections. Returns
// http.ErrServerClosed on a clean Shutdown.
func (l *Listener) ListenAndServe() error {
	slog.Info("webhook listener starting", "addr", l.opts.ListenAddr)
	return l.srv.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}

type taskWebhookBody struct {
	TaskKey         structures.TaskKey `json:"task_key"`
	ForceFullUpdate bool               `json:"force_full_update"`
}

// handleTaskWebhook enqueues one registered task onto the scheduler,
// mirroring the "webhooks or timers enqueue tasks on C7" data flow.
func (l *Listener) handleTaskWebhook(w http.ResponseWriter, r *http.Request) {
	var body taskWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierrors.ErrInvalidDefinition().SetDetail("malformed webhook body: %v", err))
		return
	}

	if err := l.opts.Scheduler.Run(r.Context(), body.TaskKey, body.ForceFullUpdate); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type episodeTopUpBody struct {
	SeriesTmdbID  string   `json:"series_tmdb_id"`
	NewEpisodeIDs []string `json:"new_episode_emby_ids"`
}

// handleEpisodeTopUp runs the targeted episode top-up directly (§4.5);
// it does not go through the scheduler's single-slot executor, since it
// is meant to fire immediately alongside whatever else is running.
func (l *Listener) handleEpisodeTopUp(w http.ResponseWriter, r *http.Request) {
	var body episodeTopUpBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierrors.ErrInvalidDefinition().SetDetail("malformed webhook body: %v", err))
		return
	}
	if err := l.opts.MediaProcessor.EpisodeTopUp(r.Context(), body.SeriesTmdbID, body.NewEpisodeIDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type userUpdatedBody struct {
	UserID string `json:"user_id"`
}

// handleUserUpdated is the self-update-marker-gated event (§6): a "user
// updated" event is silently dropped if the system itself stamped that
// user within the marker window.
func (l *Listener) handleUserUpdated(w http.ResponseWriter, r *http.Request) {
	var body userUpdatedBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierrors.ErrInvalidDefinition().SetDetail("malformed webhook body: %v", err))
		return
	}
	if l.opts.SelfUpdate.ShouldIgnore(body.UserID) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	// No further action is defined for a genuine external user-policy
	// change; the event is acknowledged so the caller doesn't retry.
	w.WriteHeader(http.StatusOK)
}

type subscriptionRequestBody struct {
	EmbyUserID string              `json:"emby_user_id"`
	TmdbID     string              `json:"tmdb_id"`
	ItemType   structures.ItemType `json:"item_type"`
	ItemName   string              `json:"item_name"`
}

// handleSubscriptionRequest is the human-input boundary contract for
// the Subscription Controller (§4.4).
func (l *Listener) handleSubscriptionRequest(w http.ResponseWriter, r *http.Request) {
	var body subscriptionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apierrors.ErrInvalidDefinition().SetDetail("malformed request body: %v", err))
		return
	}

	result, err := l.opts.Subscriptions.Submit(r.Context(), subscriptions.Request{
		EmbyUserID: body.EmbyUserID,
		TmdbID:     body.TmdbID,
		ItemType:   body.ItemType,
		ItemName:   body.ItemName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// writeError maps a typed apierrors.Error onto an HTTP status the way
// the teacher's fiber error handler does (fall back to 500 for
// anything else), logging at the boundary since nothing further up the
// stack will see this failure.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if ae, ok := err.(*apierrors.Error); ok {
		switch ae.Kind() {
		case apierrors.KindLogicalInput:
			status = http.StatusBadRequest
		case apierrors.KindConflict:
			status = http.StatusConflict
		case apierrors.KindQuotaExhausted:
			status = http.StatusTooManyRequests
		case apierrors.KindTimedOut:
			status = http.StatusGatewayTimeout
		case apierrors.KindTransientRemote:
			status = http.StatusBadGateway
		}
	}
	slog.Error("webhook request failed", "error", err, "status", status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
