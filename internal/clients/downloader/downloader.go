// Package downloader implements the MoviePilot-shaped Downloader
// contract from spec §6: bearer-token login followed by a subscribe
// call. Grounded on original_source/moviepilot_handler.py (the
// login/access-token -> POST /subscribe flow and the 200/201/204
// success check) and structured like the teacher's
// internal/integrations/radarr service.New(repo)/http.Client wrapper.
package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kestrelmedia/archivist/internal/clients/httpx"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
)

// MediaKind selects the MoviePilot subscribe payload's "type" field.
type MediaKind string

const (
	MediaMovie  MediaKind = "movie"
	MediaSeries MediaKind = "series"
)

// SubscribeRequest is the normalized request this system issues;
// Client.Subscribe translates it into MoviePilot's payload shape.
type SubscribeRequest struct {
	Name        string
	TmdbID      int
	Kind        MediaKind
	Season      *int
	BestVersion *int
}

// Client is the Downloader capability contract from spec §6.
type Client interface {
	Subscribe(ctx context.Context, req SubscribeRequest) error
}

type client struct {
	baseURL  string
	username string
	password string
	http     *httpx.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// Options configures a Downloader client.
type Options struct {
	BaseURL  string
	Username string
	Password string
}

// New constructs a MoviePilot-shaped Downloader client.
func New(opts Options, h *httpx.Client) (Client, error) {
	if opts.BaseURL == "" || opts.Username == "" || opts.Password == "" {
		return nil, apierrors.ErrMissingAPIKey().SetDetail("downloader credentials incomplete")
	}
	return &client{
		baseURL:  opts.BaseURL,
		username: opts.Username,
		password: opts.Password,
		http:     h,
	}, nil
}

// login exchanges username/password for a bearer token, mirroring
// moviepilot_handler.py's POST .../login/access-token call. Tokens are
// cached for 9 minutes; MoviePilot issues 10-minute tokens.
func (c *client) login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := fmt.Sprintf("username=%s&password=%s", c.username, c.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/login/access-token", bytes.NewBufferString(form))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(ctx, req, 1)
	if err != nil {
		return "", apierrors.ErrDownloaderUnreachable().SetDetail("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", apierrors.ErrDownloaderUnreachable().SetDetail("login status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", apierrors.ErrDownloaderUnreachable().SetDetail("login response decode: %v", err)
	}
	if body.AccessToken == "" {
		return "", apierrors.ErrDownloaderUnreachable().SetDetail("login did not return an access token")
	}

	c.accessToken = body.AccessToken
	c.expiresAt = time.Now().Add(9 * time.Minute)
	return c.accessToken, nil
}

// Subscribe issues a subscribe request to MoviePilot, per §6's payload
// contract ({name, tmdbid, type, season?, best_version?}); success is
// any of 200/201/204, following moviepilot_handler.py exactly.
func (c *client) Subscribe(ctx context.Context, req SubscribeRequest) error {
	token, err := c.login(ctx)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"name":   req.Name,
		"tmdbid": req.TmdbID,
	}
	switch req.Kind {
	case MediaMovie:
		payload["type"] = "电影"
	case MediaSeries:
		payload["type"] = "电视剧"
	}
	if req.Season != nil {
		payload["season"] = *req.Season
	}
	if req.BestVersion != nil {
		payload["best_version"] = *req.BestVersion
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/subscribe/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(ctx, httpReq, 1)
	if err != nil {
		return apierrors.ErrDownloaderUnreachable().SetDetail("subscribe: %v", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return apierrors.ErrDownloaderUnreachable().SetDetail("subscribe status %d", resp.StatusCode)
	}
}
