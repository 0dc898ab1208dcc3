// Package mediaserver implements the Emby/Jellyfin-shaped Media Server
// client contract from spec §6, grounded on the teacher's
// internal/integrations/emby/emby.go (baseItemDto shape, endpoint
// layout) and utils/root.go's SetMediaServerAuthHeader (the
// Emby-vs-Jellyfin header-style branch).
package mediaserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kestrelmedia/archivist/internal/clients/httpx"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
	"github.com/kestrelmedia/archivist/pkg/structures"
)

// Item is the subset of Emby/Jellyfin's BaseItemDto this system needs,
// narrowed from the teacher's emby.baseItemDto.
type Item struct {
	ID              string            `json:"Id"`
	Name            string            `json:"Name"`
	OriginalTitle   string            `json:"OriginalTitle,omitempty"`
	Type            string            `json:"Type"`
	SeriesID        string            `json:"SeriesId,omitempty"`
	SeasonID        string            `json:"SeasonId,omitempty"`
	SeasonNumber    int               `json:"ParentIndexNumber,omitempty"`
	EpisodeNumber   int               `json:"IndexNumber,omitempty"`
	Overview        string            `json:"Overview,omitempty"`
	PremiereDate    string            `json:"PremiereDate,omitempty"`
	ProductionYear  int               `json:"ProductionYear,omitempty"`
	CommunityRating float64           `json:"CommunityRating,omitempty"`
	OfficialRating  string            `json:"OfficialRating,omitempty"`
	Genres          []string          `json:"Genres,omitempty"`
	ProviderIds     map[string]string `json:"ProviderIds,omitempty"`
	Path            string            `json:"Path,omitempty"`
	Container       string            `json:"Container,omitempty"`
	Size            int64             `json:"Size,omitempty"`
	Status          string            `json:"Status,omitempty"`
	MediaStreams    []MediaStream     `json:"MediaStreams,omitempty"`
}

// MediaStream is one entry of an Item's MediaStreams list.
type MediaStream struct {
	Type            string `json:"Type"` // Video|Audio|Subtitle
	Codec           string `json:"Codec,omitempty"`
	Language        string `json:"Language,omitempty"`
	Title           string `json:"DisplayTitle,omitempty"`
	Channels        int    `json:"Channels,omitempty"`
	Width           int    `json:"Width,omitempty"`
	Height          int    `json:"Height,omitempty"`
	BitDepth        int    `json:"BitDepth,omitempty"`
	VideoRange      string `json:"VideoRange,omitempty"`
	VideoRangeType  string `json:"VideoRangeType,omitempty"`
	RealFrameRate   float64 `json:"RealFrameRate,omitempty"`
	IsForced        bool   `json:"IsForced,omitempty"`
}

// TmdbID extracts and parses the TMDb provider id, if present.
func (i Item) TmdbID() (int, bool) {
	raw, ok := i.ProviderIds["Tmdb"]
	if !ok {
		raw, ok = i.ProviderIds["tmdb"]
	}
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// UserPolicy is the subset of a Media Server user's policy this system
// reads or mutates (§6 set_user_policy/set_user_disabled).
type UserPolicy struct {
	IsAdministrator bool `json:"IsAdministrator"`
	IsDisabled      bool `json:"IsDisabled"`
}

// User is the subset of get_all_users()'s response this system needs.
type User struct {
	ID            string     `json:"Id"`
	Name          string     `json:"Name"`
	Policy        UserPolicy `json:"Policy"`
	Configuration struct{}   `json:"Configuration"`
}

// Client is the capability contract from spec §6.
type Client interface {
	ListItems(ctx context.Context, libraryIDs []string, typeFilter []string, fields []string) ([]Item, error)
	GetItem(ctx context.Context, id string, fields []string) (*Item, error)
	GetItemsByIDs(ctx context.Context, ids []string, fields []string) ([]Item, error)
	GetSeriesChildren(ctx context.Context, seriesID string, fields []string) ([]Item, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	GetUserAccessibleItems(ctx context.Context, userID string, idList []string) ([]string, error)
	UpdateItemDetails(ctx context.Context, id string, fields map[string]interface{}) error
	SetUserPolicy(ctx context.Context, userID string, policy UserPolicy) error
	SetUserDisabled(ctx context.Context, userID string, disabled bool) error
	CreateOrUpdateCollection(ctx context.Context, name string, orderedIDs []string) (string, error)
	RefreshItemMetadata(ctx context.Context, id string, replaceAll bool) error
	ListPersons(ctx context.Context) ([]Person, error)
	UpdatePersonName(ctx context.Context, personID, name string) error
}

// Person is the subset of a Media Server "Person" item the cast-translation
// pass needs.
type Person struct {
	ID          string            `json:"Id"`
	Name        string            `json:"Name"`
	ProviderIds map[string]string `json:"ProviderIds,omitempty"`
}

type client struct {
	baseURL    string
	apiKey     string
	provider   structures.Provider
	appVersion string
	http       *httpx.Client
}

// New constructs a Media Server client for either Emby or Jellyfin,
// selected by provider; the only behavioral difference is the
// authorization header shape (§6).
func New(baseURL, apiKey string, provider structures.Provider, appVersion string, h *httpx.Client) Client {
	return &client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		provider:   provider,
		appVersion: appVersion,
		http:       h,
	}
}

// setAuthHeader mirrors utils.SetMediaServerAuthHeader's Emby/Jellyfin
// branch exactly.
func (c *client) setAuthHeader(req *http.Request) {
	if c.provider == structures.ProviderJellyfin {
		req.Header.Set("Authorization", fmt.Sprintf(
			`MediaBrowser Client="Archivist", Device="Server", DeviceId="archivist-core", Version="%s", Token="%s"`,
			c.appVersion, c.apiKey))
		return
	}
	req.Header.Set("X-Emby-Token", c.apiKey)
}

func (c *client) newRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u := c.baseURL + path
	if query != nil {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	c.setAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *client) doJSON(ctx context.Context, req *http.Request, maxRetries int, out interface{}) error {
	resp, err := c.http.Do(ctx, req, maxRetries)
	if err != nil {
		return apierrors.ErrMediaServerUnreachable().SetDetail("%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apierrors.ErrMediaServerUnreachable().SetDetail("status %d from %s", resp.StatusCode, req.URL.Path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) ListItems(ctx context.Context, libraryIDs []string, typeFilter []string, fields []string) ([]Item, error) {
	q := url.Values{}
	if len(libraryIDs) > 0 {
		q.Set("ParentId", strings.Join(libraryIDs, ","))
	}
	if len(typeFilter) > 0 {
		q.Set("IncludeItemTypes", strings.Join(typeFilter, ","))
	}
	if len(fields) > 0 {
		q.Set("Fields", strings.Join(fields, ","))
	}
	q.Set("Recursive", "true")

	req, err := c.newRequest(ctx, http.MethodGet, "/Items", q)
	if err != nil {
		return nil, err
	}
	var body struct {
		Items []Item `json:"Items"`
	}
	if err := c.doJSON(ctx, req, 3, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func (c *client) GetItem(ctx context.Context, id string, fields []string) (*Item, error) {
	q := url.Values{}
	if len(fields) > 0 {
		q.Set("Fields", strings.Join(fields, ","))
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/Items/"+id, q)
	if err != nil {
		return nil, err
	}
	var item Item
	if err := c.doJSON(ctx, req, 3, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *client) GetItemsByIDs(ctx context.Context, ids []string, fields []string) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("Ids", strings.Join(ids, ","))
	if len(fields) > 0 {
		q.Set("Fields", strings.Join(fields, ","))
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/Items", q)
	if err != nil {
		return nil, err
	}
	var body struct {
		Items []Item `json:"Items"`
	}
	if err := c.doJSON(ctx, req, 3, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func (c *client) GetSeriesChildren(ctx context.Context, seriesID string, fields []string) ([]Item, error) {
	q := url.Values{}
	q.Set("ParentId", seriesID)
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Season,Episode")
	if len(fields) > 0 {
		q.Set("Fields", strings.Join(fields, ","))
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/Items", q)
	if err != nil {
		return nil, err
	}
	var body struct {
		Items []Item `json:"Items"`
	}
	if err := c.doJSON(ctx, req, 3, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

func (c *client) GetAllUsers(ctx context.Context) ([]User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/Users", nil)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := c.doJSON(ctx, req, 3, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUserAccessibleItems pages the id list in chunks of <=150, per §6.
func (c *client) GetUserAccessibleItems(ctx context.Context, userID string, idList []string) ([]string, error) {
	const pageSize = 150
	var visible []string
	for start := 0; start < len(idList); start += pageSize {
		end := start + pageSize
		if end > len(idList) {
			end = len(idList)
		}
		chunk := idList[start:end]

		q := url.Values{}
		q.Set("Ids", strings.Join(chunk, ","))
		q.Set("Recursive", "true")
		req, err := c.newRequest(ctx, http.MethodGet, "/Users/"+userID+"/Items", q)
		if err != nil {
			return nil, err
		}
		var body struct {
			Items []Item `json:"Items"`
		}
		if err := c.doJSON(ctx, req, 3, &body); err != nil {
			return nil, err
		}
		for _, item := range body.Items {
			visible = append(visible, item.ID)
		}
	}
	return visible, nil
}

func (c *client) UpdateItemDetails(ctx context.Context, id string, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Items/"+id, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	c.setAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req, 1, nil)
}

func (c *client) SetUserPolicy(ctx context.Context, userID string, policy UserPolicy) error {
	body, err := json.Marshal(policy)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Users/"+userID+"/Policy", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	c.setAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req, 1, nil)
}

func (c *client) SetUserDisabled(ctx context.Context, userID string, disabled bool) error {
	return c.SetUserPolicy(ctx, userID, UserPolicy{IsDisabled: disabled})
}

func (c *client) CreateOrUpdateCollection(ctx context.Context, name string, orderedIDs []string) (string, error) {
	q := url.Values{}
	q.Set("Name", name)
	q.Set("Ids", strings.Join(orderedIDs, ","))
	req, err := c.newRequest(ctx, http.MethodPost, "/Collections", q)
	if err != nil {
		return "", err
	}
	var result struct {
		ID string `json:"Id"`
	}
	if err := c.doJSON(ctx, req, 1, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// ListPersons returns every "Person" item known to the Media Server,
// the candidate universe for cast-translation.
func (c *client) ListPersons(ctx context.Context) ([]Person, error) {
	q := url.Values{}
	q.Set("Recursive", "true")
	q.Set("IncludeItemTypes", "Person")
	q.Set("Fields", "ProviderIds")
	req, err := c.newRequest(ctx, http.MethodGet, "/Persons", q)
	if err != nil {
		return nil, err
	}
	var body struct {
		Items []Person `json:"Items"`
	}
	if err := c.doJSON(ctx, req, 3, &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}

// UpdatePersonName rewrites one person's display name.
func (c *client) UpdatePersonName(ctx context.Context, personID, name string) error {
	body, err := json.Marshal(map[string]string{"Name": name})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/Persons/"+personID, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	c.setAuthHeader(req)
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(ctx, req, 1, nil)
}

func (c *client) RefreshItemMetadata(ctx context.Context, id string, replaceAll bool) error {
	q := url.Values{}
	if replaceAll {
		q.Set("MetadataRefreshMode", "FullRefresh")
		q.Set("ReplaceAllMetadata", "true")
	} else {
		q.Set("MetadataRefreshMode", "Default")
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/Items/"+id+"/Refresh", q)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, req, 1, nil)
}
