// Package metadataprovider implements the TMDb-shaped Metadata Provider
// client contract from spec §6, grounded on the teacher's
// internal/integrations/tmdb/tmdb.go constructor pattern (New(Options)
// with a validated API key and base URL default).
package metadataprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kestrelmedia/archivist/internal/clients/httpx"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
)

// MovieDetails is the subset of TMDb's movie-details response this
// system needs.
type MovieDetails struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	OriginalLanguage string  `json:"original_language"`
	VoteAverage      float64 `json:"vote_average"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
	ProductionCountries []struct {
		Iso31661 string `json:"iso_3166_1"`
	} `json:"production_countries"`
	Keywords struct {
		Keywords []struct {
			Name string `json:"name"`
		} `json:"keywords"`
	} `json:"keywords"`
	Credits struct {
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

// TVDetails is the subset of TMDb's tv-details response this system needs.
type TVDetails struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	PosterPath       string  `json:"poster_path"`
	OriginalLanguage string  `json:"original_language"`
	OriginCountry    []string `json:"origin_country"`
	VoteAverage      float64 `json:"vote_average"`
	Status           string  `json:"status"`
	NumberOfSeasons  int     `json:"number_of_seasons"`
	NextEpisodeToAir *EpisodeRef `json:"next_episode_to_air"`
	LastEpisodeToAir *EpisodeRef `json:"last_episode_to_air"`
	Genres           []struct {
		Name string `json:"name"`
	} `json:"genres"`
	CreatedBy []struct {
		Name string `json:"name"`
	} `json:"created_by"`
	Networks []struct {
		Name string `json:"name"`
	} `json:"networks"`
	Seasons []struct {
		ID           int    `json:"id"`
		SeasonNumber int    `json:"season_number"`
		Name         string `json:"name"`
	} `json:"seasons"`
}

// EpisodeRef mirrors TMDb's next/last_episode_to_air shape.
type EpisodeRef struct {
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
}

// SeasonDetails is the subset of TMDb's season-details response this
// system needs.
type SeasonDetails struct {
	ID           int `json:"id"`
	SeasonNumber int `json:"season_number"`
	Episodes     []struct {
		ID            int    `json:"id"`
		EpisodeNumber int    `json:"episode_number"`
		Name          string `json:"name"`
		Overview      string `json:"overview"`
		AirDate       string `json:"air_date"`
	} `json:"episodes"`
}

// SearchResult is one entry of a multi/tv/movie search response.
type SearchResult struct {
	ID           int    `json:"id"`
	MediaType    string `json:"media_type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
}

// Client is the capability contract from spec §6.
type Client interface {
	GetMovieDetails(ctx context.Context, id int, appendToResponse []string) (*MovieDetails, error)
	GetTVDetails(ctx context.Context, id int) (*TVDetails, error)
	GetTVSeasonDetails(ctx context.Context, id, seasonNumber int) (*SeasonDetails, error)
	Search(ctx context.Context, name string, kind string) ([]SearchResult, error)
	GetPopularMovies(ctx context.Context, page int) ([]SearchResult, error)
}

type client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

// Options configures a Metadata Provider client.
type Options struct {
	BaseURL string
	APIKey  string
}

// New constructs a Metadata Provider client, grounded on the teacher's
// tmdb.New(Options) validation (non-empty API key required, base URL
// defaulted).
func New(opts Options, h *httpx.Client) (Client, error) {
	if opts.APIKey == "" {
		return nil, apierrors.ErrMissingAPIKey().SetDetail("metadata provider")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.themoviedb.org/3"
	}
	return &client{baseURL: opts.BaseURL, apiKey: opts.APIKey, http: h}, nil
}

func (c *client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req, 3)
	if err != nil {
		return apierrors.ErrMetadataProviderFailed().SetDetail("%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return apierrors.ErrMetadataProviderFailed().SetDetail("status %d from %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) GetMovieDetails(ctx context.Context, id int, appendToResponse []string) (*MovieDetails, error) {
	q := url.Values{}
	if len(appendToResponse) > 0 {
		joined := ""
		for i, a := range appendToResponse {
			if i > 0 {
				joined += ","
			}
			joined += a
		}
		q.Set("append_to_response", joined)
	}
	var details MovieDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), q, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *client) GetTVDetails(ctx context.Context, id int) (*TVDetails, error) {
	var details TVDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", id), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *client) GetTVSeasonDetails(ctx context.Context, id, seasonNumber int) (*SeasonDetails, error) {
	var details SeasonDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", id, seasonNumber), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *client) Search(ctx context.Context, name string, kind string) ([]SearchResult, error) {
	path := "/search/multi"
	switch kind {
	case "movie":
		path = "/search/movie"
	case "tv", "series":
		path = "/search/tv"
	}
	q := url.Values{}
	q.Set("query", name)
	var body struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.get(ctx, path, q, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}

func (c *client) GetPopularMovies(ctx context.Context, page int) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	var body struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.get(ctx, "/movie/popular", q, &body); err != nil {
		return nil, err
	}
	return body.Results, nil
}
