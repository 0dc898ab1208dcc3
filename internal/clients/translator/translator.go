// Package translator implements the cast-translation AI text provider
// boundary contract: a batch string-to-string translation call, thin
// enough to be treated as an external collaborator like the
// Notification Transport (spec §1, §6). Grounded on
// original_source/tasks/actors.py's processor.ai_translator.batch_translate
// and internal/clients/notifier's client-construction shape.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/kestrelmedia/archivist/internal/clients/httpx"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
)

// Client batch-translates a set of strings into Chinese, returning a map
// keyed by the original text. An original with no entry in the result
// means the provider judged it already translated or untranslatable.
type Client interface {
	BatchTranslate(ctx context.Context, texts []string) (map[string]string, error)
}

type client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

// Options configures a translator client.
type Options struct {
	BaseURL string
	APIKey  string
}

// New constructs a translator client talking to a configured HTTP
// endpoint; no default is assumed since the provider is operator-chosen.
func New(opts Options, h *httpx.Client) (Client, error) {
	if opts.APIKey == "" {
		return nil, apierrors.ErrMissingAPIKey().SetDetail("translator api key")
	}
	return &client{baseURL: opts.BaseURL, apiKey: opts.APIKey, http: h}, nil
}

func (c *client) BatchTranslate(ctx context.Context, texts []string) (map[string]string, error) {
	if len(texts) == 0 {
		return map[string]string{}, nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"texts": texts,
		"mode":  "fast",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate/batch", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(ctx, req, 1)
	if err != nil {
		return nil, apierrors.ErrTranslatorFailed().SetDetail("%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apierrors.ErrTranslatorFailed().SetDetail("status %d", resp.StatusCode)
	}

	var body struct {
		Translations map[string]string `json:"translations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Translations, nil
}
