package translator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelmedia/archivist/internal/clients/httpx"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	h, err := httpx.New(httpx.Options{})
	require.NoError(t, err)
	c, err := New(Options{BaseURL: srv.URL, APIKey: "key"}, h)
	require.NoError(t, err)
	return c
}

func TestNewRejectsMissingAPIKey(t *testing.T) {
	h, err := httpx.New(httpx.Options{})
	require.NoError(t, err)
	_, err = New(Options{}, h)
	assert.Error(t, err)
}

func TestBatchTranslateReturnsEmptyMapForEmptyInput(t *testing.T) {
	called := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	result, err := c.BatchTranslate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.False(t, called)
}

func TestBatchTranslateSendsBearerAuthAndDecodesResult(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(struct {
			Translations map[string]string `json:"translations"`
		}{Translations: map[string]string{"Jon Snow": "琼恩·雪诺"}})
	}))

	result, err := c.BatchTranslate(context.Background(), []string{"Jon Snow"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer key", gotAuth)
	assert.Equal(t, "fast", gotBody["mode"])
	assert.Equal(t, "琼恩·雪诺", result["Jon Snow"])
}

func TestBatchTranslateFailsOnNon200(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.BatchTranslate(context.Background(), []string{"x"})
	assert.Error(t, err)
}
