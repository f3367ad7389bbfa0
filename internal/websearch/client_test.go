package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestSearch(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"results":[
			{"title":"GopherCon 2026","url":"https://example.com/gc","content":"The conference runs..."},
			{"title":"Schedule","url":"https://example.com/sched","content":"Day one..."}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	results, err := client.Search(context.Background(), "gophercon 2026", DepthAdvanced, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "GopherCon 2026", results[0].Title)

	assert.Equal(t, "key", gotBody["api_key"])
	assert.Equal(t, "advanced", gotBody["search_depth"])
	assert.Equal(t, float64(3), gotBody["max_results"])
}

func TestSearchDefaultsDepth(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "q", "bogus", 0)
	require.NoError(t, err)
	assert.Equal(t, "basic", gotBody["search_depth"])
	assert.Equal(t, float64(3), gotBody["max_results"])
}

func TestSearchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "q", DepthBasic, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
