package websearch_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ideagraph/internal/websearch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterReturnsUnconfiguredWhenNoProviders(t *testing.T) {
	a := websearch.New(nil, nil)

	_, err := a.Search(context.Background(), "query")

	assert.ErrorIs(t, err, websearch.ErrUnconfigured)
}

type fakeProvider struct {
	results []websearch.Result
	err     error
}

func (f *fakeProvider) Search(_ context.Context, _ string) ([]websearch.Result, error) {
	return f.results, f.err
}

func TestAdapterFallsBackOnPrimaryFailure(t *testing.T) {
	primary := &fakeProvider{err: assert.AnError}
	fallback := &fakeProvider{results: []websearch.Result{{Title: "fallback hit"}}}
	a := websearch.New(primary, fallback)

	results, err := a.Search(context.Background(), "query")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fallback hit", results[0].Title)
}

func TestGoogleClientParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]string{
				{"title": "Result 1", "link": "https://example.org/1", "snippet": "snippet 1"},
			},
		})
	}))
	defer server.Close()

	client := websearch.NewGoogleClient("key", "cx", server.Client()).WithBaseURL(server.URL)

	results, err := client.Search(context.Background(), "query")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Result 1", results[0].Title)
	assert.Equal(t, "https://example.org/1", results[0].URL)
}

func TestGoogleClientFailsWhenUnconfigured(t *testing.T) {
	client := websearch.NewGoogleClient("", "", nil)

	_, err := client.Search(context.Background(), "query")

	require.Error(t, err)
}

func TestBraveClientParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token", r.Header.Get("X-Subscription-Token"))
		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []map[string]string{
					{"title": "Brave hit", "url": "https://example.org/2", "description": "desc"},
				},
			},
		})
	}))
	defer server.Close()

	client := websearch.NewBraveClient("token", server.Client()).WithBaseURL(server.URL)

	results, err := client.Search(context.Background(), "query")

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Brave hit", results[0].Title)
}

func TestBraveClientFailsWhenUnconfigured(t *testing.T) {
	client := websearch.NewBraveClient("", nil)

	_, err := client.Search(context.Background(), "query")

	require.Error(t, err)
}
