package vectorindex_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ideagraph/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPClientUpsertAndFetch(t *testing.T) {
	var upserted vectorindex.KnowledgeObject
	stored := map[string]vectorindex.KnowledgeObject{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&upserted))
			stored[upserted.ID] = upserted
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			parts := strings.Split(r.URL.Path, "/")
			id := parts[len(parts)-1]
			ko, ok := stored[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(ko)
		}
	}))
	defer server.Close()

	client := vectorindex.NewHTTPClient(server.URL, "", zap.NewNop())

	err := client.Upsert(t.Context(), vectorindex.KnowledgeObject{ID: "task-1", Type: "Task", Title: "Login broken"})
	require.NoError(t, err)

	fetched, err := client.Fetch(t.Context(), "task-1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Task", fetched.Type)
}

func TestHTTPClientFetchMissingReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := vectorindex.NewHTTPClient(server.URL, "", zap.NewNop())
	ko, err := client.Fetch(t.Context(), "missing")

	require.NoError(t, err)
	assert.Nil(t, ko)
}

func TestHTTPClientSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.6, req["alpha"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"id": "item-1", "score": 0.91, "properties": map[string]any{"id": "item-1", "type": "Item", "title": "Auth"}},
			},
		})
	}))
	defer server.Close()

	client := vectorindex.NewHTTPClient(server.URL, "secret", zap.NewNop())
	hits, err := client.Search(t.Context(), vectorindex.SearchParams{Query: "login broken", Alpha: 0.6, Limit: 24})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "item-1", hits[0].ID)
	assert.Equal(t, 0.91, hits[0].Score)
}

func TestHTTPClientExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(vectorindex.KnowledgeObject{ID: "item-1"})
	}))
	defer server.Close()

	client := vectorindex.NewHTTPClient(server.URL, "", zap.NewNop())
	exists, err := client.Exists(t.Context(), "item-1")

	require.NoError(t, err)
	assert.True(t, exists)
}
