package graphclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ideagraph/internal/graphclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticToken(_ context.Context) (string, error) { return "token", nil }

func TestListMailSinceReturnsMessagesAndCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"value":      []map[string]string{{"id": "msg-1", "subject": "hi"}},
			"nextCursor": "cursor-2",
		})
	}))
	defer server.Close()

	client := graphclient.NewHTTPClient(server.URL, server.Client(), staticToken, zap.NewNop())

	messages, cursor, err := client.ListMailSince(context.Background(), "inbox@example.org", "Inbox", "")

	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "msg-1", messages[0].ID)
	assert.Equal(t, "cursor-2", cursor)
}

func TestEnsureFolderReturnsIDOnSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "folder-1"})
	}))
	defer server.Close()

	client := graphclient.NewHTTPClient(server.URL, server.Client(), staticToken, zap.NewNop())

	id, err := client.EnsureFolder(context.Background(), "lib-1", "root", "My Item")

	require.NoError(t, err)
	assert.Equal(t, "folder-1", id)
}

func TestEnsureFolderResolvesExistingOnConflict(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"value": []map[string]string{{"id": "existing-folder"}}})
	}))
	defer server.Close()

	client := graphclient.NewHTTPClient(server.URL, server.Client(), staticToken, zap.NewNop())

	id, err := client.EnsureFolder(context.Background(), "lib-1", "root", "My Item")

	require.NoError(t, err)
	assert.Equal(t, "existing-folder", id)
	assert.Equal(t, 2, calls)
}

func TestNormalizeFolderNameStripsAndTruncates(t *testing.T) {
	name := graphclient.NormalizeFolderName("Café Project: Q1/Q2 <launch>!!")
	assert.NotContains(t, name, ":")
	assert.NotContains(t, name, "<")
	assert.NotContains(t, name, "/")
	assert.LessOrEqual(t, len(name), 128)
}

func TestNormalizeFolderNameCollapsesWhitespace(t *testing.T) {
	name := graphclient.NormalizeFolderName("Too     many    spaces")
	assert.Equal(t, "Too many spaces", name)
}
