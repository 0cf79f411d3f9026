package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// collectionName is fixed: spec.md §3 "a single logical vector collection"
// backs every searchable entity kind via the type discriminator.
const collectionName = "knowledge_objects"

// HTTPClient is a thin REST client over a hybrid-search vector store,
// adapted from the teacher's raw net/http PUT/GET JSON pattern
// (qdrant_client.go's addAuthHeader/EnsureCollection/StorePoint/
// SearchSimilar/DeletePoint idiom), generalized from Qdrant's points API to
// an alpha-blended hybrid search call.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL, apiKey string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (c *HTTPClient) addAuthHeader(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *HTTPClient) Upsert(ctx context.Context, ko KnowledgeObject) error {
	body, err := json.Marshal(ko)
	if err != nil {
		return fmt.Errorf("vectorindex: marshal upsert: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/%s", c.baseURL, collectionName, ko.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vectorindex: build upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vectorindex: upsert request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vectorindex: upsert failed (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *HTTPClient) Fetch(ctx context.Context, id string) (*KnowledgeObject, error) {
	url := fmt.Sprintf("%s/collections/%s/points/%s", c.baseURL, collectionName, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: build fetch request: %w", err)
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vectorindex: fetch failed (status %d): %s", resp.StatusCode, string(body))
	}

	var ko KnowledgeObject
	if err := json.NewDecoder(resp.Body).Decode(&ko); err != nil {
		return nil, fmt.Errorf("vectorindex: decode fetch response: %w", err)
	}
	return &ko, nil
}

func (c *HTTPClient) Exists(ctx context.Context, id string) (bool, error) {
	ko, err := c.Fetch(ctx, id)
	if err != nil {
		return false, err
	}
	return ko != nil, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/collections/%s/points/%s", c.baseURL, collectionName, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("vectorindex: build delete request: %w", err)
	}
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vectorindex: delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vectorindex: delete failed (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// DeleteByPrefix removes every point whose id starts with idPrefix — used to
// clear a File's old chunks (`<fileId>_0`, `<fileId>_1`, ...) before
// re-indexing (spec.md §9 "file-chunk identifiers").
func (c *HTTPClient) DeleteByPrefix(ctx context.Context, idPrefix string) error {
	payload := map[string]any{"filter": map[string]any{"idPrefix": idPrefix}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("vectorindex: marshal delete-by-prefix: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete", c.baseURL, collectionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vectorindex: build delete-by-prefix request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vectorindex: delete-by-prefix request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("vectorindex: delete-by-prefix failed (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (c *HTTPClient) Search(ctx context.Context, params SearchParams) ([]Hit, error) {
	searchReq := map[string]any{
		"query": params.Query,
		"alpha": params.Alpha,
		"limit": params.Limit,
	}
	if params.Filter.ItemID != "" {
		searchReq["itemId"] = params.Filter.ItemID
	}
	if params.Filter.Type != "" {
		searchReq["type"] = params.Filter.Type
	}

	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collectionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vectorindex: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.addAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vectorindex: search failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var searchResp struct {
		Result []struct {
			ID         string          `json:"id"`
			Score      float64         `json:"score"`
			Properties KnowledgeObject `json:"properties"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("vectorindex: decode search response: %w", err)
	}

	hits := make([]Hit, len(searchResp.Result))
	for i, r := range searchResp.Result {
		hits[i] = Hit{ID: r.ID, Score: r.Score, Properties: r.Properties}
	}
	return hits, nil
}
