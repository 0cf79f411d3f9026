// Package websearch is the external WebSearch adapter (spec.md §4.9
// "External" advisor mode): Google Programmable Search with Brave as
// fallback. Both are thin REST calls with no retrieval-pack client library
// targeting either API, so this talks to them directly over net/http
// (justified in DESIGN.md).
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"ideagraph/internal/apperr"
)

const resultLimit = 5

// Result is one search hit (spec.md §4.9: "title, url, snippet").
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Provider is satisfied by the Google and Brave clients.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// ErrUnconfigured is returned when neither provider is configured/enabled
// (spec.md §4.9: "fail with search_unconfigured").
var ErrUnconfigured = apperr.New(apperr.KindDisabled, "search_unconfigured")

// Adapter tries Google first, falling back to Brave on any error.
type Adapter struct {
	primary  Provider
	fallback Provider
}

// New builds an Adapter. Either provider may be nil; if both are nil,
// Search always returns ErrUnconfigured.
func New(primary, fallback Provider) *Adapter {
	return &Adapter{primary: primary, fallback: fallback}
}

func (a *Adapter) Search(ctx context.Context, query string) ([]Result, error) {
	if a.primary == nil && a.fallback == nil {
		return nil, ErrUnconfigured
	}

	if a.primary != nil {
		results, err := a.primary.Search(ctx, query)
		if err == nil {
			return results, nil
		}
		if a.fallback == nil {
			return nil, apperr.Wrap(apperr.KindTransient, "primary search provider failed, no fallback configured", err)
		}
	}

	return a.fallback.Search(ctx, query)
}

// GoogleClient queries the Google Programmable Search JSON API.
type GoogleClient struct {
	apiKey         string
	searchEngineID string
	httpClient     *http.Client
	baseURL        string
}

func NewGoogleClient(apiKey, searchEngineID string, httpClient *http.Client) *GoogleClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleClient{apiKey: apiKey, searchEngineID: searchEngineID, httpClient: httpClient, baseURL: "https://www.googleapis.com/customsearch/v1"}
}

// WithBaseURL overrides the API endpoint, used by tests to point at a
// local httptest server.
func (g *GoogleClient) WithBaseURL(baseURL string) *GoogleClient {
	g.baseURL = baseURL
	return g
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

func (g *GoogleClient) Search(ctx context.Context, query string) ([]Result, error) {
	if g.apiKey == "" || g.searchEngineID == "" {
		return nil, apperr.New(apperr.KindDisabled, "google search is not configured")
	}

	q := url.Values{}
	q.Set("key", g.apiKey)
	q.Set("cx", g.searchEngineID)
	q.Set("q", query)
	q.Set("num", fmt.Sprintf("%d", resultLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: build google request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "google search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, apperr.New(apperr.KindTransient, fmt.Sprintf("google search returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.New(apperr.KindPermanent, fmt.Sprintf("google search returned %d", resp.StatusCode))
	}

	var parsed googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("websearch: decode google response: %w", err)
	}

	results := make([]Result, 0, resultLimit)
	for _, item := range parsed.Items {
		if len(results) >= resultLimit {
			break
		}
		results = append(results, Result{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
	}
	return results, nil
}

// BraveClient queries the Brave Search API.
type BraveClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

func NewBraveClient(apiKey string, httpClient *http.Client) *BraveClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BraveClient{apiKey: apiKey, httpClient: httpClient, baseURL: "https://api.search.brave.com/res/v1/web/search"}
}

// WithBaseURL overrides the API endpoint, used by tests to point at a
// local httptest server.
func (b *BraveClient) WithBaseURL(baseURL string) *BraveClient {
	b.baseURL = baseURL
	return b
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *BraveClient) Search(ctx context.Context, query string) ([]Result, error) {
	if b.apiKey == "" {
		return nil, apperr.New(apperr.KindDisabled, "brave search is not configured")
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("count", fmt.Sprintf("%d", resultLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: build brave request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", b.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "brave search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, apperr.New(apperr.KindTransient, fmt.Sprintf("brave search returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.New(apperr.KindPermanent, fmt.Sprintf("brave search returned %d", resp.StatusCode))
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("websearch: decode brave response: %w", err)
	}

	results := make([]Result, 0, resultLimit)
	for _, item := range parsed.Web.Results {
		if len(results) >= resultLimit {
			break
		}
		results = append(results, Result{Title: item.Title, URL: item.URL, Snippet: item.Description})
	}
	return results, nil
}
