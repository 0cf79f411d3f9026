package githubclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ideagraph/internal/apperr"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL        = "https://api.github.com"
	rateLimitLowWaterMark = 50
)

// HTTPClient is a thin REST client against the GitHub API. Rate limiting
// is governed by a token-bucket limiter whose rate is refreshed from the
// response's X-RateLimit-* headers (spec.md §4.7 "respects GitHub rate
// limits by counting remaining calls and sleeping until reset").
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func NewHTTPClient(token string, httpClient *http.Client, logger *zap.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		baseURL:    defaultBaseURL,
		token:      token,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		logger:     logger,
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *HTTPClient) WithBaseURL(baseURL string) *HTTPClient {
	c.baseURL = baseURL
	return c
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperr.Wrap(apperr.KindCancelled, "rate limit wait cancelled", err)
	}

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("githubclient: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("githubclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "github request failed", err)
	}
	defer resp.Body.Close()

	c.refreshFromHeaders(resp.Header)

	if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return apperr.New(apperr.KindTransient, "github rate limit exhausted")
	}
	if resp.StatusCode >= 500 {
		return apperr.New(apperr.KindTransient, fmt.Sprintf("github returned %d for %s %s", resp.StatusCode, method, path))
	}
	if resp.StatusCode >= 400 {
		return apperr.New(apperr.KindPermanent, fmt.Sprintf("github returned %d for %s %s", resp.StatusCode, method, path))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// refreshFromHeaders lowers the limiter's rate once remaining calls drop
// below the low-water mark, spacing requests out until the window resets.
func (c *HTTPClient) refreshFromHeaders(h http.Header) {
	remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining"))
	if err != nil || remaining >= rateLimitLowWaterMark {
		return
	}
	resetUnix, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return
	}
	until := time.Until(time.Unix(resetUnix, 0))
	if until <= 0 {
		return
	}
	if remaining <= 0 {
		remaining = 1
	}
	c.limiter.SetLimit(rate.Every(until / time.Duration(remaining)))
	c.logger.Info("githubclient: approaching rate limit, slowing request pace",
		zap.Int("remaining", remaining), zap.Duration("until_reset", until))
}

type issueListResponse = []issueDTO

type issueDTO struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	State     string `json:"state"`
	HTMLURL   string `json:"html_url"`
	UpdatedAt string `json:"updated_at"`
}

func (d issueDTO) toIssue() Issue {
	return Issue{Number: d.Number, Title: d.Title, Body: d.Body, State: d.State, URL: d.HTMLURL, UpdatedAt: d.UpdatedAt}
}

func (c *HTTPClient) ListIssuesSince(ctx context.Context, owner, repo, cursor string) ([]Issue, string, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues?state=all&sort=updated&direction=asc", owner, repo)
	if cursor != "" {
		path += "&since=" + cursor
	}
	var resp issueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, "", err
	}

	issues := make([]Issue, 0, len(resp))
	nextCursor := cursor
	for _, d := range resp {
		issues = append(issues, d.toIssue())
		if d.UpdatedAt > nextCursor {
			nextCursor = d.UpdatedAt
		}
	}
	return issues, nextCursor, nil
}

func (c *HTTPClient) GetIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", owner, repo, number)
	var d issueDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &d); err != nil {
		return nil, err
	}
	issue := d.toIssue()
	return &issue, nil
}

func (c *HTTPClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	var d issueDTO
	if err := c.do(ctx, http.MethodGet, path, nil, &d); err != nil {
		return nil, err
	}
	issue := d.toIssue()
	return &issue, nil
}

func (c *HTTPClient) CreateIssue(ctx context.Context, owner, repo, title, body string) (*Issue, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues", owner, repo)
	var d issueDTO
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"title": title, "body": body}, &d); err != nil {
		return nil, err
	}
	issue := d.toIssue()
	return &issue, nil
}

func (c *HTTPClient) AddComment(ctx context.Context, owner, repo string, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	return c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, nil)
}
