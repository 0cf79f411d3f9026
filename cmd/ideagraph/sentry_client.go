package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// sentryIssue is the subset of Sentry's issue list response this tool
// reads. No Sentry SDK is vendored anywhere in the retrieval pack, so this
// is a thin net/http client in the same hand-rolled-REST-client idiom as
// internal/vectorindex.HTTPClient and internal/websearch's providers.
type sentryIssue struct {
	Title     string `json:"title"`
	Culprit   string `json:"culprit"`
	Count     string `json:"count"`
	Level     string `json:"level"`
	Permalink string `json:"permalink"`
	LastSeen  string `json:"lastSeen"`
}

// fetchSentryIssues lists the most recent unresolved issues for the
// configured Sentry org/project and renders them as plain text suitable to
// feed the text-analysis-task-derivation agent.
func fetchSentryIssues(ctx context.Context) (string, error) {
	token := os.Getenv("SENTRY_API_TOKEN")
	org := os.Getenv("SENTRY_ORG")
	project := os.Getenv("SENTRY_PROJECT")
	if token == "" || org == "" || project == "" {
		return "", fmt.Errorf("analyze-logs: SENTRY_API_TOKEN, SENTRY_ORG, and SENTRY_PROJECT are all required for --fetch-sentry")
	}

	url := fmt.Sprintf("https://sentry.io/api/0/projects/%s/%s/issues/?query=is:unresolved&limit=50", org, project)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("analyze-logs: build sentry request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze-logs: sentry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("analyze-logs: sentry returned status %d", resp.StatusCode)
	}

	var issues []sentryIssue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return "", fmt.Errorf("analyze-logs: decode sentry response: %w", err)
	}

	var sb strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&sb, "[%s] %s (culprit=%s, count=%s, last_seen=%s)\n", issue.Level, issue.Title, issue.Culprit, issue.Count, issue.LastSeen)
	}
	return sb.String(), nil
}
