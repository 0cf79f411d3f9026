// Package advisor implements SupportAdvisor (spec.md §4.9): internal
// (RAG-over-own-knowledge) and external (web-search) advisory analyses for
// a Task description. Neither mode mutates the Task.
package advisor

import (
	"context"
	"fmt"

	"ideagraph/internal/agentgateway"
	"ideagraph/internal/vectorindex"
	"ideagraph/internal/websearch"
)

const (
	internalSimilarLimit = 5
	externalHitLimit     = 5
)

// Invoker is the narrow AgentGateway seam this package depends on.
type Invoker interface {
	Invoke(ctx context.Context, agentName, prompt string, params agentgateway.Params) (*agentgateway.Result, error)
}

// Searcher is the narrow WebSearch seam this package depends on.
type Searcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

type Advisor struct {
	gateway Invoker
	index   vectorindex.Index
	search  Searcher
}

func New(gateway Invoker, index vectorindex.Index, search Searcher) *Advisor {
	return &Advisor{gateway: gateway, index: index, search: search}
}

// Internal searches the knowledge store for objects similar to
// taskDescription (top 5, distinct types) and asks support-advisor-internal
// for a structured markdown analysis (spec.md §4.9 "Internal").
func (a *Advisor) Internal(ctx context.Context, taskDescription string) (string, error) {
	hits, err := a.index.Search(ctx, vectorindex.SearchParams{
		Query: taskDescription,
		Alpha: 0.6,
		Limit: internalSimilarLimit,
	})
	if err != nil {
		return "", fmt.Errorf("advisor: similar-object search failed: %w", err)
	}

	similar := distinctByType(hits, internalSimilarLimit)

	result, err := a.gateway.Invoke(ctx, "support-advisor-internal", buildInternalPrompt(taskDescription, similar), agentgateway.Params{})
	if err != nil {
		return "", fmt.Errorf("advisor: internal analysis agent failed: %w", err)
	}
	return result.Text, nil
}

// External fetches web search results for taskDescription and asks
// support-advisor-external for markdown with source citations (spec.md
// §4.9 "External"). Returns websearch.ErrUnconfigured if neither web
// search backend is configured.
func (a *Advisor) External(ctx context.Context, taskDescription string) (string, error) {
	hits, err := a.search.Search(ctx, taskDescription)
	if err != nil {
		return "", err
	}
	if len(hits) > externalHitLimit {
		hits = hits[:externalHitLimit]
	}

	result, err := a.gateway.Invoke(ctx, "support-advisor-external", buildExternalPrompt(taskDescription, hits), agentgateway.Params{})
	if err != nil {
		return "", fmt.Errorf("advisor: external analysis agent failed: %w", err)
	}
	return result.Text, nil
}

func distinctByType(hits []vectorindex.Hit, limit int) []vectorindex.Hit {
	seenTypes := map[string]bool{}
	out := make([]vectorindex.Hit, 0, limit)
	for _, h := range hits {
		if len(out) >= limit {
			break
		}
		if seenTypes[h.Properties.Type] {
			continue
		}
		seenTypes[h.Properties.Type] = true
		out = append(out, h)
	}
	return out
}

func buildInternalPrompt(taskDescription string, similar []vectorindex.Hit) string {
	prompt := fmt.Sprintf("task_description: %s\nsimilar_objects:\n", taskDescription)
	for _, h := range similar {
		prompt += fmt.Sprintf("- type=%s title=%q description=%q\n", h.Properties.Type, h.Properties.Title, h.Properties.Description)
	}
	return prompt
}

func buildExternalPrompt(taskDescription string, hits []websearch.Result) string {
	prompt := fmt.Sprintf("task_description: %s\nsearch_hits:\n", taskDescription)
	for _, h := range hits {
		prompt += fmt.Sprintf("- title=%q url=%s snippet=%q\n", h.Title, h.URL, h.Snippet)
	}
	return prompt
}
