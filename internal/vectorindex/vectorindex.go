// Package vectorindex is the external VectorIndex contract (spec.md §2,
// §6): the core depends only on upsert-by-id, fetch-by-id, delete-by-id,
// hybrid search, and exists-check against the single `KnowledgeObject`
// collection. The vector database itself is a black box that returns
// hybrid (BM25+vector) hits.
package vectorindex

import "context"

// KnowledgeObject is the canonical schema stored per searchable entity
// (spec.md §6 "Vector index (KnowledgeObject collection) — canonical
// schema").
type KnowledgeObject struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"` // Item|Task|GitHubIssue|File|Context|QA
	Title       string         `json:"title"`
	Description string         `json:"description"`
	ItemID      string         `json:"itemId,omitempty"`
	TaskID      string         `json:"taskId,omitempty"`
	Status      string         `json:"status,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	URL         string         `json:"url,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Hit is one hybrid-search result (spec.md §6: "{id, score, properties}").
type Hit struct {
	ID         string
	Score      float64
	Properties KnowledgeObject
}

// Filter narrows a hybrid search. Zero values are "no constraint".
type Filter struct {
	ItemID string
	Type   string
}

// SearchParams controls the blend between vector and keyword matching.
// Alpha closer to 1.0 leans vector, closer to 0.0 leans BM25 (spec.md §4.6
// retrieve-semantic alpha=0.6, retrieve-keyword alpha=0.7).
type SearchParams struct {
	Query  string
	Alpha  float64
	Limit  int
	Filter Filter
}

// Index is the narrow interface KnowledgeSync and RAGPipeline depend on.
type Index interface {
	Upsert(ctx context.Context, ko KnowledgeObject) error
	Fetch(ctx context.Context, id string) (*KnowledgeObject, error)
	Delete(ctx context.Context, id string) error
	DeleteByPrefix(ctx context.Context, idPrefix string) error
	Exists(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, params SearchParams) ([]Hit, error)
}
