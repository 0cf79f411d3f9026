// Package rag implements the RAGPipeline (spec.md §4.8): question
// expansion, hybrid semantic+keyword retrieval, fusion/reranking, tiered
// context assembly, and answer generation with source citations.
package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"ideagraph/internal/agentgateway"
	"ideagraph/internal/classify"
	"ideagraph/internal/vectorindex"

	"github.com/go-playground/validator/v10"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	semanticAlpha = 0.6
	semanticLimit = 24
	keywordAlpha  = 0.7
	keywordLimit  = 20
	fusedTopN     = 6

	noKnowledgeAnswer = "No indexed knowledge matched this question."

	contextCharCap  = 2400
	snippetCharCap  = 400
	encodingName    = "cl100k_base"
	contextTokenCap = 600
)

// Invoker is the narrow AgentGateway seam this package depends on.
type Invoker interface {
	Invoke(ctx context.Context, agentName, prompt string, params agentgateway.Params) (*agentgateway.Result, error)
}

// expansion is the question-optimization agent's expected output
// (spec.md §4.8 stage 1).
type expansion struct {
	Language          string   `json:"language"`
	Core              string   `json:"core" validate:"required"`
	Synonyms          []string `json:"synonyms"`
	Phrases           []string `json:"phrases"`
	Entities          []string `json:"entities"`
	Tags              []string `json:"tags"`
	Ban               []string `json:"ban"`
	FollowupQuestions []string `json:"followup_questions"`
}

// Citation is one context snippet the answer is grounded on.
type Citation struct {
	Marker string
	Hit    vectorindex.Hit
	Final  float64
}

// Answer is the pipeline's terminal result (spec.md §4.8 stage 6).
type Answer struct {
	Text      string
	Citations []Citation
}

type Pipeline struct {
	gateway  Invoker
	index    vectorindex.Index
	validate *validator.Validate
	encoder  *tiktoken.Tiktoken
	logger   *zap.Logger
}

func New(gateway Invoker, index vectorindex.Index, logger *zap.Logger) *Pipeline {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		logger.Warn("rag: failed to load token encoder, falling back to char-length budgeting", zap.Error(err))
		enc = nil
	}
	return &Pipeline{
		gateway:  gateway,
		index:    index,
		validate: validator.New(),
		encoder:  enc,
		logger:   logger,
	}
}

// Ask runs the full expand -> retrieve -> fuse -> assemble -> answer
// pipeline for one question, optionally scoped to an Item.
func (p *Pipeline) Ask(ctx context.Context, question, itemID string) (*Answer, error) {
	exp := p.expand(ctx, question)

	sem, kw, err := p.retrieve(ctx, exp, itemID)
	if err != nil {
		return nil, fmt.Errorf("rag: retrieval failed: %w", err)
	}

	fused := fuse(sem, kw, exp.Tags, itemID)
	if len(fused) == 0 {
		return &Answer{Text: noKnowledgeAnswer}, nil
	}

	tiers := p.assemble(fused, itemID)
	if len(tiers) == 0 {
		return &Answer{Text: noKnowledgeAnswer}, nil
	}

	contextBlock, citations := serializeContext(tiers, p.tokenLen)

	result, err := p.gateway.Invoke(ctx, "question-answering", buildAnswerPrompt(question, contextBlock), agentgateway.Params{})
	if err != nil {
		return nil, fmt.Errorf("rag: answer agent invocation failed: %w", err)
	}

	return &Answer{Text: result.Text, Citations: citations}, nil
}

// SuggestItems satisfies classify.ItemSuggester: a suggestion-only
// semantic pre-query over type=Item, top 5 (spec.md §4.6).
func (p *Pipeline) SuggestItems(ctx context.Context, query string) ([]classify.ItemCandidate, error) {
	hits, err := p.index.Search(ctx, vectorindex.SearchParams{
		Query: query,
		Alpha: semanticAlpha,
		Limit: 5,
		Filter: vectorindex.Filter{Type: "Item"},
	})
	if err != nil {
		return nil, fmt.Errorf("rag: item suggestion search failed: %w", err)
	}

	candidates := make([]classify.ItemCandidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, classify.ItemCandidate{
			ID:    h.Properties.ItemID,
			Title: h.Properties.Title,
			Score: h.Score,
		})
	}
	return candidates, nil
}

func (p *Pipeline) expand(ctx context.Context, question string) expansion {
	fallback := expansion{Core: question}

	result, err := p.gateway.Invoke(ctx, "question-optimization", question, agentgateway.Params{})
	if err != nil {
		p.logger.Warn("rag: expand agent invocation failed, using fallback", zap.Error(err))
		return fallback
	}

	var exp expansion
	if err := json.Unmarshal([]byte(extractJSON(result.Text)), &exp); err != nil {
		p.logger.Warn("rag: expand agent returned malformed JSON, using fallback", zap.Error(err))
		return fallback
	}
	if err := p.validate.Struct(exp); err != nil {
		p.logger.Warn("rag: expand agent output failed validation, using fallback", zap.Error(err))
		return fallback
	}
	return exp
}

// retrieve runs retrieve-semantic and retrieve-keyword concurrently
// (spec.md §4.8 stages 2-3). Both errors, if any, are fanned into one via
// multierr rather than errgroup's first-error-wins, since a partial
// retrieval failure (e.g. keyword search down) shouldn't hide a semantic
// search failure happening in the same round.
func (p *Pipeline) retrieve(ctx context.Context, exp expansion, itemID string) ([]vectorindex.Hit, []vectorindex.Hit, error) {
	var sem, kw []vectorindex.Hit
	var semErr, kwErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := p.index.Search(gctx, vectorindex.SearchParams{
			Query:  semanticQuery(exp),
			Alpha:  semanticAlpha,
			Limit:  semanticLimit,
			Filter: vectorindex.Filter{ItemID: itemID},
		})
		if err != nil {
			semErr = fmt.Errorf("retrieve-semantic: %w", err)
			return nil
		}
		sem = hits
		return nil
	})
	g.Go(func() error {
		hits, err := p.index.Search(gctx, vectorindex.SearchParams{
			Query:  keywordQuery(exp),
			Alpha:  keywordAlpha,
			Limit:  keywordLimit,
			Filter: vectorindex.Filter{ItemID: itemID},
		})
		if err != nil {
			kwErr = fmt.Errorf("retrieve-keyword: %w", err)
			return nil
		}
		kw = hits
		return nil
	})
	_ = g.Wait()

	if err := multierr.Append(semErr, kwErr); err != nil {
		return nil, nil, err
	}
	return sem, kw, nil
}

func (p *Pipeline) tokenLen(s string) int {
	if p.encoder == nil {
		return len(s) / 4
	}
	return len(p.encoder.Encode(s, nil, nil))
}

func semanticQuery(exp expansion) string {
	return strings.Join(filterEmpty(append([]string{exp.Core}, append(top(exp.Synonyms, 3), top(exp.Phrases, 2)...)...)), " ")
}

func keywordQuery(exp expansion) string {
	return strings.TrimSpace(strings.Join(exp.Tags, " ") + " " + exp.Core)
}

func top(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func filterEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fused is one deduped candidate carrying its component scores
// (spec.md §4.8 stage 4).
type fused struct {
	hit   vectorindex.Hit
	final float64
}

func fuse(sem, kw []vectorindex.Hit, expandedTags []string, questionItemID string) []fused {
	semScore := map[string]float64{}
	bmScore := map[string]float64{}
	byID := map[string]vectorindex.Hit{}

	for _, h := range sem {
		semScore[h.ID] = h.Score
		byID[h.ID] = h
	}
	for _, h := range kw {
		bmScore[h.ID] = h.Score
		if _, ok := byID[h.ID]; !ok {
			byID[h.ID] = h
		}
	}

	tagSet := map[string]bool{}
	for _, t := range expandedTags {
		tagSet[t] = true
	}

	results := make([]fused, 0, len(byID))
	for id, hit := range byID {
		tagMatch := 0.0
		for _, t := range hit.Properties.Tags {
			if tagSet[t] {
				tagMatch = 1.0
				break
			}
		}
		sameItem := 0.0
		if questionItemID != "" && hit.Properties.ItemID == questionItemID {
			sameItem = 1.0
		}
		final := 0.6*semScore[id] + 0.2*bmScore[id] + 0.15*tagMatch + 0.05*sameItem
		results = append(results, fused{hit: hit, final: final})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].final != results[j].final {
			return results[i].final > results[j].final
		}
		// Tie-break: same-item candidate wins (spec.md §9 Open Question).
		iSame := questionItemID != "" && results[i].hit.Properties.ItemID == questionItemID
		jSame := questionItemID != "" && results[j].hit.Properties.ItemID == questionItemID
		return iSame && !jSame
	})

	if len(results) > fusedTopN {
		results = results[:fusedTopN]
	}
	return results
}

// assemble orders fused candidates into the three-tier context (spec.md
// §4.8 stage 5): same-item highest scores, then same-item next scores,
// then cross-item remainder.
func (p *Pipeline) assemble(candidates []fused, questionItemID string) []fused {
	var same, other []fused
	for _, c := range candidates {
		if questionItemID != "" && c.hit.Properties.ItemID == questionItemID {
			same = append(same, c)
		} else {
			other = append(other, c)
		}
	}

	var tierA, tierB []fused
	if len(same) > 0 {
		n := min(3, len(same))
		tierA = same[:n]
		same = same[n:]
	}
	if len(same) > 0 {
		n := min(3, len(same))
		tierB = same[:n]
	}

	var tierC []fused
	if len(other) > 0 {
		n := min(2, len(other))
		tierC = other[:n]
	}

	ordered := append(append(append([]fused{}, tierA...), tierB...), tierC...)
	return ordered
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func serializeContext(candidates []fused, tokenLen func(string) int) (string, []Citation) {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	citations := make([]Citation, 0, len(candidates))

	for i, c := range candidates {
		marker := tierMarker(i)
		snippet := c.hit.Properties.Description
		if len(snippet) > snippetCharCap {
			snippet = snippet[:snippetCharCap]
		}
		line := fmt.Sprintf("[#%s] %s — %s\n", marker, c.hit.Properties.Title, snippet)
		b.WriteString(line)
		citations = append(citations, Citation{Marker: marker, Hit: c.hit, Final: c.final})
	}

	out := b.String()
	for tokenLen(out) > contextTokenCap || len(out) > contextCharCap {
		if !truncateLongestSnippet(candidates) {
			break
		}
		out = rebuild(candidates)
	}
	return out, citations
}

// tierMarker assigns A1, A2, B1, B2, C1... in order (first 2-3 are tier A,
// next 2-3 tier B, remainder tier C) per spec.md §4.8 stage 5 labeling.
func tierMarker(i int) string {
	switch {
	case i < 3:
		return fmt.Sprintf("A%d", i+1)
	case i < 6:
		return fmt.Sprintf("B%d", i-2)
	default:
		return fmt.Sprintf("C%d", i-5)
	}
}

func truncateLongestSnippet(candidates []fused) bool {
	longest := -1
	longestLen := 0
	for i, c := range candidates {
		if l := len(c.hit.Properties.Description); l > longestLen {
			longest = i
			longestLen = l
		}
	}
	if longest == -1 || longestLen <= 40 {
		return false
	}
	c := &candidates[longest]
	c.hit.Properties.Description = c.hit.Properties.Description[:longestLen-40]
	return true
}

func rebuild(candidates []fused) string {
	var b strings.Builder
	b.WriteString("CONTEXT:\n")
	for i, c := range candidates {
		marker := tierMarker(i)
		snippet := c.hit.Properties.Description
		if len(snippet) > snippetCharCap {
			snippet = snippet[:snippetCharCap]
		}
		fmt.Fprintf(&b, "[#%s] %s — %s\n", marker, c.hit.Properties.Title, snippet)
	}
	return b.String()
}

func buildAnswerPrompt(question, contextBlock string) string {
	return fmt.Sprintf("question: %s\n\n%s\n\nCite sources using the [#A1]/[#B2] markers from the context block.", question, contextBlock)
}

func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
