package advisor_test

import (
	"context"
	"testing"

	"ideagraph/internal/advisor"
	"ideagraph/internal/agentgateway"
	"ideagraph/internal/vectorindex"
	"ideagraph/internal/websearch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoker struct {
	response string
	prompt   string
}

func (f *fakeInvoker) Invoke(_ context.Context, _ string, prompt string, _ agentgateway.Params) (*agentgateway.Result, error) {
	f.prompt = prompt
	return &agentgateway.Result{Text: f.response}, nil
}

type fakeIndex struct {
	hits []vectorindex.Hit
}

func (f *fakeIndex) Upsert(_ context.Context, _ vectorindex.KnowledgeObject) error { return nil }
func (f *fakeIndex) Fetch(_ context.Context, _ string) (*vectorindex.KnowledgeObject, error) {
	return nil, nil
}
func (f *fakeIndex) Delete(_ context.Context, _ string) error         { return nil }
func (f *fakeIndex) DeleteByPrefix(_ context.Context, _ string) error { return nil }
func (f *fakeIndex) Exists(_ context.Context, _ string) (bool, error) { return false, nil }
func (f *fakeIndex) Search(_ context.Context, _ vectorindex.SearchParams) ([]vectorindex.Hit, error) {
	return f.hits, nil
}

type fakeSearcher struct {
	results []websearch.Result
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, _ string) ([]websearch.Result, error) {
	return f.results, f.err
}

func TestInternalDedupesByType(t *testing.T) {
	index := &fakeIndex{hits: []vectorindex.Hit{
		{Properties: vectorindex.KnowledgeObject{Type: "Task", Title: "A"}},
		{Properties: vectorindex.KnowledgeObject{Type: "Task", Title: "B"}},
		{Properties: vectorindex.KnowledgeObject{Type: "Item", Title: "C"}},
	}}
	invoker := &fakeInvoker{response: "analysis"}
	a := advisor.New(invoker, index, nil)

	text, err := a.Internal(context.Background(), "login is broken")

	require.NoError(t, err)
	assert.Equal(t, "analysis", text)
	assert.Contains(t, invoker.prompt, "type=Task")
	assert.Contains(t, invoker.prompt, "type=Item")
}

func TestExternalPropagatesUnconfigured(t *testing.T) {
	searcher := &fakeSearcher{err: websearch.ErrUnconfigured}
	a := advisor.New(&fakeInvoker{}, &fakeIndex{}, searcher)

	_, err := a.External(context.Background(), "login is broken")

	assert.ErrorIs(t, err, websearch.ErrUnconfigured)
}

func TestExternalCapsHitsAndCitesSources(t *testing.T) {
	searcher := &fakeSearcher{results: []websearch.Result{
		{Title: "Doc 1", URL: "https://a", Snippet: "s1"},
		{Title: "Doc 2", URL: "https://b", Snippet: "s2"},
	}}
	invoker := &fakeInvoker{response: "markdown with citations"}
	a := advisor.New(invoker, &fakeIndex{}, searcher)

	text, err := a.External(context.Background(), "login is broken")

	require.NoError(t, err)
	assert.Equal(t, "markdown with citations", text)
	assert.Contains(t, invoker.prompt, "Doc 1")
}
