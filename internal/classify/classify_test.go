package classify_test

import (
	"context"
	"errors"
	"testing"

	"ideagraph/internal/agentgateway"
	"ideagraph/internal/classify"
	"ideagraph/internal/domain"
	"ideagraph/internal/threadtoken"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type fakeTasks struct {
	byShortID map[string]*domain.Task
}

func (f *fakeTasks) GetByShortID(_ context.Context, shortID string) (*domain.Task, error) {
	if t, ok := f.byShortID[shortID]; ok {
		return t, nil
	}
	return nil, mongo.ErrNoDocuments
}

type fakeSuggester struct {
	candidates []classify.ItemCandidate
}

func (f *fakeSuggester) SuggestItems(_ context.Context, _ string) ([]classify.ItemCandidate, error) {
	return f.candidates, nil
}

type fakeInvoker struct {
	response string
	err      error
}

func (f *fakeInvoker) Invoke(_ context.Context, _ string, _ string, _ agentgateway.Params) (*agentgateway.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &agentgateway.Result{Text: f.response}, nil
}

func TestClassifyResolvesThreadToken(t *testing.T) {
	task := &domain.Task{ID: "task-1", ShortID: "A2B3C4"}
	tasks := &fakeTasks{byShortID: map[string]*domain.Task{"A2B3C4": task}}
	c := classify.New(&fakeInvoker{}, tasks, &fakeSuggester{}, "", zap.NewNop())

	outcome, err := c.Classify(context.Background(), "Re: Login broken [IG-TASK:#A2B3C4]", "Works now", "bob@example.org")

	require.NoError(t, err)
	assert.Equal(t, classify.KindComment, outcome.Kind)
	assert.Equal(t, "task-1", outcome.TaskID)
}

func TestClassifyCreatesTaskFromAgentOutput(t *testing.T) {
	tasks := &fakeTasks{byShortID: map[string]*domain.Task{}}
	invoker := &fakeInvoker{response: `{"kind":"create","item_id":"item-1","task_title":"Login broken","task_description_normalized":"user cannot log in"}`}
	c := classify.New(invoker, tasks, &fakeSuggester{}, "", zap.NewNop())

	outcome, err := c.Classify(context.Background(), "Login broken", "I can't sign in since morning.", "alice@example.org")

	require.NoError(t, err)
	assert.Equal(t, classify.KindCreate, outcome.Kind)
	assert.Equal(t, "item-1", outcome.ItemID)
	assert.Equal(t, "Login broken", outcome.TaskTitle)
}

func TestClassifyFallsBackToDefaultItem(t *testing.T) {
	tasks := &fakeTasks{byShortID: map[string]*domain.Task{}}
	invoker := &fakeInvoker{response: `{"kind":"create","item_id":null,"task_title":"x","task_description_normalized":"y"}`}
	c := classify.New(invoker, tasks, &fakeSuggester{}, "default-item", zap.NewNop())

	outcome, err := c.Classify(context.Background(), "x", "y", "alice@example.org")

	require.NoError(t, err)
	assert.Equal(t, classify.KindCreate, outcome.Kind)
	assert.Equal(t, "default-item", outcome.ItemID)
}

func TestClassifyIgnoresOnAgentError(t *testing.T) {
	tasks := &fakeTasks{byShortID: map[string]*domain.Task{}}
	invoker := &fakeInvoker{err: errors.New("timeout")}
	c := classify.New(invoker, tasks, &fakeSuggester{}, "", zap.NewNop())

	outcome, err := c.Classify(context.Background(), "subject", "body", "alice@example.org")

	require.NoError(t, err)
	assert.Equal(t, classify.KindIgnore, outcome.Kind)
	assert.Equal(t, classify.ReasonClassifierError, outcome.Reason)
}

func TestClassifyIgnoresOnMalformedOutput(t *testing.T) {
	tasks := &fakeTasks{byShortID: map[string]*domain.Task{}}
	invoker := &fakeInvoker{response: "not json"}
	c := classify.New(invoker, tasks, &fakeSuggester{}, "", zap.NewNop())

	outcome, err := c.Classify(context.Background(), "subject", "body", "alice@example.org")

	require.NoError(t, err)
	assert.Equal(t, classify.KindIgnore, outcome.Kind)
	assert.Equal(t, classify.ReasonClassifierError, outcome.Reason)
}

func TestClassifyPassesThroughIgnoreReason(t *testing.T) {
	tasks := &fakeTasks{byShortID: map[string]*domain.Task{}}
	invoker := &fakeInvoker{response: `{"kind":"ignore","reason":"out_of_scope"}`}
	c := classify.New(invoker, tasks, &fakeSuggester{}, "", zap.NewNop())

	outcome, err := c.Classify(context.Background(), "FYI", "just chatter", "alice@example.org")

	require.NoError(t, err)
	assert.Equal(t, classify.KindIgnore, outcome.Kind)
	assert.Equal(t, "out_of_scope", outcome.Reason)
}

func TestExtractShortIDUnused(t *testing.T) {
	// sanity check that threadtoken integration matches what Classify expects
	assert.Equal(t, "A2B3C4", threadtoken.ExtractShortID("[IG-TASK:#A2B3C4]"))
}
