package poller_test

import (
	"context"
	"testing"

	"ideagraph/internal/domain"
	"ideagraph/internal/githubclient"
	"ideagraph/internal/knowledge"
	"ideagraph/internal/poller"
	"ideagraph/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type noopIndex struct{}

func (noopIndex) Upsert(context.Context, vectorindex.KnowledgeObject) error { return nil }
func (noopIndex) Fetch(context.Context, string) (*vectorindex.KnowledgeObject, error) {
	return nil, nil
}
func (noopIndex) Delete(context.Context, string) error         { return nil }
func (noopIndex) DeleteByPrefix(context.Context, string) error { return nil }
func (noopIndex) Exists(context.Context, string) (bool, error) { return false, nil }
func (noopIndex) Search(context.Context, vectorindex.SearchParams) ([]vectorindex.Hit, error) {
	return nil, nil
}

func TestGitHubPollerCreatesTaskForUnlinkedOpenIssue(t *testing.T) {
	item := &domain.Item{ID: "item-1", SourceRepo: "acme/widgets"}
	items := &fakeItems{byID: map[string]*domain.Item{"item-1": item}, all: []*domain.Item{item}}
	tasks := newFakeTasks()
	gh := &fakeGitHub{issues: []githubclient.Issue{
		{Number: 42, Title: "Crash on boot", Body: "stack trace", State: "open", URL: "https://github.com/acme/widgets/issues/42", UpdatedAt: "2026-02-01T00:00:00Z"},
	}}
	cursors := newFakeCursors()
	poisonStore := newFakePoison()
	sync := knowledge.New(noopIndex{}, zap.NewNop())

	p := poller.NewGitHubPoller(gh, items, tasks, sync, cursors, poisonStore, zap.NewNop())
	require.NoError(t, p.PollOnce(context.Background()))

	require.Len(t, tasks.created, 1)
	assert.Equal(t, domain.TaskStatusNew, tasks.created[0].Status)
	assert.Equal(t, 42, tasks.created[0].GitHubIssueNumber)
	assert.Equal(t, "2026-02-01T00:00:00Z", cursors.values["github:acme/widgets"])
}

func TestGitHubPollerTransitionsClosedIssueToTesting(t *testing.T) {
	item := &domain.Item{ID: "item-1", SourceRepo: "acme/widgets"}
	existing := &domain.Task{ID: "task-1", ItemID: "item-1", GitHubIssueNumber: 7, Status: domain.TaskStatusWorking, ShortID: "Z1Z1Z1"}
	items := &fakeItems{byID: map[string]*domain.Item{"item-1": item}, all: []*domain.Item{item}}
	tasks := newFakeTasks()
	tasks.byID["task-1"] = existing
	tasks.byIssue["item-1#7"] = existing

	gh := &fakeGitHub{issues: []githubclient.Issue{
		{Number: 7, Title: "Leak", Body: "fixed upstream", State: "closed", URL: "https://github.com/acme/widgets/issues/7", UpdatedAt: "2026-02-02T00:00:00Z"},
	}}
	cursors := newFakeCursors()
	poisonStore := newFakePoison()
	sync := knowledge.New(noopIndex{}, zap.NewNop())

	p := poller.NewGitHubPoller(gh, items, tasks, sync, cursors, poisonStore, zap.NewNop())
	require.NoError(t, p.PollOnce(context.Background()))

	assert.Equal(t, domain.TaskStatusTesting, existing.Status)
	assert.Empty(t, tasks.created)
}

func TestGitHubPollerSkipsItemsWithoutSourceRepo(t *testing.T) {
	item := &domain.Item{ID: "item-1"}
	items := &fakeItems{byID: map[string]*domain.Item{"item-1": item}, all: []*domain.Item{item}}
	tasks := newFakeTasks()
	gh := &fakeGitHub{}
	cursors := newFakeCursors()
	poisonStore := newFakePoison()
	sync := knowledge.New(noopIndex{}, zap.NewNop())

	p := poller.NewGitHubPoller(gh, items, tasks, sync, cursors, poisonStore, zap.NewNop())
	require.NoError(t, p.PollOnce(context.Background()))

	assert.Empty(t, tasks.created)
}
