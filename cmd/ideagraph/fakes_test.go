package main

import (
	"context"

	"ideagraph/internal/agentgateway"
	"ideagraph/internal/domain"

	"go.mongodb.org/mongo-driver/mongo"
)

// fakeItems/fakeTasks/fakeTags are minimal in-memory stand-ins for
// store.ItemStore/TaskStore/TagStore, in the same explicit-fake style as
// internal/poller's fakes_test.go.

type fakeItems struct {
	items []*domain.Item
}

func (f *fakeItems) Get(_ context.Context, id string) (*domain.Item, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeItems) GetBySourceRepo(_ context.Context, repo string) ([]*domain.Item, error) {
	var out []*domain.Item
	for _, it := range f.items {
		if it.SourceRepo == repo {
			out = append(out, it)
		}
	}
	return out, nil
}
func (f *fakeItems) GetByChannelID(_ context.Context, channelID string) ([]*domain.Item, error) {
	var out []*domain.Item
	for _, it := range f.items {
		if it.ChannelID == channelID {
			out = append(out, it)
		}
	}
	return out, nil
}
func (f *fakeItems) List(context.Context) ([]*domain.Item, error) { return f.items, nil }
func (f *fakeItems) Create(_ context.Context, item *domain.Item) error {
	f.items = append(f.items, item)
	return nil
}
func (f *fakeItems) Update(context.Context, *domain.Item) error { return nil }
func (f *fakeItems) Delete(_ context.Context, id string) error {
	for i, it := range f.items {
		if it.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeTasks struct {
	tasks    []*domain.Task
	shortIDs map[string]bool
	deleted  []string
}

func newFakeTasks(tasks ...*domain.Task) *fakeTasks {
	return &fakeTasks{tasks: tasks, shortIDs: map[string]bool{}}
}

func (f *fakeTasks) Get(_ context.Context, id string) (*domain.Task, error) {
	for _, t := range f.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeTasks) GetByShortID(_ context.Context, shortID string) (*domain.Task, error) {
	for _, t := range f.tasks {
		if t.ShortID == shortID {
			return t, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeTasks) GetByGitHubIssue(_ context.Context, itemID string, issueNumber int) (*domain.Task, error) {
	for _, t := range f.tasks {
		if t.ItemID == itemID && t.GitHubIssueNumber == issueNumber {
			return t, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeTasks) UpsertByGitHubIssue(ctx context.Context, itemID string, issueNumber int, newTask *domain.Task) (*domain.Task, bool, error) {
	if existing, err := f.GetByGitHubIssue(ctx, itemID, issueNumber); err == nil {
		return existing, false, nil
	}
	f.tasks = append(f.tasks, newTask)
	return newTask, true, nil
}
func (f *fakeTasks) ListByItem(_ context.Context, itemID string) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.ItemID == itemID {
			out = append(out, t)
		}
	}
	return out, nil
}
func (f *fakeTasks) ShortIDExists(_ context.Context, shortID string) (bool, error) {
	return f.shortIDs[shortID], nil
}
func (f *fakeTasks) Create(_ context.Context, task *domain.Task) error {
	f.tasks = append(f.tasks, task)
	f.shortIDs[task.ShortID] = true
	return nil
}
func (f *fakeTasks) Update(context.Context, *domain.Task) error { return nil }
func (f *fakeTasks) SetStatusIfNotTerminal(_ context.Context, taskID string, status domain.TaskStatus) (bool, error) {
	for _, t := range f.tasks {
		if t.ID == taskID {
			if t.Status.IsTerminal() {
				return false, nil
			}
			t.Status = status
			return true, nil
		}
	}
	return false, mongo.ErrNoDocuments
}
func (f *fakeTasks) Delete(_ context.Context, id string) error {
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return nil
}

type fakeTags struct {
	tags    []*domain.Tag
	deleted []string
	counts  map[string]int
}

func (f *fakeTags) GetOrCreate(context.Context, string) (*domain.Tag, error) { return nil, nil }
func (f *fakeTags) List(context.Context) ([]*domain.Tag, error)              { return f.tags, nil }
func (f *fakeTags) RecomputeUsageCount(_ context.Context, tagID string, count int) error {
	if f.counts == nil {
		f.counts = map[string]int{}
	}
	f.counts[tagID] = count
	return nil
}
func (f *fakeTags) Delete(_ context.Context, tagID string) error {
	for i, t := range f.tags {
		if t.ID == tagID {
			f.tags = append(f.tags[:i], f.tags[i+1:]...)
			f.deleted = append(f.deleted, tagID)
			return nil
		}
	}
	return nil
}

// fakeInvoker satisfies agentInvoker without talking to any real model.
type fakeInvoker struct {
	text string
	err  error
}

func (f *fakeInvoker) Invoke(context.Context, string, string, agentgateway.Params) (*agentgateway.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &agentgateway.Result{Text: f.text}, nil
}
