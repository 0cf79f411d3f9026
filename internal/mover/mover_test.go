package mover_test

import (
	"context"
	"testing"

	"ideagraph/internal/domain"
	"ideagraph/internal/graphclient"
	"ideagraph/internal/knowledge"
	"ideagraph/internal/mover"
	"ideagraph/internal/vectorindex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeItems struct {
	byID map[string]*domain.Item
}

func (f *fakeItems) Get(_ context.Context, id string) (*domain.Item, error) { return f.byID[id], nil }
func (f *fakeItems) GetBySourceRepo(_ context.Context, _ string) ([]*domain.Item, error) {
	return nil, nil
}
func (f *fakeItems) GetByChannelID(_ context.Context, _ string) ([]*domain.Item, error) { return nil, nil }
func (f *fakeItems) List(_ context.Context) ([]*domain.Item, error)                     { return nil, nil }
func (f *fakeItems) Create(_ context.Context, item *domain.Item) error {
	f.byID[item.ID] = item
	return nil
}
func (f *fakeItems) Update(_ context.Context, item *domain.Item) error {
	f.byID[item.ID] = item
	return nil
}
func (f *fakeItems) Delete(_ context.Context, id string) error { delete(f.byID, id); return nil }

type fakeTasks struct {
	byID map[string]*domain.Task
}

func (f *fakeTasks) Get(_ context.Context, id string) (*domain.Task, error) { return f.byID[id], nil }
func (f *fakeTasks) GetByShortID(_ context.Context, _ string) (*domain.Task, error) {
	return nil, nil
}
func (f *fakeTasks) GetByGitHubIssue(_ context.Context, _ string, _ int) (*domain.Task, error) {
	return nil, nil
}
func (f *fakeTasks) UpsertByGitHubIssue(_ context.Context, _ string, _ int, _ *domain.Task) (*domain.Task, bool, error) {
	return nil, false, nil
}
func (f *fakeTasks) ListByItem(_ context.Context, _ string) ([]*domain.Task, error) { return nil, nil }
func (f *fakeTasks) ShortIDExists(_ context.Context, _ string) (bool, error)        { return false, nil }
func (f *fakeTasks) Create(_ context.Context, task *domain.Task) error {
	f.byID[task.ID] = task
	return nil
}
func (f *fakeTasks) Update(_ context.Context, task *domain.Task) error {
	f.byID[task.ID] = task
	return nil
}
func (f *fakeTasks) SetStatusIfNotTerminal(_ context.Context, _ string, _ domain.TaskStatus) (bool, error) {
	return false, nil
}
func (f *fakeTasks) Delete(_ context.Context, id string) error { delete(f.byID, id); return nil }

// fakeGraphClient implements the full graphclient.Client surface; this
// test only exercises EnsureFolder and MoveFile.
type fakeGraphClient struct {
	folders     map[string]string
	movedFileID string
	movedDestID string
}

func (f *fakeGraphClient) ListMailSince(context.Context, string, string, string) ([]graphclient.Message, string, error) {
	return nil, "", nil
}
func (f *fakeGraphClient) MoveMail(context.Context, string, string, string) error { return nil }
func (f *fakeGraphClient) SendMail(context.Context, string, []string, string, string) error {
	return nil
}
func (f *fakeGraphClient) ListChannelMessagesSince(context.Context, string, string, string) ([]graphclient.Message, string, error) {
	return nil, "", nil
}
func (f *fakeGraphClient) PostChannelMessage(context.Context, string, string, string) error {
	return nil
}
func (f *fakeGraphClient) ResolveUserByObjectID(context.Context, string) (string, string, string, error) {
	return "", "", "", nil
}
func (f *fakeGraphClient) UploadFile(context.Context, string, string, string, []byte) (*graphclient.File, error) {
	return nil, nil
}
func (f *fakeGraphClient) MoveFile(_ context.Context, _, fileID, destFolderID string) error {
	f.movedFileID = fileID
	f.movedDestID = destFolderID
	return nil
}
func (f *fakeGraphClient) DeleteFile(context.Context, string, string) error { return nil }
func (f *fakeGraphClient) EnsureFolder(_ context.Context, _, _, name string) (string, error) {
	if id, ok := f.folders[name]; ok {
		return id, nil
	}
	id := "folder-" + name
	f.folders[name] = id
	return id, nil
}

type fakeIndex struct{}

func (f *fakeIndex) Upsert(_ context.Context, _ vectorindex.KnowledgeObject) error { return nil }
func (f *fakeIndex) Fetch(_ context.Context, _ string) (*vectorindex.KnowledgeObject, error) {
	return nil, nil
}
func (f *fakeIndex) Delete(_ context.Context, _ string) error         { return nil }
func (f *fakeIndex) DeleteByPrefix(_ context.Context, _ string) error { return nil }
func (f *fakeIndex) Exists(_ context.Context, _ string) (bool, error) { return false, nil }
func (f *fakeIndex) Search(_ context.Context, _ vectorindex.SearchParams) ([]vectorindex.Hit, error) {
	return nil, nil
}

func TestMoveRetargetsTaskAndMovesFolder(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"item-a": {ID: "item-a", Title: "Item A"},
		"item-b": {ID: "item-b", Title: "Item B"},
	}}
	tasks := &fakeTasks{byID: map[string]*domain.Task{
		"task-1": {ID: "task-1", Title: "Task", ItemID: "item-a", FolderID: "task-folder-1", RequesterID: "user-1"},
	}}
	graph := &fakeGraphClient{folders: map[string]string{}}
	sync := knowledge.New(&fakeIndex{}, zap.NewNop())

	m := mover.New(items, tasks, graph, sync, nil, zap.NewNop())

	err := m.Move(context.Background(), "task-1", "item-b", false)

	require.NoError(t, err)
	assert.Equal(t, "item-b", tasks.byID["task-1"].ItemID)
	assert.Equal(t, "task-folder-1", graph.movedFileID)
	assert.NotEmpty(t, graph.movedDestID)
}

func TestMoveCreatesDestinationFolderWhenMissing(t *testing.T) {
	items := &fakeItems{byID: map[string]*domain.Item{
		"item-a": {ID: "item-a", Title: "Item A"},
		"item-b": {ID: "item-b", Title: "Item B"},
	}}
	tasks := &fakeTasks{byID: map[string]*domain.Task{
		"task-1": {ID: "task-1", Title: "Task", ItemID: "item-a"},
	}}
	graph := &fakeGraphClient{folders: map[string]string{}}
	sync := knowledge.New(&fakeIndex{}, zap.NewNop())

	m := mover.New(items, tasks, graph, sync, nil, zap.NewNop())

	err := m.Move(context.Background(), "task-1", "item-b", false)

	require.NoError(t, err)
	assert.NotEmpty(t, items.byID["item-b"].FolderID)
}
