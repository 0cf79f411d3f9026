package poller_test

import (
	"context"
	"strconv"

	"ideagraph/internal/agentgateway"
	"ideagraph/internal/classify"
	"ideagraph/internal/domain"
	"ideagraph/internal/githubclient"
	"ideagraph/internal/graphclient"

	"go.mongodb.org/mongo-driver/mongo"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type postedChannelMessage struct {
	teamID, channelID, body string
}

type fakeGraph struct {
	mailMessages    []graphclient.Message
	mailCursor      string
	channelMessages []graphclient.Message
	channelCursor   string
	users           map[string]struct{ displayName, email, login string }

	sentMail    []sentMail
	posted      []postedChannelMessage
	sendMailErr error
}

func (f *fakeGraph) ListMailSince(context.Context, string, string, string) ([]graphclient.Message, string, error) {
	return f.mailMessages, f.mailCursor, nil
}
func (f *fakeGraph) MoveMail(context.Context, string, string, string) error { return nil }
func (f *fakeGraph) SendMail(_ context.Context, _ string, to []string, subject, body string) error {
	if f.sendMailErr != nil {
		return f.sendMailErr
	}
	f.sentMail = append(f.sentMail, sentMail{to: to, subject: subject, body: body})
	return nil
}
func (f *fakeGraph) ListChannelMessagesSince(context.Context, string, string, string) ([]graphclient.Message, string, error) {
	return f.channelMessages, f.channelCursor, nil
}
func (f *fakeGraph) PostChannelMessage(_ context.Context, teamID, channelID, body string) error {
	f.posted = append(f.posted, postedChannelMessage{teamID: teamID, channelID: channelID, body: body})
	return nil
}
func (f *fakeGraph) ResolveUserByObjectID(_ context.Context, objectID string) (string, string, string, error) {
	if u, ok := f.users[objectID]; ok {
		return u.displayName, u.email, u.login, nil
	}
	return "", "", "", mongo.ErrNoDocuments
}
func (f *fakeGraph) UploadFile(context.Context, string, string, string, []byte) (*graphclient.File, error) {
	return nil, nil
}
func (f *fakeGraph) MoveFile(context.Context, string, string, string) error { return nil }
func (f *fakeGraph) DeleteFile(context.Context, string, string) error      { return nil }
func (f *fakeGraph) EnsureFolder(context.Context, string, string, string) (string, error) {
	return "", nil
}

type fakeTasks struct {
	byID      map[string]*domain.Task
	byShortID map[string]*domain.Task
	byIssue   map[string]*domain.Task // key: itemID+"#"+issueNumber
	created   []*domain.Task
	updated   []*domain.Task
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{
		byID:      map[string]*domain.Task{},
		byShortID: map[string]*domain.Task{},
		byIssue:   map[string]*domain.Task{},
	}
}

func issueKey(itemID string, number int) string {
	return itemID + "#" + strconv.Itoa(number)
}

func (f *fakeTasks) Get(_ context.Context, id string) (*domain.Task, error) {
	if t, ok := f.byID[id]; ok {
		return t, nil
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeTasks) GetByShortID(_ context.Context, shortID string) (*domain.Task, error) {
	if t, ok := f.byShortID[shortID]; ok {
		return t, nil
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeTasks) GetByGitHubIssue(_ context.Context, itemID string, issueNumber int) (*domain.Task, error) {
	if t, ok := f.byIssue[issueKey(itemID, issueNumber)]; ok {
		return t, nil
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeTasks) UpsertByGitHubIssue(_ context.Context, itemID string, issueNumber int, newTask *domain.Task) (*domain.Task, bool, error) {
	key := issueKey(itemID, issueNumber)
	if t, ok := f.byIssue[key]; ok {
		return t, false, nil
	}
	f.byIssue[key] = newTask
	f.byID[newTask.ID] = newTask
	f.byShortID[newTask.ShortID] = newTask
	f.created = append(f.created, newTask)
	return newTask, true, nil
}
func (f *fakeTasks) ListByItem(context.Context, string) ([]*domain.Task, error) { return nil, nil }
func (f *fakeTasks) ShortIDExists(_ context.Context, shortID string) (bool, error) {
	_, ok := f.byShortID[shortID]
	return ok, nil
}
func (f *fakeTasks) Create(_ context.Context, t *domain.Task) error {
	f.byID[t.ID] = t
	f.byShortID[t.ShortID] = t
	f.created = append(f.created, t)
	return nil
}
func (f *fakeTasks) Update(_ context.Context, t *domain.Task) error {
	f.byID[t.ID] = t
	f.updated = append(f.updated, t)
	return nil
}
func (f *fakeTasks) SetStatusIfNotTerminal(_ context.Context, taskID string, status domain.TaskStatus) (bool, error) {
	t, ok := f.byID[taskID]
	if !ok {
		return false, mongo.ErrNoDocuments
	}
	if t.Status.IsTerminal() {
		return false, nil
	}
	t.Status = status
	return true, nil
}
func (f *fakeTasks) Delete(context.Context, string) error { return nil }

type fakeComments struct {
	appended []*domain.TaskComment
}

func (f *fakeComments) Append(_ context.Context, c *domain.TaskComment) error {
	f.appended = append(f.appended, c)
	return nil
}
func (f *fakeComments) ListByTask(context.Context, string) ([]*domain.TaskComment, error) {
	return nil, nil
}

type fakeItems struct {
	byID      map[string]*domain.Item
	byChannel map[string][]*domain.Item
	all       []*domain.Item
}

func (f *fakeItems) Get(_ context.Context, id string) (*domain.Item, error) {
	if it, ok := f.byID[id]; ok {
		return it, nil
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeItems) GetBySourceRepo(context.Context, string) ([]*domain.Item, error) { return nil, nil }
func (f *fakeItems) GetByChannelID(_ context.Context, channelID string) ([]*domain.Item, error) {
	return f.byChannel[channelID], nil
}
func (f *fakeItems) List(context.Context) ([]*domain.Item, error) { return f.all, nil }
func (f *fakeItems) Create(context.Context, *domain.Item) error  { return nil }
func (f *fakeItems) Update(context.Context, *domain.Item) error  { return nil }
func (f *fakeItems) Delete(context.Context, string) error        { return nil }

type fakeUsers struct {
	byID map[string]*domain.User
}

func (f *fakeUsers) Get(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, mongo.ErrNoDocuments
}
func (f *fakeUsers) GetByObjectID(context.Context, string) (*domain.User, error) { return nil, mongo.ErrNoDocuments }
func (f *fakeUsers) GetByEmail(context.Context, string) (*domain.User, error)    { return nil, mongo.ErrNoDocuments }
func (f *fakeUsers) GetByLogin(context.Context, string) (*domain.User, error)    { return nil, mongo.ErrNoDocuments }
func (f *fakeUsers) Create(context.Context, *domain.User) error                 { return nil }
func (f *fakeUsers) PatchObjectID(context.Context, string, string) error        { return nil }

type fakeCursors struct {
	values map[string]string
}

func newFakeCursors() *fakeCursors { return &fakeCursors{values: map[string]string{}} }

func (f *fakeCursors) Get(_ context.Context, source string) (string, error) {
	return f.values[source], nil
}
func (f *fakeCursors) Advance(_ context.Context, source, value string) error {
	f.values[source] = value
	return nil
}

type fakePoison struct {
	failures map[string]int
	records  map[string]*domain.PoisonedMessage
}

func newFakePoison() *fakePoison {
	return &fakePoison{failures: map[string]int{}, records: map[string]*domain.PoisonedMessage{}}
}

func (f *fakePoison) key(sourceKind, sourceID string) string { return sourceKind + "|" + sourceID }

func (f *fakePoison) RecordFailure(_ context.Context, sourceKind, sourceID, lastError string) (*domain.PoisonedMessage, error) {
	k := f.key(sourceKind, sourceID)
	f.failures[k]++
	record := &domain.PoisonedMessage{
		SourceKind:   sourceKind,
		SourceID:     sourceID,
		FailureCount: f.failures[k],
		LastError:    lastError,
		Poisoned:     f.failures[k] >= 5,
	}
	f.records[k] = record
	return record, nil
}
func (f *fakePoison) Clear(_ context.Context, sourceKind, sourceID string) error {
	k := f.key(sourceKind, sourceID)
	delete(f.failures, k)
	delete(f.records, k)
	return nil
}
func (f *fakePoison) ListPoisoned(_ context.Context, sourceKind string) ([]*domain.PoisonedMessage, error) {
	var out []*domain.PoisonedMessage
	for _, r := range f.records {
		if r.SourceKind == sourceKind && r.Poisoned {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeInvoker struct {
	response string
	err      error
}

func (f *fakeInvoker) Invoke(context.Context, string, string, agentgateway.Params) (*agentgateway.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &agentgateway.Result{Text: f.response}, nil
}

type fakeSuggester struct{}

func (fakeSuggester) SuggestItems(context.Context, string) ([]classify.ItemCandidate, error) {
	return nil, nil
}

type fakeGitHub struct {
	issues     []githubclient.Issue
	nextCursor string
}

func (f *fakeGitHub) ListIssuesSince(context.Context, string, string, string) ([]githubclient.Issue, string, error) {
	return f.issues, f.nextCursor, nil
}
func (f *fakeGitHub) GetIssue(context.Context, string, string, int) (*githubclient.Issue, error) {
	return nil, nil
}
func (f *fakeGitHub) GetPullRequest(context.Context, string, string, int) (*githubclient.Issue, error) {
	return nil, nil
}
func (f *fakeGitHub) CreateIssue(context.Context, string, string, string, string) (*githubclient.Issue, error) {
	return nil, nil
}
func (f *fakeGitHub) AddComment(context.Context, string, string, int, string) error { return nil }
