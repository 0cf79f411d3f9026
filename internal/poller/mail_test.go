package poller_test

import (
	"context"
	"errors"
	"testing"

	"ideagraph/internal/classify"
	"ideagraph/internal/domain"
	"ideagraph/internal/graphclient"
	"ideagraph/internal/poller"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMailPollerCreatesTaskAndSendsConfirmation(t *testing.T) {
	graph := &fakeGraph{
		mailMessages: []graphclient.Message{
			{ID: "m1", Subject: "Login broken", Body: "please help", From: "user@corp.com", ReceivedAt: "2026-01-01T00:00:00Z"},
		},
		mailCursor: "2026-01-01T00:00:00Z",
	}
	tasks := newFakeTasks()
	comments := &fakeComments{}
	users := &fakeUsers{byID: map[string]*domain.User{}}
	cursors := newFakeCursors()
	poisonStore := newFakePoison()

	invoker := &fakeInvoker{response: `{"kind":"create","item_id":"item-1","task_title":"Fix login","task_description_normalized":"please help"}`}
	classifier := classify.New(invoker, tasks, fakeSuggester{}, "item-1", zap.NewNop())

	p := poller.NewMailPoller(graph, tasks, comments, users, classifier, cursors, poisonStore, "helpdesk@corp.com", "Inbox", "helpdesk@corp.com", zap.NewNop())

	require.NoError(t, p.PollOnce(context.Background()))

	require.Len(t, tasks.created, 1)
	assert.Equal(t, "Fix login", tasks.created[0].Title)
	assert.Equal(t, "item-1", tasks.created[0].ItemID)

	require.Len(t, graph.sentMail, 1)
	assert.Equal(t, []string{"user@corp.com"}, graph.sentMail[0].to)

	require.Len(t, comments.appended, 2)
	assert.Equal(t, domain.CommentDirectionInbound, comments.appended[0].Direction)
	assert.Equal(t, domain.CommentDirectionOutbound, comments.appended[1].Direction)

	assert.Equal(t, "2026-01-01T00:00:00Z", cursors.values["mail"])
}

func TestMailPollerAppendsCommentWhenShortIDResolves(t *testing.T) {
	existing := &domain.Task{ID: "task-1", ShortID: "ABC123", ItemID: "item-1", Title: "Existing"}
	tasks := newFakeTasks()
	tasks.byID["task-1"] = existing
	tasks.byShortID["ABC123"] = existing

	graph := &fakeGraph{
		mailMessages: []graphclient.Message{
			{ID: "m2", Subject: "Re: Existing [IG-TASK:#ABC123]", Body: "more info", From: "user@corp.com", ReceivedAt: "t2"},
		},
	}
	comments := &fakeComments{}
	users := &fakeUsers{byID: map[string]*domain.User{}}
	cursors := newFakeCursors()
	poisonStore := newFakePoison()

	classifier := classify.New(&fakeInvoker{}, tasks, fakeSuggester{}, "item-1", zap.NewNop())
	p := poller.NewMailPoller(graph, tasks, comments, users, classifier, cursors, poisonStore, "helpdesk@corp.com", "Inbox", "helpdesk@corp.com", zap.NewNop())

	require.NoError(t, p.PollOnce(context.Background()))

	require.Len(t, comments.appended, 1)
	assert.Equal(t, "task-1", comments.appended[0].TaskID)
	assert.Empty(t, graph.sentMail)
}

func TestMailPollerSkipsOutboundSender(t *testing.T) {
	graph := &fakeGraph{
		mailMessages: []graphclient.Message{
			{ID: "m3", Subject: "auto reply", Body: "noop", From: "helpdesk@corp.com", ReceivedAt: "t3"},
		},
	}
	tasks := newFakeTasks()
	comments := &fakeComments{}
	users := &fakeUsers{byID: map[string]*domain.User{}}
	cursors := newFakeCursors()
	poisonStore := newFakePoison()

	classifier := classify.New(&fakeInvoker{}, tasks, fakeSuggester{}, "item-1", zap.NewNop())
	p := poller.NewMailPoller(graph, tasks, comments, users, classifier, cursors, poisonStore, "helpdesk@corp.com", "Inbox", "helpdesk@corp.com", zap.NewNop())

	require.NoError(t, p.PollOnce(context.Background()))

	assert.Empty(t, tasks.created)
	assert.Empty(t, comments.appended)
	assert.Equal(t, "t3", cursors.values["mail"])
}

func TestMailPollerDoesNotAdvanceCursorPastFailure(t *testing.T) {
	graph := &fakeGraph{
		mailMessages: []graphclient.Message{
			{ID: "m4", Subject: "issue one", Body: "body one", From: "a@corp.com", ReceivedAt: "t4"},
			{ID: "m5", Subject: "issue two", Body: "body two", From: "b@corp.com", ReceivedAt: "t5"},
		},
		sendMailErr: errors.New("smtp relay down"),
	}
	tasks := newFakeTasks()
	comments := &fakeComments{}
	users := &fakeUsers{byID: map[string]*domain.User{}}
	cursors := newFakeCursors()
	poisonStore := newFakePoison()

	invoker := &fakeInvoker{response: `{"kind":"create","item_id":"item-1","task_title":"x","task_description_normalized":"y"}`}
	classifier := classify.New(invoker, tasks, fakeSuggester{}, "item-1", zap.NewNop())
	p := poller.NewMailPoller(graph, tasks, comments, users, classifier, cursors, poisonStore, "helpdesk@corp.com", "Inbox", "helpdesk@corp.com", zap.NewNop())

	require.NoError(t, p.PollOnce(context.Background()))

	// The first message's task was created before the confirmation send
	// failed, but the cursor must not move past it so the next tick retries.
	assert.Len(t, tasks.created, 1)
	assert.Equal(t, "", cursors.values["mail"])
}
