package main

import (
	"context"
	"fmt"

	"ideagraph/internal/graphclient"
)

// mailNotifier adapts graphclient.Client.SendMail to mover.Notifier, the
// one concrete implementation TaskMover's optional requester email
// (spec.md §4.10 step 5) needs.
type mailNotifier struct {
	graph   graphclient.Client
	mailbox string
}

func newMailNotifier(graph graphclient.Client, mailbox string) *mailNotifier {
	return &mailNotifier{graph: graph, mailbox: mailbox}
}

func (n *mailNotifier) Notify(ctx context.Context, requesterID, taskTitle, fromItemTitle, toItemTitle string) error {
	if requesterID == "" {
		return nil
	}
	subject := fmt.Sprintf("Task moved: %s", taskTitle)
	body := fmt.Sprintf("<p>Your task <b>%s</b> was moved from <b>%s</b> to <b>%s</b>.</p>", taskTitle, fromItemTitle, toItemTitle)
	return n.graph.SendMail(ctx, n.mailbox, []string{requesterID}, subject, body)
}
