package poller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ideagraph/internal/classify"
	"ideagraph/internal/domain"
	"ideagraph/internal/graphclient"
	"ideagraph/internal/store"
	"ideagraph/internal/threadtoken"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sourceKindMail = "mail"

// MailPoller ingests a mailbox folder (spec.md §4.7 mail poller).
type MailPoller struct {
	graph      graphclient.Client
	tasks      store.TaskStore
	comments   store.TaskCommentStore
	users      store.UserStore
	classifier *classify.Classifier
	cursors    store.CursorStore
	poison     store.PoisonStore

	mailbox        string
	folder         string
	outboundSender string

	logger *zap.Logger
}

func NewMailPoller(graph graphclient.Client, tasks store.TaskStore, comments store.TaskCommentStore, users store.UserStore, classifier *classify.Classifier, cursors store.CursorStore, poison store.PoisonStore, mailbox, folder, outboundSender string, logger *zap.Logger) *MailPoller {
	return &MailPoller{
		graph:          graph,
		tasks:          tasks,
		comments:       comments,
		users:          users,
		classifier:     classifier,
		cursors:        cursors,
		poison:         poison,
		mailbox:        mailbox,
		folder:         folder,
		outboundSender: outboundSender,
		logger:         logger,
	}
}

func (p *MailPoller) Name() string { return sourceKindMail }

// PollOnce fetches unseen messages, routes each, and advances the cursor up
// to the last message that was fully processed (spec.md §4.7 "Advance
// cursor only after all side-effects succeed").
func (p *MailPoller) PollOnce(ctx context.Context) error {
	cursor, err := p.cursors.Get(ctx, sourceKindMail)
	if err != nil {
		return fmt.Errorf("mail poller: load cursor: %w", err)
	}

	messages, _, err := p.graph.ListMailSince(ctx, p.mailbox, p.folder, cursor)
	if err != nil {
		return fmt.Errorf("mail poller: fetch: %w", err)
	}
	if len(messages) > maxEventsPerTick {
		messages = messages[:maxEventsPerTick]
	}

	advanced := cursor
	for _, msg := range messages {
		if isAutoGenerated(msg.ID) || strings.EqualFold(msg.From, p.outboundSender) {
			advanced = msg.ReceivedAt
			continue
		}
		if isPoisoned(ctx, p.poison, sourceKindMail, msg.ID) {
			advanced = msg.ReceivedAt
			continue
		}

		procErr := p.route(ctx, msg)
		guardBackpressure(ctx, p.poison, sourceKindMail, msg.ID, procErr, p.logger)
		if procErr != nil {
			break
		}
		advanced = msg.ReceivedAt
	}

	if advanced != cursor {
		if err := p.cursors.Advance(ctx, sourceKindMail, advanced); err != nil {
			return fmt.Errorf("mail poller: advance cursor: %w", err)
		}
	}
	return nil
}

func (p *MailPoller) route(ctx context.Context, msg graphclient.Message) error {
	outcome, err := p.classifier.Classify(ctx, msg.Subject, msg.Body, msg.From)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	switch outcome.Kind {
	case classify.KindComment:
		return p.handleComment(ctx, outcome.TaskID, msg)
	case classify.KindIgnore:
		p.logger.Debug("mail poller: message ignored", zap.String("messageId", msg.ID), zap.String("reason", outcome.Reason))
		return nil
	case classify.KindCreate:
		return p.handleCreate(ctx, outcome, msg)
	default:
		return fmt.Errorf("mail poller: unknown classification kind %q", outcome.Kind)
	}
}

func (p *MailPoller) handleComment(ctx context.Context, taskID string, msg graphclient.Message) error {
	task, err := p.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load commented task: %w", err)
	}

	if err := p.comments.Append(ctx, &domain.TaskComment{
		TaskID:    task.ID,
		AuthorID:  msg.From,
		Body:      msg.Body,
		Source:    domain.CommentSourceEmail,
		Direction: domain.CommentDirectionInbound,
		Subject:   msg.Subject,
		MessageID: msg.ID,
		From:      msg.From,
	}); err != nil {
		return fmt.Errorf("append inbound comment: %w", err)
	}

	return p.notifyAssignee(ctx, task)
}

func (p *MailPoller) handleCreate(ctx context.Context, outcome *classify.Outcome, msg graphclient.Message) error {
	task := &domain.Task{
		ID:              uuid.New().String(),
		Title:           outcome.TaskTitle,
		Description:     outcome.TaskDescription,
		Status:          domain.TaskStatusNew,
		ItemID:          outcome.ItemID,
		RequesterID:     msg.From,
		SourceMessageID: msg.ID,
	}
	task.ShortID = firstAvailableShortID(ctx, p.tasks, task.ID)
	if err := p.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	if err := p.comments.Append(ctx, &domain.TaskComment{
		TaskID:    task.ID,
		AuthorID:  msg.From,
		Body:      msg.Body,
		Source:    domain.CommentSourceEmail,
		Direction: domain.CommentDirectionInbound,
		Subject:   msg.Subject,
		MessageID: msg.ID,
		From:      msg.From,
	}); err != nil {
		return fmt.Errorf("append originating comment: %w", err)
	}

	confirmSubject := threadtoken.FormatSubject("Re: "+msg.Subject, task.ShortID)
	confirmBody := fmt.Sprintf("Thanks, we've opened %s to track this.", task.ShortID)
	if err := p.graph.SendMail(ctx, p.mailbox, []string{msg.From}, confirmSubject, confirmBody); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}

	return p.comments.Append(ctx, &domain.TaskComment{
		TaskID:    task.ID,
		AuthorID:  domain.SystemUser,
		Body:      confirmBody,
		Source:    domain.CommentSourceEmail,
		Direction: domain.CommentDirectionOutbound,
		Subject:   confirmSubject,
		MessageID: AutoGeneratedMessageID(task.ID),
		To:        msg.From,
	})
}

func (p *MailPoller) notifyAssignee(ctx context.Context, task *domain.Task) error {
	if task.AssignedID == "" {
		return nil
	}
	assignee, err := p.users.Get(ctx, task.AssignedID)
	if err != nil || assignee.Email == "" {
		p.logger.Warn("mail poller: could not resolve assignee email, skipping notification", zap.String("taskId", task.ID), zap.Error(err))
		return nil
	}

	subject := threadtoken.FormatSubject("New activity on "+task.Title, task.ShortID)
	body := fmt.Sprintf("There's new activity on %s (%s).", task.ShortID, task.Title)
	if err := p.graph.SendMail(ctx, p.mailbox, []string{assignee.Email}, subject, body); err != nil {
		return fmt.Errorf("notify assignee: %w", err)
	}
	return p.comments.Append(ctx, &domain.TaskComment{
		TaskID:    task.ID,
		AuthorID:  domain.SystemUser,
		Body:      body,
		Source:    domain.CommentSourceEmail,
		Direction: domain.CommentDirectionOutbound,
		Subject:   subject,
		MessageID: AutoGeneratedMessageID(task.ID + "-" + time.Now().UTC().Format("150405")),
		To:        assignee.Email,
	})
}

// firstAvailableShortID extends the token length on a uniqueness collision
// (spec.md §4.1 tie-break: try 6, then 7, then 8).
func firstAvailableShortID(ctx context.Context, tasks store.TaskStore, taskID string) string {
	for _, length := range []int{6, 7, 8} {
		id := threadtoken.ShortIDForLen(taskID, length)
		exists, err := tasks.ShortIDExists(ctx, id)
		if err == nil && !exists {
			return id
		}
	}
	return threadtoken.ShortIDForLen(taskID, 8)
}
