package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ideagraph/internal/cache"
	"ideagraph/internal/classify"
	"ideagraph/internal/domain"
	"ideagraph/internal/graphclient"
	"ideagraph/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sourceKindTeams = "teams"

// channelScopedSuggester narrows RAGPipeline's Item suggestions (spec.md
// §4.7: "Teams: Items bound to the source channel") without RAGPipeline
// itself needing to know about channels.
type channelScopedSuggester struct {
	inner   classify.ItemSuggester
	allowed map[string]bool
}

func (s channelScopedSuggester) SuggestItems(ctx context.Context, query string) ([]classify.ItemCandidate, error) {
	if s.inner == nil {
		return nil, nil
	}
	candidates, err := s.inner.SuggestItems(ctx, query)
	if err != nil {
		return nil, err
	}
	scoped := make([]classify.ItemCandidate, 0, len(candidates))
	for _, c := range candidates {
		if s.allowed[c.ID] {
			scoped = append(scoped, c)
		}
	}
	return scoped, nil
}

type botPrincipal struct {
	upn  string
	name string
}

// TeamsPoller ingests one Teams channel (spec.md §4.7 Teams poller).
type TeamsPoller struct {
	graph     graphclient.Client
	tasks     store.TaskStore
	comments  store.TaskCommentStore
	items     store.ItemStore
	suggester classify.ItemSuggester
	gateway   classify.Invoker
	cursors   store.CursorStore
	poison    store.PoisonStore
	principal *cache.TTL

	teamID, channelID string
	botObjectID       string // the bot/service account's AAD object-id

	logger *zap.Logger

	classifierMu sync.Mutex
	classifier   *classify.Classifier
}

func NewTeamsPoller(graph graphclient.Client, tasks store.TaskStore, comments store.TaskCommentStore, items store.ItemStore, suggester classify.ItemSuggester, gateway classify.Invoker, cursors store.CursorStore, poison store.PoisonStore, teamID, channelID, botObjectID string, logger *zap.Logger) *TeamsPoller {
	return &TeamsPoller{
		graph:       graph,
		tasks:       tasks,
		comments:    comments,
		items:       items,
		suggester:   suggester,
		gateway:     gateway,
		cursors:     cursors,
		poison:      poison,
		principal:   cache.New(),
		teamID:      teamID,
		channelID:   channelID,
		botObjectID: botObjectID,
		logger:      logger,
	}
}

func (p *TeamsPoller) Name() string { return sourceKindTeams + ":" + p.channelID }

func (p *TeamsPoller) cursorSource() string { return sourceKindTeams + ":" + p.channelID }

func (p *TeamsPoller) PollOnce(ctx context.Context) error {
	cursor, err := p.cursors.Get(ctx, p.cursorSource())
	if err != nil {
		return fmt.Errorf("teams poller: load cursor: %w", err)
	}

	principal, err := p.resolveBotPrincipal(ctx)
	if err != nil {
		p.logger.Warn("teams poller: could not resolve bot principal, self-filter limited to object-id", zap.Error(err))
	}

	messages, _, err := p.graph.ListChannelMessagesSince(ctx, p.teamID, p.channelID, cursor)
	if err != nil {
		return fmt.Errorf("teams poller: fetch: %w", err)
	}
	if len(messages) > maxEventsPerTick {
		messages = messages[:maxEventsPerTick]
	}

	advanced := cursor
	for _, msg := range messages {
		if isAutoGenerated(msg.ID) || p.isSelf(msg, principal) {
			advanced = msg.ReceivedAt
			continue
		}
		msg = p.enrich(ctx, msg)

		if isPoisoned(ctx, p.poison, sourceKindTeams, msg.ID) {
			advanced = msg.ReceivedAt
			continue
		}

		procErr := p.route(ctx, msg)
		guardBackpressure(ctx, p.poison, sourceKindTeams, msg.ID, procErr, p.logger)
		if procErr != nil {
			break
		}
		advanced = msg.ReceivedAt
	}

	if advanced != cursor {
		if err := p.cursors.Advance(ctx, p.cursorSource(), advanced); err != nil {
			return fmt.Errorf("teams poller: advance cursor: %w", err)
		}
	}
	return nil
}

// isSelf applies the spec's three-tier self-filter: object-id first
// (authoritative), then UPN, then display name.
func (p *TeamsPoller) isSelf(msg graphclient.Message, principal botPrincipal) bool {
	if msg.SenderObjectID != "" {
		return msg.SenderObjectID == p.botObjectID
	}
	if msg.From != "" && principal.upn != "" {
		return strings.EqualFold(strings.TrimSpace(msg.From), strings.TrimSpace(principal.upn))
	}
	return msg.SenderName != "" && principal.name != "" && strings.EqualFold(msg.SenderName, principal.name)
}

// resolveBotPrincipal resolves and caches the bot's UPN/display name on
// first tick (spec.md §4.7 "resolve it on first tick and cache"), so the
// UPN/name self-filter tiers work even on a message missing SenderObjectID.
func (p *TeamsPoller) resolveBotPrincipal(ctx context.Context) (botPrincipal, error) {
	v, err := p.principal.GetOrLoad(ctx, "bot-principal", func(ctx context.Context) (any, time.Duration, error) {
		displayName, email, login, err := p.graph.ResolveUserByObjectID(ctx, p.botObjectID)
		if err != nil {
			return nil, 0, err
		}
		upn := email
		if upn == "" {
			upn = login
		}
		return botPrincipal{upn: upn, name: displayName}, 24 * time.Hour, nil
	})
	if err != nil {
		return botPrincipal{}, err
	}
	return v.(botPrincipal), nil
}

// enrich fills in an empty UPN via GraphClient (spec.md §4.7 "known Teams
// quirk").
func (p *TeamsPoller) enrich(ctx context.Context, msg graphclient.Message) graphclient.Message {
	if msg.From != "" || msg.SenderObjectID == "" {
		return msg
	}
	displayName, email, login, err := p.graph.ResolveUserByObjectID(ctx, msg.SenderObjectID)
	if err != nil {
		p.logger.Warn("teams poller: failed to enrich sender", zap.String("objectId", msg.SenderObjectID), zap.Error(err))
		return msg
	}
	if email != "" {
		msg.From = email
	} else {
		msg.From = login
	}
	if msg.SenderName == "" {
		msg.SenderName = displayName
	}
	return msg
}

func (p *TeamsPoller) route(ctx context.Context, msg graphclient.Message) error {
	classifier, err := p.scopedClassifier(ctx)
	if err != nil {
		return fmt.Errorf("scope classifier to channel: %w", err)
	}

	outcome, err := classifier.Classify(ctx, msg.ThreadID, msg.Body, msg.From)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	switch outcome.Kind {
	case classify.KindComment:
		return p.handleComment(ctx, outcome.TaskID, msg)
	case classify.KindIgnore:
		p.logger.Debug("teams poller: message ignored", zap.String("messageId", msg.ID), zap.String("reason", outcome.Reason))
		return nil
	case classify.KindCreate:
		return p.handleCreate(ctx, outcome, msg)
	default:
		return fmt.Errorf("teams poller: unknown classification kind %q", outcome.Kind)
	}
}

// scopedClassifier lazily builds a Classifier whose suggestion pool is
// restricted to Items bound to this channel (spec.md §4.7).
func (p *TeamsPoller) scopedClassifier(ctx context.Context) (*classify.Classifier, error) {
	p.classifierMu.Lock()
	defer p.classifierMu.Unlock()
	if p.classifier != nil {
		return p.classifier, nil
	}

	boundItems, err := p.items.GetByChannelID(ctx, p.channelID)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(boundItems))
	var defaultItemID string
	for _, item := range boundItems {
		allowed[item.ID] = true
		if defaultItemID == "" {
			defaultItemID = item.ID
		}
	}

	p.classifier = classify.New(p.gateway, p.tasks, channelScopedSuggester{inner: p.suggester, allowed: allowed}, defaultItemID, p.logger)
	return p.classifier, nil
}

func (p *TeamsPoller) handleComment(ctx context.Context, taskID string, msg graphclient.Message) error {
	task, err := p.tasks.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load commented task: %w", err)
	}

	if err := p.comments.Append(ctx, &domain.TaskComment{
		TaskID:    task.ID,
		AuthorID:  msg.From,
		Body:      msg.Body,
		Source:    domain.CommentSourceTeams,
		Direction: domain.CommentDirectionInbound,
		MessageID: msg.ID,
		From:      msg.From,
	}); err != nil {
		return fmt.Errorf("append inbound comment: %w", err)
	}

	if task.AssignedID == "" {
		return nil
	}
	body := fmt.Sprintf("There's new activity on %s (%s).", task.ShortID, task.Title)
	if err := p.graph.PostChannelMessage(ctx, p.teamID, p.channelID, body); err != nil {
		return fmt.Errorf("notify assignee: %w", err)
	}
	return p.comments.Append(ctx, &domain.TaskComment{
		TaskID:    task.ID,
		AuthorID:  domain.SystemUser,
		Body:      body,
		Source:    domain.CommentSourceTeams,
		Direction: domain.CommentDirectionOutbound,
		MessageID: AutoGeneratedMessageID(task.ID),
	})
}

func (p *TeamsPoller) handleCreate(ctx context.Context, outcome *classify.Outcome, msg graphclient.Message) error {
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
		Source:    domain.CommentSourceTeams,
		Direction: domain.CommentDirectionInbound,
		MessageID: msg.ID,
		From:      msg.From,
	}); err != nil {
		return fmt.Errorf("append originating comment: %w", err)
	}

	ack := fmt.Sprintf("Got it, opened %s: %s [IG-TASK:#%s]", task.ShortID, task.Title, task.ShortID)
	if err := p.graph.PostChannelMessage(ctx, p.teamID, p.channelID, ack); err != nil {
		return fmt.Errorf("post acknowledgement: %w", err)
	}

	return p.comments.Append(ctx, &domain.TaskComment{
		TaskID:    task.ID,
		AuthorID:  domain.SystemUser,
		Body:      ack,
		Source:    domain.CommentSourceTeams,
		Direction: domain.CommentDirectionOutbound,
		MessageID: AutoGeneratedMessageID(task.ID),
	})
}
