package poller

import (
	"context"
	"fmt"
	"strings"

	"ideagraph/internal/domain"
	"ideagraph/internal/githubclient"
	"ideagraph/internal/knowledge"
	"ideagraph/internal/store"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const sourceKindGitHub = "github"

// GitHubPoller syncs Task status from, and opens Tasks for, every Item with
// a source-repo configured (spec.md §4.7 GitHub poller specifics). Unlike
// mail/Teams it never calls the Classifier: the target Item is already
// pinned by the repo-to-Item binding.
type GitHubPoller struct {
	github  githubclient.Client
	items   store.ItemStore
	tasks   store.TaskStore
	sync    *knowledge.Sync
	cursors store.CursorStore
	poison  store.PoisonStore
	logger  *zap.Logger
}

func NewGitHubPoller(github githubclient.Client, items store.ItemStore, tasks store.TaskStore, sync *knowledge.Sync, cursors store.CursorStore, poison store.PoisonStore, logger *zap.Logger) *GitHubPoller {
	return &GitHubPoller{
		github:  github,
		items:   items,
		tasks:   tasks,
		sync:    sync,
		cursors: cursors,
		poison:  poison,
		logger:  logger,
	}
}

func (p *GitHubPoller) Name() string { return sourceKindGitHub }

func (p *GitHubPoller) PollOnce(ctx context.Context) error {
	items, err := p.items.List(ctx)
	if err != nil {
		return fmt.Errorf("github poller: list items: %w", err)
	}

	for _, item := range items {
		if item.SourceRepo == "" {
			continue
		}
		if err := p.pollRepo(ctx, item); err != nil {
			p.logger.Error("github poller: repo tick failed", zap.String("itemId", item.ID), zap.String("repo", item.SourceRepo), zap.Error(err))
		}
	}
	return nil
}

func (p *GitHubPoller) pollRepo(ctx context.Context, item *domain.Item) error {
	owner, repo, ok := splitRepo(item.SourceRepo)
	if !ok {
		return fmt.Errorf("malformed source-repo %q, expected owner/repo", item.SourceRepo)
	}
	cursorSource := sourceKindGitHub + ":" + item.SourceRepo

	cursor, err := p.cursors.Get(ctx, cursorSource)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}

	issues, _, err := p.github.ListIssuesSince(ctx, owner, repo, cursor)
	if err != nil {
		return fmt.Errorf("fetch issues: %w", err)
	}
	if len(issues) > maxEventsPerTick {
		issues = issues[:maxEventsPerTick]
	}

	advanced := cursor
	for _, issue := range issues {
		sourceID := fmt.Sprintf("%s#%d", item.SourceRepo, issue.Number)
		if isPoisoned(ctx, p.poison, sourceKindGitHub, sourceID) {
			advanced = issue.UpdatedAt
			continue
		}

		procErr := p.routeIssue(ctx, item, issue)
		guardBackpressure(ctx, p.poison, sourceKindGitHub, sourceID, procErr, p.logger)
		if procErr != nil {
			break
		}
		advanced = issue.UpdatedAt
	}

	if advanced != cursor {
		if err := p.cursors.Advance(ctx, cursorSource, advanced); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
	}
	return nil
}

func (p *GitHubPoller) routeIssue(ctx context.Context, item *domain.Item, issue githubclient.Issue) error {
	task, err := p.tasks.GetByGitHubIssue(ctx, item.ID, issue.Number)
	switch {
	case err == mongo.ErrNoDocuments:
		task, err = p.createTaskFromIssue(ctx, item, issue)
		if err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("lookup task by github issue: %w", err)
	}

	if issue.State == "closed" && !task.Status.IsTerminal() {
		if _, err := p.tasks.SetStatusIfNotTerminal(ctx, task.ID, domain.TaskStatusTesting); err != nil {
			return fmt.Errorf("transition task to testing: %w", err)
		}
		task.Status = domain.TaskStatusTesting
	}

	p.sync.UpsertGitHubIssue(ctx, task, issue.Title, issue.Body, issue.URL)
	return nil
}

// createTaskFromIssue opens a Task for an issue not yet linked to one
// (spec.md §4.7: "status derived: open→new, closed→testing").
func (p *GitHubPoller) createTaskFromIssue(ctx context.Context, item *domain.Item, issue githubclient.Issue) (*domain.Task, error) {
	status := domain.TaskStatusNew
	if issue.State == "closed" {
		status = domain.TaskStatusTesting
	}

	newTask := &domain.Task{
		ID:                uuid.New().String(),
		Title:             issue.Title,
		Description:       issue.Body,
		Status:            status,
		ItemID:            item.ID,
		GitHubIssueNumber: issue.Number,
	}
	newTask.ShortID = firstAvailableShortID(ctx, p.tasks, newTask.ID)

	task, _, err := p.tasks.UpsertByGitHubIssue(ctx, item.ID, issue.Number, newTask)
	if err != nil {
		return nil, fmt.Errorf("upsert task for issue #%d: %w", issue.Number, err)
	}
	return task, nil
}

func splitRepo(sourceRepo string) (owner, repo string, ok bool) {
	parts := strings.SplitN(sourceRepo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
