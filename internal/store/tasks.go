package store

import (
	"context"
	"fmt"
	"time"

	"ideagraph/internal/apperr"
	"ideagraph/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskStore persists Tasks and enforces the short-id uniqueness and
// terminal-status invariants (spec.md §3, §4.2, §8).
type TaskStore interface {
	Get(ctx context.Context, id string) (*domain.Task, error)
	GetByShortID(ctx context.Context, shortID string) (*domain.Task, error)
	GetByGitHubIssue(ctx context.Context, itemID string, issueNumber int) (*domain.Task, error)
	// UpsertByGitHubIssue resolves the GitHub-poller create/update ambiguity
	// (spec.md §9 Open Questions): a Task is uniquely identified by
	// (item, github_issue_number). If one exists it is returned unmodified
	// (the caller applies its own field updates); otherwise newTask is
	// inserted and returned.
	UpsertByGitHubIssue(ctx context.Context, itemID string, issueNumber int, newTask *domain.Task) (task *domain.Task, created bool, err error)
	ListByItem(ctx context.Context, itemID string) ([]*domain.Task, error)
	ShortIDExists(ctx context.Context, shortID string) (bool, error)
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	// SetStatusIfNotTerminal applies a poller-driven status transition,
	// refusing to overwrite done/testing (spec.md §4.2 "Terminal respect").
	SetStatusIfNotTerminal(ctx context.Context, taskID string, status domain.TaskStatus) (applied bool, err error)
	Delete(ctx context.Context, id string) error
}

type mongoTaskStore struct {
	col *mongo.Collection
}

func newMongoTaskStore(ctx context.Context, db *mongo.Database) (*mongoTaskStore, error) {
	s := &mongoTaskStore{col: db.Collection("tasks")}

	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "shortId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "itemId", Value: 1}}},
		{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "githubIssueNumber", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "sourceMessageId", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task indexes: %w", err)
	}
	return s, nil
}

func (s *mongoTaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *mongoTaskStore) GetByShortID(ctx context.Context, shortID string) (*domain.Task, error) {
	var task domain.Task
	if err := s.col.FindOne(ctx, bson.M{"shortId": shortID}).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *mongoTaskStore) GetByGitHubIssue(ctx context.Context, itemID string, issueNumber int) (*domain.Task, error) {
	var task domain.Task
	err := s.col.FindOne(ctx, bson.M{"itemId": itemID, "githubIssueNumber": issueNumber}).Decode(&task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *mongoTaskStore) UpsertByGitHubIssue(ctx context.Context, itemID string, issueNumber int, newTask *domain.Task) (*domain.Task, bool, error) {
	existing, err := s.GetByGitHubIssue(ctx, itemID, issueNumber)
	if err == nil {
		return existing, false, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, false, fmt.Errorf("failed to look up task by github issue: %w", err)
	}

	newTask.ItemID = itemID
	newTask.GitHubIssueNumber = issueNumber
	if err := s.Create(ctx, newTask); err != nil {
		// Another poller tick may have raced us to the same issue.
		if existing, rerr := s.GetByGitHubIssue(ctx, itemID, issueNumber); rerr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return newTask, true, nil
}

func (s *mongoTaskStore) ListByItem(ctx context.Context, itemID string) ([]*domain.Task, error) {
	cursor, err := s.col.Find(ctx, bson.M{"itemId": itemID})
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks by item: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*domain.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *mongoTaskStore) ShortIDExists(ctx context.Context, shortID string) (bool, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"shortId": shortID})
	if err != nil {
		return false, fmt.Errorf("failed to check short-id uniqueness: %w", err)
	}
	return count > 0, nil
}

func (s *mongoTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if task.ItemID == "" {
		return apperr.New(apperr.KindConflict, "a task without an item is invalid")
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = domain.TaskStatusNew
	}

	_, err := s.col.InsertOne(ctx, task)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Wrap(apperr.KindConflict, "short-id collision on task create", err)
		}
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (s *mongoTaskStore) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": task.ID}, task)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

func (s *mongoTaskStore) SetStatusIfNotTerminal(ctx context.Context, taskID string, status domain.TaskStatus) (bool, error) {
	result, err := s.col.UpdateOne(ctx,
		bson.M{
			"_id":    taskID,
			"status": bson.M{"$nin": bson.A{string(domain.TaskStatusDone), string(domain.TaskStatusTesting)}},
		},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition task status: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (s *mongoTaskStore) Delete(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}
