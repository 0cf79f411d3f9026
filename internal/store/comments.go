package store

import (
	"context"
	"fmt"
	"time"

	"ideagraph/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskCommentStore is append-only; Append position-orders comments within a
// Task so readers see a linearizable thread (spec.md §5: "insert after
// max(position) under transaction"). MongoDB lacks multi-document ACID
// transactions without a replica set, so the position is derived from a
// findOneAndUpdate-style counter document scoped to the Task, which is
// atomic per document — the same guarantee the spec asks for.
type TaskCommentStore interface {
	Append(ctx context.Context, comment *domain.TaskComment) error
	ListByTask(ctx context.Context, taskID string) ([]*domain.TaskComment, error)
}

type mongoTaskCommentStore struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func newMongoTaskCommentStore(ctx context.Context, db *mongo.Database) (*mongoTaskCommentStore, error) {
	s := &mongoTaskCommentStore{
		col:      db.Collection("task_comments"),
		counters: db.Collection("task_comment_counters"),
	}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "taskId", Value: 1}, {Key: "position", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task comment index: %w", err)
	}
	return s, nil
}

func (s *mongoTaskCommentStore) Append(ctx context.Context, comment *domain.TaskComment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}

	// Atomically reserve the next position for this task.
	result := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": comment.TaskID},
		bson.M{"$inc": bson.M{"next": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var counter struct {
		Next int64 `bson:"next"`
	}
	if err := result.Decode(&counter); err != nil {
		return fmt.Errorf("failed to reserve comment position: %w", err)
	}
	comment.Position = counter.Next - 1

	if _, err := s.col.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to append task comment: %w", err)
	}
	return nil
}

func (s *mongoTaskCommentStore) ListByTask(ctx context.Context, taskID string) ([]*domain.TaskComment, error) {
	cursor, err := s.col.Find(ctx, bson.M{"taskId": taskID}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list task comments: %w", err)
	}
	defer cursor.Close(ctx)

	var comments []*domain.TaskComment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("failed to decode task comments: %w", err)
	}
	return comments, nil
}
