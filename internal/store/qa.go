package store

import (
	"context"
	"fmt"
	"time"

	"ideagraph/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// QuestionAnswerStore persists RAG answers (spec.md §4.8) so they can be
// replayed or promoted into the knowledge index as QA-type objects.
type QuestionAnswerStore interface {
	Get(ctx context.Context, id string) (*domain.QuestionAnswer, error)
	ListByItem(ctx context.Context, itemID string) ([]*domain.QuestionAnswer, error)
	Create(ctx context.Context, qa *domain.QuestionAnswer) error
	MarkSavedAsKnowledge(ctx context.Context, id string) error
}

type mongoQuestionAnswerStore struct {
	col *mongo.Collection
}

func newMongoQuestionAnswerStore(ctx context.Context, db *mongo.Database) (*mongoQuestionAnswerStore, error) {
	s := &mongoQuestionAnswerStore{col: db.Collection("question_answers")}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create question answer index: %w", err)
	}
	return s, nil
}

func (s *mongoQuestionAnswerStore) Get(ctx context.Context, id string) (*domain.QuestionAnswer, error) {
	var qa domain.QuestionAnswer
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&qa); err != nil {
		return nil, err
	}
	return &qa, nil
}

func (s *mongoQuestionAnswerStore) ListByItem(ctx context.Context, itemID string) ([]*domain.QuestionAnswer, error) {
	cursor, err := s.col.Find(ctx, bson.M{"itemId": itemID})
	if err != nil {
		return nil, fmt.Errorf("failed to query question answers: %w", err)
	}
	defer cursor.Close(ctx)

	var qas []*domain.QuestionAnswer
	if err := cursor.All(ctx, &qas); err != nil {
		return nil, fmt.Errorf("failed to decode question answers: %w", err)
	}
	return qas, nil
}

func (s *mongoQuestionAnswerStore) Create(ctx context.Context, qa *domain.QuestionAnswer) error {
	if qa.ID == "" {
		qa.ID = uuid.New().String()
	}
	if qa.CreatedAt.IsZero() {
		qa.CreatedAt = time.Now().UTC()
	}

	if _, err := s.col.InsertOne(ctx, qa); err != nil {
		return fmt.Errorf("failed to insert question answer: %w", err)
	}
	return nil
}

func (s *mongoQuestionAnswerStore) MarkSavedAsKnowledge(ctx context.Context, id string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"savedAsKnowledge": true}})
	if err != nil {
		return fmt.Errorf("failed to mark question answer saved: %w", err)
	}
	return nil
}
