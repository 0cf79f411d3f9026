package store

import (
	"context"
	"fmt"

	"ideagraph/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MilestoneStore persists Milestones.
type MilestoneStore interface {
	Get(ctx context.Context, id string) (*domain.Milestone, error)
	ListByItem(ctx context.Context, itemID string) ([]*domain.Milestone, error)
	Create(ctx context.Context, m *domain.Milestone) error
	Update(ctx context.Context, m *domain.Milestone) error
	Delete(ctx context.Context, id string) error
}

type mongoMilestoneStore struct {
	col *mongo.Collection
}

func newMongoMilestoneStore(ctx context.Context, db *mongo.Database) (*mongoMilestoneStore, error) {
	s := &mongoMilestoneStore{col: db.Collection("milestones")}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "itemId", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milestone index: %w", err)
	}
	return s, nil
}

func (s *mongoMilestoneStore) Get(ctx context.Context, id string) (*domain.Milestone, error) {
	var m domain.Milestone
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *mongoMilestoneStore) ListByItem(ctx context.Context, itemID string) ([]*domain.Milestone, error) {
	cursor, err := s.col.Find(ctx, bson.M{"itemId": itemID})
	if err != nil {
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer cursor.Close(ctx)

	var milestones []*domain.Milestone
	if err := cursor.All(ctx, &milestones); err != nil {
		return nil, fmt.Errorf("failed to decode milestones: %w", err)
	}
	return milestones, nil
}

func (s *mongoMilestoneStore) Create(ctx context.Context, m *domain.Milestone) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if _, err := s.col.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	return nil
}

func (s *mongoMilestoneStore) Update(ctx context.Context, m *domain.Milestone) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	return nil
}

func (s *mongoMilestoneStore) Delete(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete milestone: %w", err)
	}
	return nil
}

// MilestoneContextStore persists the raw artifacts attached to a Milestone.
type MilestoneContextStore interface {
	Get(ctx context.Context, id string) (*domain.MilestoneContextObject, error)
	ListByMilestone(ctx context.Context, milestoneID string) ([]*domain.MilestoneContextObject, error)
	Create(ctx context.Context, obj *domain.MilestoneContextObject) error
	MarkAnalyzed(ctx context.Context, id string, summary string, proposed []domain.ProposedTask) error
	Delete(ctx context.Context, id string) error
}

type mongoMilestoneContextStore struct {
	col *mongo.Collection
}

func newMongoMilestoneContextStore(ctx context.Context, db *mongo.Database) (*mongoMilestoneContextStore, error) {
	s := &mongoMilestoneContextStore{col: db.Collection("milestone_context_objects")}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "milestoneId", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milestone context index: %w", err)
	}
	return s, nil
}

func (s *mongoMilestoneContextStore) Get(ctx context.Context, id string) (*domain.MilestoneContextObject, error) {
	var obj domain.MilestoneContextObject
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

func (s *mongoMilestoneContextStore) ListByMilestone(ctx context.Context, milestoneID string) ([]*domain.MilestoneContextObject, error) {
	cursor, err := s.col.Find(ctx, bson.M{"milestoneId": milestoneID})
	if err != nil {
		return nil, fmt.Errorf("failed to query milestone context objects: %w", err)
	}
	defer cursor.Close(ctx)

	var objs []*domain.MilestoneContextObject
	if err := cursor.All(ctx, &objs); err != nil {
		return nil, fmt.Errorf("failed to decode milestone context objects: %w", err)
	}
	return objs, nil
}

func (s *mongoMilestoneContextStore) Create(ctx context.Context, obj *domain.MilestoneContextObject) error {
	if obj.ID == "" {
		obj.ID = uuid.New().String()
	}
	if _, err := s.col.InsertOne(ctx, obj); err != nil {
		return fmt.Errorf("failed to insert milestone context object: %w", err)
	}
	return nil
}

func (s *mongoMilestoneContextStore) MarkAnalyzed(ctx context.Context, id string, summary string, proposed []domain.ProposedTask) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"analyzed":      true,
		"summary":       summary,
		"proposedTasks": proposed,
	}})
	if err != nil {
		return fmt.Errorf("failed to mark milestone context object analyzed: %w", err)
	}
	return nil
}

func (s *mongoMilestoneContextStore) Delete(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete milestone context object: %w", err)
	}
	return nil
}
