package store

import (
	"context"
	"fmt"

	"ideagraph/internal/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TagStore persists normalized Tags and their (advisory) usage counts.
type TagStore interface {
	GetOrCreate(ctx context.Context, normalizedName string) (*domain.Tag, error)
	List(ctx context.Context) ([]*domain.Tag, error)
	RecomputeUsageCount(ctx context.Context, tagID string, count int) error
	Delete(ctx context.Context, tagID string) error
}

type mongoTagStore struct {
	col *mongo.Collection
}

func newMongoTagStore(ctx context.Context, db *mongo.Database) (*mongoTagStore, error) {
	s := &mongoTagStore{col: db.Collection("tags")}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tag name index: %w", err)
	}
	return s, nil
}

func (s *mongoTagStore) GetOrCreate(ctx context.Context, normalizedName string) (*domain.Tag, error) {
	var tag domain.Tag
	err := s.col.FindOne(ctx, bson.M{"name": normalizedName}).Decode(&tag)
	if err == nil {
		return &tag, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to look up tag: %w", err)
	}

	tag = domain.Tag{ID: uuid.New().String(), Name: normalizedName}
	if _, err := s.col.InsertOne(ctx, tag); err != nil {
		// Lost a create race against another caller; re-read instead of erroring.
		if mongo.IsDuplicateKeyError(err) {
			if rerr := s.col.FindOne(ctx, bson.M{"name": normalizedName}).Decode(&tag); rerr == nil {
				return &tag, nil
			}
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return &tag, nil
}

func (s *mongoTagStore) List(ctx context.Context) ([]*domain.Tag, error) {
	cursor, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []*domain.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

func (s *mongoTagStore) RecomputeUsageCount(ctx context.Context, tagID string, count int) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": tagID}, bson.M{"$set": bson.M{"usageCount": count}})
	if err != nil {
		return fmt.Errorf("failed to recompute tag usage: %w", err)
	}
	return nil
}

func (s *mongoTagStore) Delete(ctx context.Context, tagID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": tagID})
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	return nil
}
