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

// ItemFileStore persists ItemFile metadata. The file bytes themselves live
// in the external file store (spec.md §3, §6); this collection is the
// mirror that knowledge indexing and TaskMover operate against.
type ItemFileStore interface {
	Get(ctx context.Context, id string) (*domain.ItemFile, error)
	ListByItem(ctx context.Context, itemID string) ([]*domain.ItemFile, error)
	Create(ctx context.Context, file *domain.ItemFile) error
	Update(ctx context.Context, file *domain.ItemFile) error
	SetIndexed(ctx context.Context, id string, indexed bool) error
	Delete(ctx context.Context, id string) error
}

type mongoItemFileStore struct {
	col *mongo.Collection
}

func newMongoItemFileStore(ctx context.Context, db *mongo.Database) (*mongoItemFileStore, error) {
	s := &mongoItemFileStore{col: db.Collection("item_files")}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "itemId", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create item file index: %w", err)
	}
	return s, nil
}

func (s *mongoItemFileStore) Get(ctx context.Context, id string) (*domain.ItemFile, error) {
	var file domain.ItemFile
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (s *mongoItemFileStore) ListByItem(ctx context.Context, itemID string) ([]*domain.ItemFile, error) {
	cursor, err := s.col.Find(ctx, bson.M{"itemId": itemID})
	if err != nil {
		return nil, fmt.Errorf("failed to query item files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []*domain.ItemFile
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode item files: %w", err)
	}
	return files, nil
}

func (s *mongoItemFileStore) Create(ctx context.Context, file *domain.ItemFile) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}

	if _, err := s.col.InsertOne(ctx, file); err != nil {
		return fmt.Errorf("failed to insert item file: %w", err)
	}
	return nil
}

func (s *mongoItemFileStore) Update(ctx context.Context, file *domain.ItemFile) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": file.ID}, file)
	if err != nil {
		return fmt.Errorf("failed to update item file: %w", err)
	}
	return nil
}

func (s *mongoItemFileStore) SetIndexed(ctx context.Context, id string, indexed bool) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"indexed": indexed}})
	if err != nil {
		return fmt.Errorf("failed to set item file indexed flag: %w", err)
	}
	return nil
}

func (s *mongoItemFileStore) Delete(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete item file: %w", err)
	}
	return nil
}
