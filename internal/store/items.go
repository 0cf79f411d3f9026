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
)

// maxParentChainDepth bounds the cycle walk (design note §9: "validate at
// write time by walking parent chain with a cycle detector, bounded depth
// <= 10").
const maxParentChainDepth = 10

// ItemStore persists the Item hierarchy.
type ItemStore interface {
	Get(ctx context.Context, id string) (*domain.Item, error)
	GetBySourceRepo(ctx context.Context, repo string) ([]*domain.Item, error)
	GetByChannelID(ctx context.Context, channelID string) ([]*domain.Item, error)
	List(ctx context.Context) ([]*domain.Item, error)
	Create(ctx context.Context, item *domain.Item) error
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
}

type mongoItemStore struct {
	col *mongo.Collection
}

func newMongoItemStore(ctx context.Context, db *mongo.Database) (*mongoItemStore, error) {
	s := &mongoItemStore{col: db.Collection("items")}

	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sourceRepo", Value: 1}}},
		{Keys: bson.D{{Key: "channelId", Value: 1}}},
		{Keys: bson.D{{Key: "parentId", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create item indexes: %w", err)
	}
	return s, nil
}

func (s *mongoItemStore) Get(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *mongoItemStore) GetBySourceRepo(ctx context.Context, repo string) ([]*domain.Item, error) {
	cursor, err := s.col.Find(ctx, bson.M{"sourceRepo": repo})
	if err != nil {
		return nil, fmt.Errorf("failed to query items by source repo: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (s *mongoItemStore) GetByChannelID(ctx context.Context, channelID string) ([]*domain.Item, error) {
	cursor, err := s.col.Find(ctx, bson.M{"channelId": channelID})
	if err != nil {
		return nil, fmt.Errorf("failed to query items by channel: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (s *mongoItemStore) List(ctx context.Context) ([]*domain.Item, error) {
	cursor, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []*domain.Item
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}
	return items, nil
}

func (s *mongoItemStore) Create(ctx context.Context, item *domain.Item) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	if item.Status == "" {
		item.Status = domain.ItemStatusNew
	}

	if err := s.checkNoCycle(ctx, item.ID, item.ParentID); err != nil {
		return err
	}

	if _, err := s.col.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (s *mongoItemStore) Update(ctx context.Context, item *domain.Item) error {
	if err := s.checkNoCycle(ctx, item.ID, item.ParentID); err != nil {
		return err
	}

	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

func (s *mongoItemStore) Delete(ctx context.Context, id string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// checkNoCycle walks the would-be parent chain starting at parentID looking
// for selfID, bounded to maxParentChainDepth hops (spec.md §3 invariant "no
// cycles in parent chain").
func (s *mongoItemStore) checkNoCycle(ctx context.Context, selfID, parentID string) error {
	if parentID == "" {
		return nil
	}
	if parentID == selfID {
		return apperr.New(apperr.KindConflict, "item cannot be its own parent")
	}

	current := parentID
	for depth := 0; depth < maxParentChainDepth; depth++ {
		var parent domain.Item
		err := s.col.FindOne(ctx, bson.M{"_id": current}).Decode(&parent)
		if err == mongo.ErrNoDocuments {
			return nil // parent chain terminates above the bound; no cycle found
		}
		if err != nil {
			return fmt.Errorf("failed to walk item parent chain: %w", err)
		}
		if parent.ID == selfID {
			return apperr.New(apperr.KindConflict, "item parent assignment would create a cycle")
		}
		if parent.ParentID == "" {
			return nil
		}
		current = parent.ParentID
	}
	return apperr.New(apperr.KindConflict, "item parent chain exceeds maximum depth")
}
