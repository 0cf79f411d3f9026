package store

import (
	"context"
	"fmt"
	"time"

	"ideagraph/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// poisonThreshold is the run of consecutive failures after which a source
// message is flagged poisoned and skipped by the poller, rather than
// retried forever (SPEC_FULL.md §C.3).
const poisonThreshold = 5

// PoisonStore tracks per-message failure counts for the poller backpressure
// sidecar.
type PoisonStore interface {
	// RecordFailure increments the failure count for (sourceKind, sourceID)
	// and returns the updated record, with Poisoned set once the count
	// reaches poisonThreshold.
	RecordFailure(ctx context.Context, sourceKind, sourceID, lastError string) (*domain.PoisonedMessage, error)
	Clear(ctx context.Context, sourceKind, sourceID string) error
	ListPoisoned(ctx context.Context, sourceKind string) ([]*domain.PoisonedMessage, error)
}

type mongoPoisonStore struct {
	col *mongo.Collection
}

func newMongoPoisonStore(ctx context.Context, db *mongo.Database) (*mongoPoisonStore, error) {
	s := &mongoPoisonStore{col: db.Collection("poisoned_messages")}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sourceKind", Value: 1}, {Key: "sourceId", Value: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poisoned message index: %w", err)
	}
	return s, nil
}

func (s *mongoPoisonStore) RecordFailure(ctx context.Context, sourceKind, sourceID, lastError string) (*domain.PoisonedMessage, error) {
	now := time.Now().UTC()
	result := s.col.FindOneAndUpdate(ctx,
		bson.M{"sourceKind": sourceKind, "sourceId": sourceID},
		bson.M{
			"$inc": bson.M{"failureCount": int64(1)},
			"$set": bson.M{"lastError": lastError, "lastSeenAt": now},
			"$setOnInsert": bson.M{"firstSeenAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var record domain.PoisonedMessage
	if err := result.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to record poller failure: %w", err)
	}

	if record.FailureCount >= poisonThreshold && !record.Poisoned {
		if _, err := s.col.UpdateOne(ctx, bson.M{"_id": record.ID}, bson.M{"$set": bson.M{"poisoned": true}}); err != nil {
			return nil, fmt.Errorf("failed to mark message poisoned: %w", err)
		}
		record.Poisoned = true
	}
	return &record, nil
}

func (s *mongoPoisonStore) Clear(ctx context.Context, sourceKind, sourceID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"sourceKind": sourceKind, "sourceId": sourceID})
	if err != nil {
		return fmt.Errorf("failed to clear poisoned message: %w", err)
	}
	return nil
}

func (s *mongoPoisonStore) ListPoisoned(ctx context.Context, sourceKind string) ([]*domain.PoisonedMessage, error) {
	cursor, err := s.col.Find(ctx, bson.M{"sourceKind": sourceKind, "poisoned": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list poisoned messages: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.PoisonedMessage
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode poisoned messages: %w", err)
	}
	return records, nil
}
