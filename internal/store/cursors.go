package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PollCursor is the per-source watermark a Poller advances after every
// successful tick (spec.md §4.7). Kept as its own sidecar collection rather
// than folded into Settings: cursor writes happen on every poll tick and
// have nothing to do with admin-driven configuration changes, so they
// should not pile onto the SettingsRevision audit trail.
type PollCursor struct {
	Source    string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// CursorStore persists one monotonic watermark per poll source (e.g.
// "mail", "teams:<channelId>", "github").
type CursorStore interface {
	// Get returns the stored cursor value for source, or "" if the source
	// has never polled successfully.
	Get(ctx context.Context, source string) (string, error)
	Advance(ctx context.Context, source, value string) error
}

type mongoCursorStore struct {
	col *mongo.Collection
}

func newMongoCursorStore(ctx context.Context, db *mongo.Database) (*mongoCursorStore, error) {
	s := &mongoCursorStore{col: db.Collection("poll_cursors")}

	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updatedAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poll cursor index: %w", err)
	}
	return s, nil
}

func (s *mongoCursorStore) Get(ctx context.Context, source string) (string, error) {
	var cursor PollCursor
	err := s.col.FindOne(ctx, bson.M{"_id": source}).Decode(&cursor)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load poll cursor: %w", err)
	}
	return cursor.Value, nil
}

func (s *mongoCursorStore) Advance(ctx context.Context, source, value string) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": source},
		bson.M{"$set": bson.M{"value": value, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to advance poll cursor: %w", err)
	}
	return nil
}
