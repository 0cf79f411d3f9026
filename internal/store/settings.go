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

// singletonSettingsID is the fixed document id for the one Settings row
// (spec.md §3: "process-wide singleton configuration").
const singletonSettingsID = "settings"

// SettingsStore reads and writes the singleton Settings row. Every write is
// paired with a SettingsRevision audit entry (SPEC_FULL.md §C.5) so that who
// changed what, and when, is always reconstructable.
type SettingsStore interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, settings *domain.Settings, changedBy string, diffKeys []string) error
	ListRevisions(ctx context.Context, limit int64) ([]*domain.SettingsRevision, error)
}

type mongoSettingsStore struct {
	col       *mongo.Collection
	revisions *mongo.Collection
}

func newMongoSettingsStore(ctx context.Context, db *mongo.Database) (*mongoSettingsStore, error) {
	s := &mongoSettingsStore{
		col:       db.Collection("settings"),
		revisions: db.Collection("settings_revisions"),
	}

	_, err := s.revisions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "changedAt", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create settings revision index: %w", err)
	}
	return s, nil
}

// Get returns the singleton row, seeding it with zero-value defaults (every
// integration disabled) on first use.
func (s *mongoSettingsStore) Get(ctx context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	err := s.col.FindOne(ctx, bson.M{"_id": singletonSettingsID}).Decode(&settings)
	if err == nil {
		return &settings, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	settings = domain.Settings{ID: singletonSettingsID, UpdatedAt: time.Now().UTC()}
	if _, err := s.col.InsertOne(ctx, settings); err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}
	return &settings, nil
}

func (s *mongoSettingsStore) Update(ctx context.Context, settings *domain.Settings, changedBy string, diffKeys []string) error {
	settings.ID = singletonSettingsID
	settings.UpdatedAt = time.Now().UTC()

	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": singletonSettingsID}, settings, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	revision := &domain.SettingsRevision{
		ID:        uuid.New().String(),
		ChangedAt: settings.UpdatedAt,
		ChangedBy: changedBy,
		DiffKeys:  diffKeys,
	}
	if _, err := s.revisions.InsertOne(ctx, revision); err != nil {
		return fmt.Errorf("failed to record settings revision: %w", err)
	}
	return nil
}

func (s *mongoSettingsStore) ListRevisions(ctx context.Context, limit int64) ([]*domain.SettingsRevision, error) {
	opts := options.Find().SetSort(bson.D{{Key: "changedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.revisions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings revisions: %w", err)
	}
	defer cursor.Close(ctx)

	var revisions []*domain.SettingsRevision
	if err := cursor.All(ctx, &revisions); err != nil {
		return nil, fmt.Errorf("failed to decode settings revisions: %w", err)
	}
	return revisions, nil
}
