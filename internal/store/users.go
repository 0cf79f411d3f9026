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

// UserStore is the persistence seam IdentityResolver depends on.
type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByObjectID(ctx context.Context, objectID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	PatchObjectID(ctx context.Context, userID, objectID string) error
}

type mongoUserStore struct {
	col *mongo.Collection
}

func newMongoUserStore(ctx context.Context, db *mongo.Database) (*mongoUserStore, error) {
	s := &mongoUserStore{col: db.Collection("users")}

	if _, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "objectId", Value: 1}}, Options: options.Index().SetSparse(true).SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "login", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}

	return s, nil
}

func (s *mongoUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *mongoUserStore) GetByObjectID(ctx context.Context, objectID string) (*domain.User, error) {
	if objectID == "" {
		return nil, mongo.ErrNoDocuments
	}
	var u domain.User
	if err := s.col.FindOne(ctx, bson.M{"objectId": objectID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *mongoUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, mongo.ErrNoDocuments
	}
	var u domain.User
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *mongoUserStore) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	var u domain.User
	if err := s.col.FindOne(ctx, bson.M{"login": login}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *mongoUserStore) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Active = true
	if u.Role == "" {
		u.Role = "user"
	}

	_, err := s.col.InsertOne(ctx, u)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *mongoUserStore) PatchObjectID(ctx context.Context, userID, objectID string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"objectId": objectID}})
	if err != nil {
		return fmt.Errorf("failed to patch user object id: %w", err)
	}
	return nil
}
