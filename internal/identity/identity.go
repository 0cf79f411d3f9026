// Package identity resolves source-side principals (email, UPN, GitHub
// login, object-id) to local Users, creating them lazily (spec.md §4.3).
package identity

import (
	"context"
	"fmt"
	"strings"

	"ideagraph/internal/domain"
	"ideagraph/internal/store"

	"go.mongodb.org/mongo-driver/mongo"
)

// Principal is whatever a source adapter knows about a sender. At least one
// field must be set.
type Principal struct {
	ObjectID    string
	Email       string // or UPN
	Login       string // GitHub login
	DisplayName string
}

// Resolver turns Principals into Users, per spec.md §4.3's lookup order:
// object-id (authoritative) -> normalized email/UPN -> GitHub login ->
// create.
type Resolver struct {
	users store.UserStore
}

func New(users store.UserStore) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the local User for p, creating one if none exists. If an
// existing row lacks the object-id we now have, it is patched in place
// (spec.md §4.3 "patch" rule).
func (r *Resolver) Resolve(ctx context.Context, p Principal) (*domain.User, error) {
	if p.ObjectID != "" {
		u, err := r.users.GetByObjectID(ctx, p.ObjectID)
		if err == nil {
			return u, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("identity: object-id lookup failed: %w", err)
		}
	}

	normalizedEmail := normalize(p.Email)
	if normalizedEmail != "" {
		u, err := r.users.GetByEmail(ctx, normalizedEmail)
		if err == nil {
			return r.patchObjectID(ctx, u, p.ObjectID)
		}
		if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("identity: email lookup failed: %w", err)
		}
	}

	if p.Login != "" {
		u, err := r.users.GetByLogin(ctx, p.Login)
		if err == nil {
			return r.patchObjectID(ctx, u, p.ObjectID)
		}
		if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("identity: login lookup failed: %w", err)
		}
	}

	login := p.Login
	if login == "" {
		login = firstNonEmpty(normalizedEmail, p.ObjectID, p.DisplayName)
	}

	u := &domain.User{
		Login:       login,
		Email:       normalizedEmail,
		DisplayName: p.DisplayName,
		ObjectID:    p.ObjectID,
		AuthKind:    domain.AuthKindFederated,
		Role:        "user",
	}
	if err := r.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("identity: create failed: %w", err)
	}
	return u, nil
}

func (r *Resolver) patchObjectID(ctx context.Context, u *domain.User, objectID string) (*domain.User, error) {
	if objectID == "" || u.ObjectID == objectID {
		return u, nil
	}
	if err := r.users.PatchObjectID(ctx, u.ID, objectID); err != nil {
		return nil, fmt.Errorf("identity: patch object-id failed: %w", err)
	}
	u.ObjectID = objectID
	return u, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
