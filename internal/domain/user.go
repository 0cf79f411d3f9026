package domain

import "time"

// AuthKind distinguishes a locally-created user from one resolved from a
// federated source principal (spec.md §3 User).
type AuthKind string

const (
	AuthKindLocal      AuthKind = "local"
	AuthKindFederated  AuthKind = "federated"
)

// User is a stable principal known to IdeaGraph. Never deleted by the core
// (spec.md §3).
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Login        string    `json:"login" bson:"login"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	AuthKind     AuthKind  `json:"authKind" bson:"authKind"`
	ObjectID     string    `json:"objectId,omitempty" bson:"objectId,omitempty"`
	DisplayName  string    `json:"displayName" bson:"displayName"`
	Role         string    `json:"role" bson:"role"`
	Active       bool      `json:"active" bson:"active"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// SystemUser is the synthetic principal used for system-authored comments
// and for the "unknown" fallback IdentityResolver may hand back.
const SystemUser = "system"
