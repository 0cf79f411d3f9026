package domain

import "time"

// Milestone groups Tasks inside an Item around a target date.
type Milestone struct {
	ID                 string    `json:"id" bson:"_id"`
	ItemID             string    `json:"itemId" bson:"itemId"`
	Name               string    `json:"name" bson:"name"`
	DueDate            time.Time `json:"dueDate" bson:"dueDate"`
	Status             string    `json:"status" bson:"status"`
	Description        string    `json:"description" bson:"description"`
	AggregatedSummary  string    `json:"aggregatedSummary,omitempty" bson:"aggregatedSummary,omitempty"`
}

// ContextKind enumerates the source of a MilestoneContextObject.
type ContextKind string

const (
	ContextKindFile       ContextKind = "file"
	ContextKindEmail      ContextKind = "email"
	ContextKindTranscript ContextKind = "transcript"
	ContextKindNote       ContextKind = "note"
)

// ProposedTask is one AI-suggested task extracted from a
// MilestoneContextObject, before a human promotes it to a real Task.
type ProposedTask struct {
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
}

// MilestoneContextObject is a raw artifact (file, email, transcript, note)
// attached to a Milestone along with its AI-generated summary and proposed
// task list.
type MilestoneContextObject struct {
	ID            string         `json:"id" bson:"_id"`
	MilestoneID   string         `json:"milestoneId" bson:"milestoneId"`
	Kind          ContextKind    `json:"kind" bson:"kind"`
	Title         string         `json:"title" bson:"title"`
	RawContent    string         `json:"rawContent" bson:"rawContent"`
	Summary       string         `json:"summary,omitempty" bson:"summary,omitempty"`
	ProposedTasks []ProposedTask `json:"proposedTasks,omitempty" bson:"proposedTasks,omitempty"`
	Analyzed      bool           `json:"analyzed" bson:"analyzed"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
}
