package domain

import "time"

// TaskStatus is a free-labeled, ordered status. done and testing are
// terminal with respect to the GitHub poller (spec.md §4.2).
type TaskStatus string

const (
	TaskStatusNew     TaskStatus = "new"
	TaskStatusReady   TaskStatus = "ready"
	TaskStatusWorking TaskStatus = "working"
	TaskStatusTesting TaskStatus = "testing"
	TaskStatusDone    TaskStatus = "done"
)

// IsTerminal reports whether the status is exempt from poller auto-sync
// (spec.md §4.2 invariant, §8 "Terminal respect").
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone || s == TaskStatusTesting
}

// Task is a work unit inside an Item. A Task without an Item is invalid
// (spec.md §3).
type Task struct {
	ID                string     `json:"id" bson:"_id"`
	Title             string     `json:"title" bson:"title"`
	Description       string     `json:"description" bson:"description"`
	Status            TaskStatus `json:"status" bson:"status"`
	ItemID            string     `json:"itemId" bson:"itemId"`
	RequesterID       string     `json:"requesterId" bson:"requesterId"`
	AssignedID        string     `json:"assignedId,omitempty" bson:"assignedId,omitempty"`
	Tags              []string   `json:"tags" bson:"tags"`
	GitHubIssueNumber int        `json:"githubIssueNumber,omitempty" bson:"githubIssueNumber,omitempty"`
	SourceMessageID   string     `json:"sourceMessageId,omitempty" bson:"sourceMessageId,omitempty"`
	ShortID           string     `json:"shortId" bson:"shortId"`
	FolderID          string     `json:"folderId,omitempty" bson:"folderId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// CommentSource identifies which channel produced a TaskComment.
type CommentSource string

const (
	CommentSourceUser  CommentSource = "user"
	CommentSourceAgent CommentSource = "agent"
	CommentSourceEmail CommentSource = "email"
	CommentSourceTeams CommentSource = "teams"
)

// CommentDirection applies only to email/teams-sourced comments.
type CommentDirection string

const (
	CommentDirectionInbound  CommentDirection = "inbound"
	CommentDirectionOutbound CommentDirection = "outbound"
)

// TaskComment is an append-only entry in a Task's conversation thread.
type TaskComment struct {
	ID        string           `json:"id" bson:"_id"`
	TaskID    string           `json:"taskId" bson:"taskId"`
	AuthorID  string           `json:"authorId" bson:"authorId"`
	Body      string           `json:"body" bson:"body"`
	Source    CommentSource    `json:"source" bson:"source"`
	Direction CommentDirection `json:"direction,omitempty" bson:"direction,omitempty"`

	// Source-specific headers, populated only for email/teams.
	Subject    string `json:"subject,omitempty" bson:"subject,omitempty"`
	MessageID  string `json:"messageId,omitempty" bson:"messageId,omitempty"`
	InReplyTo  string `json:"inReplyTo,omitempty" bson:"inReplyTo,omitempty"`
	From       string `json:"from,omitempty" bson:"from,omitempty"`
	To         string `json:"to,omitempty" bson:"to,omitempty"`
	Cc         string `json:"cc,omitempty" bson:"cc,omitempty"`

	Position  int64     `json:"position" bson:"position"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
