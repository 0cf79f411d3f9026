// Package store is the DomainStore (spec.md §2, §4.2): durable storage of
// every domain entity and the invariants attached to it. It is implemented
// against MongoDB, following the constructor-creates-its-own-indexes idiom
// of the teacher's coordinator/mcp-server/storage/tasks.go
// (NewMongoTaskStorage); any transactional relational store would satisfy
// the same interfaces (spec.md §2).
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Store bundles every repository the core depends on. Handlers and
// pipelines take the narrow interface they need (Items, Tasks, ...), not
// *Store, so they remain unit-testable against fakes.
type Store struct {
	Users       UserStore
	Tags        TagStore
	Items       ItemStore
	Tasks       TaskStore
	Comments    TaskCommentStore
	Files       ItemFileStore
	Milestones  MilestoneStore
	Contexts    MilestoneContextStore
	QA          QuestionAnswerStore
	Settings    SettingsStore
	Poison      PoisonStore
	Cursors     CursorStore
}

// New wires every repository against db, creating indexes as it goes.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	users, err := newMongoUserStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("users store: %w", err)
	}
	tags, err := newMongoTagStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("tags store: %w", err)
	}
	items, err := newMongoItemStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("items store: %w", err)
	}
	tasks, err := newMongoTaskStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("tasks store: %w", err)
	}
	comments, err := newMongoTaskCommentStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("comments store: %w", err)
	}
	files, err := newMongoItemFileStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("files store: %w", err)
	}
	milestones, err := newMongoMilestoneStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("milestones store: %w", err)
	}
	contexts, err := newMongoMilestoneContextStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("milestone contexts store: %w", err)
	}
	qa, err := newMongoQuestionAnswerStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("qa store: %w", err)
	}
	settings, err := newMongoSettingsStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("settings store: %w", err)
	}
	poison, err := newMongoPoisonStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("poison store: %w", err)
	}
	cursors, err := newMongoCursorStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("cursors store: %w", err)
	}

	return &Store{
		Users:      users,
		Tags:       tags,
		Items:      items,
		Tasks:      tasks,
		Comments:   comments,
		Files:      files,
		Milestones: milestones,
		Contexts:   contexts,
		QA:         qa,
		Settings:   settings,
		Poison:     poison,
		Cursors:    cursors,
	}, nil
}
