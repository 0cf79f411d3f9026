// Package knowledge implements KnowledgeSync (spec.md §4.4): it keeps the
// single `KnowledgeObject` vector-index collection in sync with every
// searchable domain entity. Index writes are best-effort — a VectorIndex
// failure is logged and swallowed so the primary DomainStore write always
// wins (spec.md §4.4 "Failure policy").
package knowledge

import (
	"context"
	"fmt"
	"time"

	"ideagraph/internal/domain"
	"ideagraph/internal/vectorindex"

	"go.uber.org/zap"
)

const (
	TypeItem       = "Item"
	TypeTask       = "Task"
	TypeGitHubIssue = "GitHubIssue"
	TypeFile       = "File"
	TypeContext    = "Context"
	TypeQA         = "QA"
)

// maxTrailingChunkScan bounds how far past the new chunk count Sync looks
// for stale trailing chunks left over from a shrinking re-chunk
// (spec.md §9 "file-chunk identifiers").
const maxTrailingChunkScan = 64

type Sync struct {
	index  vectorindex.Index
	logger *zap.Logger
}

func New(index vectorindex.Index, logger *zap.Logger) *Sync {
	return &Sync{index: index, logger: logger}
}

func (s *Sync) upsert(ctx context.Context, ko vectorindex.KnowledgeObject) {
	if ko.CreatedAt == "" {
		ko.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if err := s.index.Upsert(ctx, ko); err != nil {
		s.logger.Error("knowledge sync upsert failed",
			zap.String("id", ko.ID), zap.String("type", ko.Type), zap.Error(err))
	}
}

// UpsertItem indexes an Item using its effective (inherited) context so the
// indexed body reflects what the Item actually means in search, while the
// stored entity keeps its own literal description (spec.md §3 EffectiveContext).
func (s *Sync) UpsertItem(ctx context.Context, item *domain.Item, effectiveDescription string, effectiveTags []string) {
	s.upsert(ctx, vectorindex.KnowledgeObject{
		ID:          item.ID,
		Type:        TypeItem,
		Title:       item.Title,
		Description: effectiveDescription,
		ItemID:      item.ID,
		Status:      string(item.Status),
		Tags:        effectiveTags,
	})
}

func (s *Sync) UpsertTask(ctx context.Context, task *domain.Task) {
	s.upsert(ctx, vectorindex.KnowledgeObject{
		ID:          task.ID,
		Type:        TypeTask,
		Title:       task.Title,
		Description: task.Description,
		ItemID:      task.ItemID,
		TaskID:      task.ID,
		Status:      string(task.Status),
		Tags:        task.Tags,
	})
}

// UpsertGitHubIssue maintains the single GitHubIssue-typed KnowledgeObject
// for a Task's linked issue (spec.md §3: "No separate GitHubIssues
// collection exists").
func (s *Sync) UpsertGitHubIssue(ctx context.Context, task *domain.Task, issueTitle, issueBody, issueURL string) {
	s.upsert(ctx, vectorindex.KnowledgeObject{
		ID:          task.ID,
		Type:        TypeGitHubIssue,
		Title:       issueTitle,
		Description: issueBody,
		ItemID:      task.ItemID,
		TaskID:      task.ID,
		Status:      string(task.Status),
		URL:         issueURL,
	})
}

func (s *Sync) UpsertContext(ctx context.Context, obj *domain.MilestoneContextObject, itemID string) {
	s.upsert(ctx, vectorindex.KnowledgeObject{
		ID:          obj.ID,
		Type:        TypeContext,
		Title:       obj.Title,
		Description: firstNonEmpty(obj.Summary, obj.RawContent),
		ItemID:      itemID,
	})
}

func (s *Sync) UpsertQA(ctx context.Context, qa *domain.QuestionAnswer) {
	s.upsert(ctx, vectorindex.KnowledgeObject{
		ID:          qa.ID,
		Type:        TypeQA,
		Title:       qa.Question,
		Description: qa.Answer,
		ItemID:      qa.ItemID,
	})
}

// SyncFileChunks upserts one KnowledgeObject per chunk with deterministic
// ids `<fileID>_<n>` and removes stale trailing chunks left from a previous,
// longer chunking of the same file (spec.md §4.5, §9).
func (s *Sync) SyncFileChunks(ctx context.Context, fileID, itemID, title string, chunks []string) {
	for i, chunk := range chunks {
		s.upsert(ctx, vectorindex.KnowledgeObject{
			ID:          chunkID(fileID, i),
			Type:        TypeFile,
			Title:       fmt.Sprintf("%s (Part %d/%d)", title, i+1, len(chunks)),
			Description: chunk,
			ItemID:      itemID,
		})
	}

	for i := len(chunks); i < len(chunks)+maxTrailingChunkScan; i++ {
		id := chunkID(fileID, i)
		exists, err := s.index.Exists(ctx, id)
		if err != nil {
			s.logger.Error("knowledge sync trailing-chunk check failed", zap.String("id", id), zap.Error(err))
			return
		}
		if !exists {
			return
		}
		if err := s.index.Delete(ctx, id); err != nil {
			s.logger.Error("knowledge sync trailing-chunk delete failed", zap.String("id", id), zap.Error(err))
		}
	}
}

// Delete removes a single entity's KnowledgeObject.
func (s *Sync) Delete(ctx context.Context, id string) {
	if err := s.index.Delete(ctx, id); err != nil {
		s.logger.Error("knowledge sync delete failed", zap.String("id", id), zap.Error(err))
	}
}

// DeleteFile removes every chunk KnowledgeObject belonging to fileID
// (spec.md §3 "Deleting an entity requires deleting its KnowledgeObject
// records (and chunks)").
func (s *Sync) DeleteFile(ctx context.Context, fileID string) {
	if err := s.index.DeleteByPrefix(ctx, fileID+"_"); err != nil {
		s.logger.Error("knowledge sync file delete failed", zap.String("fileId", fileID), zap.Error(err))
	}
}

// Search is a thin pass-through to the VectorIndex hybrid search
// (spec.md §4.4).
func (s *Sync) Search(ctx context.Context, params vectorindex.SearchParams) ([]vectorindex.Hit, error) {
	hits, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("knowledge sync: search failed: %w", err)
	}
	return hits, nil
}

func chunkID(fileID string, index int) string {
	return fmt.Sprintf("%s_%d", fileID, index)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
