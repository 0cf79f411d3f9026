// Package classify implements the Classifier (spec.md §4.6): deciding
// whether an inbound message creates a Task, comments on an existing one,
// or is ignored.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ideagraph/internal/agentgateway"
	"ideagraph/internal/domain"
	"ideagraph/internal/threadtoken"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Kind is the classification outcome discriminator (spec.md §4.6).
type Kind string

const (
	KindComment Kind = "comment"
	KindCreate  Kind = "create"
	KindIgnore  Kind = "ignore"
)

// ReasonClassifierError is the fixed reason used when the agent call fails
// or returns malformed output (spec.md §4.6 "Failure").
const ReasonClassifierError = "classifier_error"

// Outcome is what the caller (a poller) acts on.
type Outcome struct {
	Kind            Kind
	TaskID          string
	ItemID          string
	TaskTitle       string
	TaskDescription string
	Reason          string
}

// TaskLookup is the narrow store seam for short-id thread resolution.
type TaskLookup interface {
	GetByShortID(ctx context.Context, shortID string) (*domain.Task, error)
}

// ItemCandidate is one suggestion-only Item match surfaced to the
// classifier agent (spec.md §4.6: "top 5").
type ItemCandidate struct {
	ID    string
	Title string
	Score float64
}

// ItemSuggester is satisfied by RAGPipeline's suggestion-only pre-query
// (spec.md §4.6).
type ItemSuggester interface {
	SuggestItems(ctx context.Context, query string) ([]ItemCandidate, error)
}

// Invoker is the narrow AgentGateway seam this package depends on, satisfied
// by *agentgateway.Gateway.
type Invoker interface {
	Invoke(ctx context.Context, agentName, prompt string, params agentgateway.Params) (*agentgateway.Result, error)
}

// agentOutput is the strictly-validated shape the message-classifier agent
// must return (spec.md §9 Open Question, resolved in DESIGN.md).
type agentOutput struct {
	Kind                      string `json:"kind" validate:"required,oneof=create ignore"`
	ItemID                    string `json:"item_id"`
	TaskTitle                 string `json:"task_title" validate:"required_if=Kind create"`
	TaskDescriptionNormalized string `json:"task_description_normalized" validate:"required_if=Kind create"`
	Reason                    string `json:"reason"`
}

type Classifier struct {
	gateway       Invoker
	tasks         TaskLookup
	suggester     ItemSuggester
	defaultItemID string
	validate      *validator.Validate
	logger        *zap.Logger
}

func New(gateway Invoker, tasks TaskLookup, suggester ItemSuggester, defaultItemID string, logger *zap.Logger) *Classifier {
	return &Classifier{
		gateway:       gateway,
		tasks:         tasks,
		suggester:     suggester,
		defaultItemID: defaultItemID,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Classify decides the fate of one inbound message. subject and body are
// both scanned for a thread token (spec.md §4.1: token may appear in either).
func (c *Classifier) Classify(ctx context.Context, subject, body string, senderEmail string) (*Outcome, error) {
	if shortID := firstShortID(subject, body); shortID != "" {
		task, err := c.tasks.GetByShortID(ctx, shortID)
		if err == nil {
			return &Outcome{Kind: KindComment, TaskID: task.ID}, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("classify: short-id lookup failed: %w", err)
		}
		// Token present but resolves to nothing: fall through to classification.
	}

	var candidates []ItemCandidate
	if c.suggester != nil {
		var err error
		candidates, err = c.suggester.SuggestItems(ctx, body)
		if err != nil {
			c.logger.Warn("classify: item suggestion failed, proceeding without candidates", zap.Error(err))
			candidates = nil
		}
	}

	result, err := c.gateway.Invoke(ctx, "message-classifier", buildPrompt(body, senderEmail, candidates), agentgateway.Params{})
	if err != nil {
		c.logger.Error("classify: agent invocation failed", zap.Error(err))
		return &Outcome{Kind: KindIgnore, Reason: ReasonClassifierError}, nil
	}

	var out agentOutput
	if err := json.Unmarshal([]byte(extractJSON(result.Text)), &out); err != nil {
		c.logger.Error("classify: malformed agent output", zap.Error(err), zap.String("raw", result.Text))
		return &Outcome{Kind: KindIgnore, Reason: ReasonClassifierError}, nil
	}
	if err := c.validate.Struct(out); err != nil {
		c.logger.Error("classify: agent output failed validation", zap.Error(err))
		return &Outcome{Kind: KindIgnore, Reason: ReasonClassifierError}, nil
	}

	if out.Kind == string(KindIgnore) {
		return &Outcome{Kind: KindIgnore, Reason: out.Reason}, nil
	}

	itemID := out.ItemID
	if itemID == "" {
		itemID = c.defaultItemID
	}
	if itemID == "" {
		return &Outcome{Kind: KindIgnore, Reason: "no_suitable_item"}, nil
	}

	return &Outcome{
		Kind:            KindCreate,
		ItemID:          itemID,
		TaskTitle:       out.TaskTitle,
		TaskDescription: out.TaskDescriptionNormalized,
	}, nil
}

func firstShortID(parts ...string) string {
	for _, p := range parts {
		if id := threadtoken.ExtractShortID(p); id != "" {
			return id
		}
	}
	return ""
}

func buildPrompt(body, senderEmail string, candidates []ItemCandidate) string {
	var b strings.Builder
	b.WriteString("sender: ")
	b.WriteString(senderEmail)
	b.WriteString("\nmessage:\n")
	b.WriteString(body)
	b.WriteString("\ncandidate items:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s title=%q score=%.3f\n", c.ID, c.Title, c.Score)
	}
	return b.String()
}

// extractJSON returns the first top-level {...} object in s, tolerating a
// chat model that wraps its answer in prose or a markdown fence.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
