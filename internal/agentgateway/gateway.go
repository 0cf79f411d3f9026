// Package agentgateway is the concrete client for the external AgentGateway
// contract (spec.md §2, §6): synchronous invoke(agent_name, prompt, params)
// against a remote LLM. Adapted from the teacher's streaming
// ChatProvider/NewChatProvider factory (ai-service/provider.go) to a
// single-shot request/response call, since nothing in this core needs
// token-by-token streaming.
package agentgateway

import (
	"context"
	"fmt"

	"ideagraph/internal/apperr"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"
)

// KnownAgents is the stable set of agent names this core calls
// (spec.md §6 "Agent gateway (required agents)").
var KnownAgents = []string{
	"message-classifier",
	"question-optimization",
	"question-answering",
	"support-advisor-internal",
	"support-advisor-external",
	"text-summary",
	"text-analysis-task-derivation",
	"markdown-to-html-converter",
	"summary-enhancer",
	"teams-support-analysis",
}

// Result is one agent invocation's response (spec.md §2
// "invoke(agent_name, prompt, params) -> {result, tokens, model}").
type Result struct {
	Text   string
	Tokens int
	Model  string
}

// Params are per-call overrides; zero values fall back to the Gateway's
// configured defaults.
type Params struct {
	Temperature     float64
	MaxOutputTokens int
}

// llmClient is the narrow surface this gateway needs from either backend.
type llmClient interface {
	Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error)
}

type Gateway struct {
	llm    llmClient
	model  string
	config *Config
}

func New(config *Config) (*Gateway, error) {
	switch config.Provider {
	case "openai":
		opts := []openai.Option{openai.WithModel(config.Model), openai.WithToken(config.APIKey)}
		if config.ProviderURL != "" {
			opts = append(opts, openai.WithBaseURL(config.ProviderURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("agentgateway: failed to create openai client: %w", err)
		}
		return &Gateway{llm: llm, model: config.Model, config: config}, nil
	case "anthropic":
		llm, err := anthropic.New(anthropic.WithModel(config.Model), anthropic.WithToken(config.APIKey))
		if err != nil {
			return nil, fmt.Errorf("agentgateway: failed to create anthropic client: %w", err)
		}
		return &Gateway{llm: llm, model: config.Model, config: config}, nil
	default:
		return nil, fmt.Errorf("agentgateway: unsupported provider %q", config.Provider)
	}
}

// Invoke calls agentName with prompt, returning its raw text result. Callers
// that expect structured output validate/parse it themselves (spec.md §4.6
// "malformed result -> treat as ignore").
func (g *Gateway) Invoke(ctx context.Context, agentName, prompt string, params Params) (*Result, error) {
	temperature := params.Temperature
	if temperature == 0 {
		temperature = g.config.Temperature
	}
	maxTokens := params.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = g.config.MaxOutputTokens
	}

	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	taggedPrompt := fmt.Sprintf("[agent:%s]\n%s", agentName, prompt)
	text, err := g.llm.Call(ctx, taggedPrompt, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindCancelled, "agent invocation cancelled", err)
		}
		return nil, apperr.Wrap(apperr.KindTransient, fmt.Sprintf("agent %q invocation failed", agentName), err)
	}

	return &Result{Text: text, Tokens: 0, Model: g.model}, nil
}

// ListAgents returns the stable set of agent names this gateway can invoke.
func (g *Gateway) ListAgents(_ context.Context) ([]string, error) {
	return KnownAgents, nil
}
