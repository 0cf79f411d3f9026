package agentgateway

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds LLM backend configuration, adapted from the teacher's
// AIConfig/LoadAIConfig (ai-service/config.go) to the two backends this
// gateway actually dispatches to (spec.md §6 AgentGateway: "remote LLM
// agent runtime").
type Config struct {
	Provider        string // "openai" or "anthropic"
	ProviderURL     string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// LoadConfig reads backend configuration from the process environment,
// optionally loading envFilePath first (mirrors ai-service/config.go's
// LoadAIConfig).
func LoadConfig(envFilePath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("agentgateway: failed to load env file: %w", err)
		}
	}

	provider := firstNonEmptyEnv("AGENT_PROVIDER", "AI_PROVIDER")
	if provider == "" {
		return nil, fmt.Errorf("agentgateway: AGENT_PROVIDER is required")
	}
	if provider != "openai" && provider != "anthropic" {
		return nil, fmt.Errorf("agentgateway: provider must be 'openai' or 'anthropic', got %q", provider)
	}

	apiKey := firstNonEmptyEnv("AGENT_API_KEY", provider+"_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("agentgateway: API key is required for provider %q", provider)
	}

	model := firstNonEmptyEnv("AGENT_MODEL", "AI_MODEL")
	if model == "" {
		switch provider {
		case "openai":
			model = "gpt-4-turbo-preview"
		case "anthropic":
			model = "claude-3-sonnet-20240229"
		}
	}

	temperature := 0.2
	if v := os.Getenv("AGENT_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 && parsed <= 2.0 {
			temperature = parsed
		}
	}

	maxOutputTokens := 0
	if v := os.Getenv("AGENT_MAX_OUTPUT_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxOutputTokens = parsed
		}
	}

	return &Config{
		Provider:        provider,
		ProviderURL:     os.Getenv("AGENT_PROVIDER_URL"),
		APIKey:          apiKey,
		Model:           model,
		Temperature:     temperature,
		MaxOutputTokens: maxOutputTokens,
	}, nil
}

func firstNonEmptyEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
