// internal/llm/factory/factory.go
package factory

import (
	"context"
	"fmt"

	"github.com/newthinker/parley/internal/config"
	"github.com/newthinker/parley/internal/credential"
	"github.com/newthinker/parley/internal/llm"
	"github.com/newthinker/parley/internal/llm/claude"
	"github.com/newthinker/parley/internal/llm/ollama"
	"github.com/newthinker/parley/internal/llm/openai"
)

// New creates an LLM provider based on configuration. The secret is only
// requested for providers that need one.
func New(ctx context.Context, cfg *config.Config, creds credential.Provider) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		key, err := secret(ctx, creds)
		if err != nil {
			return nil, err
		}
		return openai.New(key, cfg.APIEndpoint)
	case "claude":
		key, err := secret(ctx, creds)
		if err != nil {
			return nil, err
		}
		return claude.New(key, cfg.APIEndpoint)
	case "ollama":
		return ollama.New(cfg.APIEndpoint)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

func secret(ctx context.Context, creds credential.Provider) (string, error) {
	if creds == nil {
		return "", fmt.Errorf("no credential provider configured")
	}
	key, err := creds.Secret(ctx)
	if err != nil {
		return "", fmt.Errorf("retrieving API key: %w", err)
	}
	return key, nil
}
