// internal/llm/claude/claude.go
package claude

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/newthinker/parley/internal/llm"
)

const defaultMaxTokens = 1024

// Provider implements the LLM interface for Claude/Anthropic.
type Provider struct {
	client anthropic.Client
}

// New creates a new Claude provider. An empty baseURL uses the SDK default.
func New(apiKey, baseURL string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// retries are owned by the session
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Provider{client: anthropic.NewClient(opts...)}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "claude"
}

// Complete sends the transcript to the Messages API.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, llm.Classify(fmt.Errorf("claude API error: %w", err))
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &llm.Completion{
		Content: content.String(),
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
		FinishReason: string(resp.StopReason),
		Created:      time.Now(),
	}, nil
}

// ValidateOptions reports query options the Messages API cannot carry.
func (p *Provider) ValidateOptions(opts llm.Options) error {
	_, err := buildParams(llm.Request{Options: opts})
	return err
}

// extraOptions are the query_config keys beyond llm.Options that the
// Messages API accepts.
type extraOptions struct {
	TopK        *int64 `mapstructure:"top_k"`
	UserID      string `mapstructure:"user_id"`
	ServiceTier string `mapstructure:"service_tier"`
}

func buildParams(req llm.Request) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	opts := req.Options
	var unsupported []string
	if opts.Seed != nil {
		unsupported = append(unsupported, "seed")
	}
	if opts.PresencePenalty != nil {
		unsupported = append(unsupported, "presence_penalty")
	}
	if opts.FrequencyPenalty != nil {
		unsupported = append(unsupported, "frequency_penalty")
	}
	if opts.JSONMode {
		unsupported = append(unsupported, "json_mode")
	}
	if len(unsupported) > 0 {
		return anthropic.MessageNewParams{}, llm.UnsupportedOptions("claude", unsupported...)
	}

	var extra extraOptions
	if err := opts.DecodeExtra("claude", &extra); err != nil {
		return anthropic.MessageNewParams{}, err
	}

	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:         anthropic.Model(req.Model),
		MaxTokens:     maxTokens,
		Messages:      messages,
		System:        system,
		StopSequences: opts.Stop,
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = anthropic.Float(*opts.TopP)
	}
	if extra.TopK != nil {
		params.TopK = anthropic.Int(*extra.TopK)
	}
	if extra.UserID != "" {
		params.Metadata = anthropic.MetadataParam{UserID: anthropic.String(extra.UserID)}
	}
	if extra.ServiceTier != "" {
		params.ServiceTier = anthropic.MessageNewParamsServiceTier(extra.ServiceTier)
	}

	return params, nil
}
