// internal/llm/openai/openai.go
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/parley/internal/llm"
	"github.com/sashabaranov/go-openai"
)

// Provider implements the LLM interface for OpenAI and OpenAI-compatible
// endpoints.
type Provider struct {
	client *openai.Client
}

// New creates a new OpenAI provider. An empty baseURL uses api.openai.com.
func New(apiKey, baseURL string) (*Provider, error) {
	return NewWithHTTPClient(apiKey, baseURL, nil)
}

// NewWithHTTPClient is New with a caller-supplied HTTP client.
func NewWithHTTPClient(apiKey, baseURL string, httpClient *http.Client) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &Provider{client: openai.NewClientWithConfig(cfg)}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "openai"
}

// Complete sends the transcript to the chat completions endpoint.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	chatReq, err := buildRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, llm.Classify(fmt.Errorf("openai API error: %w", err))
	}

	content := ""
	finishReason := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finishReason = string(resp.Choices[0].FinishReason)
	}

	created := time.Now()
	if resp.Created > 0 {
		created = time.Unix(resp.Created, 0)
	}

	return &llm.Completion{
		Content: content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
		FinishReason: finishReason,
		Created:      created,
	}, nil
}

// ValidateOptions reports query options the chat completions request has no
// field for.
func (p *Provider) ValidateOptions(opts llm.Options) error {
	_, err := buildRequest(llm.Request{Options: opts})
	return err
}

// extraOptions are the query_config keys beyond llm.Options that the chat
// completions request carries.
type extraOptions struct {
	N                   int               `mapstructure:"n"`
	User                string            `mapstructure:"user"`
	LogProbs            bool              `mapstructure:"logprobs"`
	TopLogProbs         int               `mapstructure:"top_logprobs"`
	LogitBias           map[string]int    `mapstructure:"logit_bias"`
	MaxCompletionTokens int               `mapstructure:"max_completion_tokens"`
	ReasoningEffort     string            `mapstructure:"reasoning_effort"`
	ServiceTier         string            `mapstructure:"service_tier"`
	Verbosity           string            `mapstructure:"verbosity"`
	Store               bool              `mapstructure:"store"`
	Metadata            map[string]string `mapstructure:"metadata"`
	ChatTemplateKwargs  map[string]any    `mapstructure:"chat_template_kwargs"`
}

func buildRequest(req llm.Request) (openai.ChatCompletionRequest, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(m.Role),
			Content: m.Content,
		})
	}

	opts := req.Options
	chatReq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: opts.MaxTokens,
		Stop:      opts.Stop,
		Seed:      opts.Seed,
	}
	if opts.Temperature != nil {
		chatReq.Temperature = float32(*opts.Temperature)
	}
	if opts.TopP != nil {
		chatReq.TopP = float32(*opts.TopP)
	}
	if opts.PresencePenalty != nil {
		chatReq.PresencePenalty = float32(*opts.PresencePenalty)
	}
	if opts.FrequencyPenalty != nil {
		chatReq.FrequencyPenalty = float32(*opts.FrequencyPenalty)
	}

	if opts.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var extra extraOptions
	if err := opts.DecodeExtra("openai", &extra); err != nil {
		return openai.ChatCompletionRequest{}, err
	}
	chatReq.N = extra.N
	chatReq.User = extra.User
	chatReq.LogProbs = extra.LogProbs
	chatReq.TopLogProbs = extra.TopLogProbs
	chatReq.LogitBias = extra.LogitBias
	chatReq.MaxCompletionTokens = extra.MaxCompletionTokens
	chatReq.ReasoningEffort = extra.ReasoningEffort
	chatReq.ServiceTier = openai.ServiceTier(extra.ServiceTier)
	chatReq.Verbosity = extra.Verbosity
	chatReq.Store = extra.Store
	chatReq.Metadata = extra.Metadata
	chatReq.ChatTemplateKwargs = extra.ChatTemplateKwargs

	return chatReq, nil
}

func chatRole(r llm.Role) string {
	switch r {
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
