// internal/llm/ollama/ollama.go
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/parley/internal/llm"
)

const defaultEndpoint = "http://localhost:11434"

// Provider implements the LLM interface for Ollama.
type Provider struct {
	endpoint string
	client   *http.Client
}

// New creates a new Ollama provider. Per-request deadlines come from the
// caller's context.
func New(endpoint string) (*Provider, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Provider{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		client:   &http.Client{},
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ollama"
}

// ollamaRequest represents the request to Ollama API.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaResponse represents the response from Ollama API.
type ollamaResponse struct {
	Model           string        `json:"model"`
	CreatedAt       string        `json:"created_at"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

// Complete sends the transcript to the Ollama chat API.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Completion, error) {
	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, ollamaMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	ollamaReq := ollamaRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   false,
		Options:  buildOptions(req.Options),
	}

	if req.Options.JSONMode {
		ollamaReq.Format = "json"
	}

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, llm.Classify(fmt.Errorf("ollama API error: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, llm.Classify(fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, llm.Classify(fmt.Errorf("decoding response: %w", err))
	}

	created, err := time.Parse(time.RFC3339Nano, ollamaResp.CreatedAt)
	if err != nil {
		created = time.Now()
	}

	return &llm.Completion{
		Content: ollamaResp.Message.Content,
		Usage: llm.Usage{
			InputTokens:  ollamaResp.PromptEvalCount,
			OutputTokens: ollamaResp.EvalCount,
		},
		FinishReason: ollamaResp.DoneReason,
		Created:      created,
	}, nil
}

// buildOptions maps Options onto Ollama's model options. Extra keys such as
// num_ctx pass through untouched.
func buildOptions(opts llm.Options) map[string]any {
	out := make(map[string]any, len(opts.Extra)+6)
	for k, v := range opts.Extra {
		out[k] = v
	}
	if opts.MaxTokens > 0 {
		out["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature != nil {
		out["temperature"] = *opts.Temperature
	}
	if opts.TopP != nil {
		out["top_p"] = *opts.TopP
	}
	if opts.Seed != nil {
		out["seed"] = *opts.Seed
	}
	if len(opts.Stop) > 0 {
		out["stop"] = opts.Stop
	}
	if opts.PresencePenalty != nil {
		out["presence_penalty"] = *opts.PresencePenalty
	}
	if opts.FrequencyPenalty != nil {
		out["frequency_penalty"] = *opts.FrequencyPenalty
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
