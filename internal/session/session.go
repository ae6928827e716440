// Package session keeps a conversation transcript and sends it to a model.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/parley/internal/config"
	"github.com/newthinker/parley/internal/core"
	"github.com/newthinker/parley/internal/llm"
	"github.com/newthinker/parley/internal/metrics"
	"github.com/newthinker/parley/internal/retry"
	"go.uber.org/zap"
)

// Dry-run results carry these fixed values.
const (
	DryRunCompletionTokens = 42
	DryRunLatencyMS        = 1234
)

// Result is the bookkeeping record of one query.
type Result struct {
	Response         string    `json:"model_response"`
	CompletionTokens int       `json:"completion_tokens"`
	Timestamp        time.Time `json:"timestamp"`
	LatencyMS        int64     `json:"latency_ms"`
}

// Session wraps a provider with a transcript. It is not safe for
// concurrent use.
type Session struct {
	id         string
	provider   llm.Provider
	model      string
	retries    int
	timeout    time.Duration
	backoff    time.Duration
	options    llm.Options
	transcript []llm.Message

	logger  *zap.Logger
	metrics *metrics.Registry
	rng     *rand.Rand
	now     func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records query bookkeeping into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Session) { s.metrics = reg }
}

// WithRand sets the source of dry-run responses.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithClock sets the clock used for timestamps and latency.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates a session. An empty modelKey selects dry-run mode, in which
// provider is ignored and no network I/O happens. Otherwise modelKey is
// resolved through cfg.Models and provider is required. A non-empty
// systemPrompt seeds the transcript.
func New(cfg *config.Config, provider llm.Provider, modelKey, systemPrompt string, opts ...Option) (*Session, error) {
	s := &Session{
		id:      uuid.NewString(),
		retries: cfg.APIRetries,
		timeout: cfg.APITimeout,
		backoff: cfg.APIRetryBackoff,
		logger:  zap.NewNop(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))

	if modelKey != "" {
		model, err := cfg.ModelID(modelKey)
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return nil, core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("provider required for model %q", modelKey))
		}
		options, err := llm.DecodeOptions(cfg.QueryConfig)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		if v, ok := provider.(llm.OptionsValidator); ok {
			if err := v.ValidateOptions(options); err != nil {
				return nil, err
			}
		}
		s.provider = provider
		s.model = model
		s.options = options

		s.logger.Debug("session started",
			zap.String("provider", provider.Name()),
			zap.String("model", model),
			zap.Int("retries", s.retries),
			zap.Duration("timeout", s.timeout),
		)
	} else {
		s.logger.Debug("session started in dry-run mode")
	}

	if systemPrompt != "" {
		s.AppendMessage(llm.RoleSystem, systemPrompt)
	}

	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// DryRun reports whether the session has no live provider.
func (s *Session) DryRun() bool { return s.provider == nil }

// Model returns the resolved model id, empty in dry run.
func (s *Session) Model() string { return s.model }

// Transcript returns a copy of the conversation so far.
func (s *Session) Transcript() []llm.Message {
	out := make([]llm.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// AppendMessage adds a message to the end of the transcript.
func (s *Session) AppendMessage(role llm.Role, content string) {
	s.transcript = append(s.transcript, llm.Message{Role: role, Content: content})
	if s.metrics != nil {
		s.metrics.SetTranscriptLength(s.id, len(s.transcript))
	}
}

// Query appends prompt as a user message and dispatches the transcript.
func (s *Session) Query(ctx context.Context, prompt string) (*Result, error) {
	s.AppendMessage(llm.RoleUser, prompt)
	return s.Dispatch(ctx)
}

// Dispatch sends the current transcript, whose last message must be from
// the user. On success the reply is appended as an assistant message; on
// failure the transcript is left as it was.
func (s *Session) Dispatch(ctx context.Context) (*Result, error) {
	if n := len(s.transcript); n == 0 || s.transcript[n-1].Role != llm.RoleUser {
		last := "none"
		if n > 0 {
			last = string(s.transcript[n-1].Role)
		}
		return nil, core.WrapError(core.ErrTranscriptInvariant,
			fmt.Errorf("last message role is %s", last))
	}

	if s.DryRun() {
		return s.dryRun(), nil
	}

	res, err := s.live(ctx)
	if s.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordQuery(s.model, status)
	}
	return res, err
}

func (s *Session) dryRun() *Result {
	response := fmt.Sprintf("random response %d", 1000+s.rng.IntN(9000))
	s.AppendMessage(llm.RoleAssistant, response)

	return &Result{
		Response:         response,
		CompletionTokens: DryRunCompletionTokens,
		Timestamp:        s.now(),
		LatencyMS:        DryRunLatencyMS,
	}
}

type attemptResult struct {
	completion *llm.Completion
	latency    time.Duration
}

func (s *Session) live(ctx context.Context) (*Result, error) {
	req := llm.Request{
		Model:    s.model,
		Messages: s.Transcript(),
		Options:  s.options,
	}

	policy := retry.Policy{
		MaxAttempts: s.retries,
		Backoff:     s.backoff,
		Retryable: func(err error) bool {
			// a timeout caused by the caller's own context is final
			return llm.IsTimeout(err) && ctx.Err() == nil
		},
		OnRetry: func(attempt int, err error) {
			s.logger.Warn("API timed out, trying again",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.retries),
				zap.Error(err),
			)
		},
	}

	out, err := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (attemptResult, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		t0 := s.now()
		completion, err := s.provider.Complete(attemptCtx, req)
		t1 := s.now()

		s.recordAttempt(err)
		if err != nil {
			return attemptResult{}, err
		}
		return attemptResult{completion: completion, latency: t1.Sub(t0)}, nil
	})
	if err != nil {
		if errors.Is(err, core.ErrAPIExhausted) {
			s.logger.Error("giving up", zap.Int("attempts", s.retries), zap.Error(err))
		}
		return nil, err
	}

	c := out.completion
	s.AppendMessage(llm.RoleAssistant, c.Content)

	res := &Result{
		Response:         c.Content,
		CompletionTokens: c.Usage.OutputTokens,
		Timestamp:        c.Created,
		LatencyMS:        out.latency.Milliseconds(),
	}
	if s.metrics != nil {
		s.metrics.RecordCompletion(s.model, out.latency.Seconds(), res.CompletionTokens)
	}

	s.logger.Info("query completed",
		zap.String("model", s.model),
		zap.Int("completion_tokens", res.CompletionTokens),
		zap.Int64("latency_ms", res.LatencyMS),
	)

	return res, nil
}

func (s *Session) recordAttempt(err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case llm.IsTimeout(err):
		outcome = "timeout"
	default:
		outcome = "error"
	}
	s.metrics.RecordAttempt(s.model, outcome)
}
