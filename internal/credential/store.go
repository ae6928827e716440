package credential

import (
	"context"
	"fmt"
	"strings"

	"github.com/newthinker/parley/internal/core"
	"github.com/newthinker/parley/internal/storage/blob"
	"go.uber.org/zap"
)

// StoreProvider keeps the secret in a blob store. The first call with no
// stored secret prompts for one and persists it.
type StoreProvider struct {
	store    blob.Storage
	key      string
	prompter Prompter
	logger   *zap.Logger
}

// NewStoreProvider creates a StoreProvider for key in store.
func NewStoreProvider(store blob.Storage, key string, prompter Prompter, logger *zap.Logger) *StoreProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreProvider{
		store:    store,
		key:      key,
		prompter: prompter,
		logger:   logger,
	}
}

// Location describes where the secret is kept.
func (p *StoreProvider) Location() string {
	return p.store.Location(p.key)
}

// Secret returns the stored secret, prompting and storing it if absent.
func (p *StoreProvider) Secret(ctx context.Context) (string, error) {
	exists, err := p.store.Exists(ctx, p.key)
	if err != nil {
		return "", core.WrapError(core.ErrCredentialIO, fmt.Errorf("checking %s: %w", p.Location(), err))
	}

	if exists {
		data, err := p.store.Read(ctx, p.key)
		if err != nil {
			return "", core.WrapError(core.ErrCredentialIO, fmt.Errorf("reading %s: %w", p.Location(), err))
		}
		return normalizeSecret(string(data)), nil
	}

	if p.prompter == nil {
		return "", core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("no API key stored at %s", p.Location()))
	}

	secret, err := p.prompter.Prompt(fmt.Sprintf("Please enter API key (will be stored in %s)", p.Location()))
	if err != nil {
		return "", core.WrapError(core.ErrCredentialIO, fmt.Errorf("reading API key: %w", err))
	}
	if secret == "" {
		return "", core.WrapError(core.ErrConfigMissing, fmt.Errorf("empty API key entered"))
	}

	if err := p.store.Write(ctx, p.key, []byte(secret)); err != nil {
		return "", core.WrapError(core.ErrCredentialIO, fmt.Errorf("writing %s: %w", p.Location(), err))
	}
	p.logger.Info("API key stored", zap.String("location", p.Location()))

	return secret, nil
}

// normalizeSecret trims surrounding whitespace from a stored or entered key.
func normalizeSecret(s string) string {
	return strings.TrimSpace(s)
}

// Reset removes the stored secret so the next Secret call prompts again.
func (p *StoreProvider) Reset(ctx context.Context) error {
	if err := p.store.Delete(ctx, p.key); err != nil {
		return core.WrapError(core.ErrCredentialIO, fmt.Errorf("deleting %s: %w", p.Location(), err))
	}
	return nil
}
