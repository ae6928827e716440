// Package credential supplies the API key used by live providers.
package credential

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/newthinker/parley/internal/config"
	"github.com/newthinker/parley/internal/core"
	"github.com/newthinker/parley/internal/storage/blob"
	"go.uber.org/zap"
)

// Provider returns a secret string.
type Provider interface {
	Secret(ctx context.Context) (string, error)
}

// Static is a Provider holding a fixed secret.
type Static string

// Secret returns the fixed secret.
func (s Static) Secret(ctx context.Context) (string, error) {
	return string(s), nil
}

// EnvProvider reads the secret from an environment variable.
type EnvProvider struct {
	Name string
}

// Secret returns the variable's value, or CONFIG_MISSING when unset or empty.
func (e EnvProvider) Secret(ctx context.Context) (string, error) {
	v := strings.TrimSpace(os.Getenv(e.Name))
	if v == "" {
		return "", core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("environment variable %s is not set", e.Name))
	}
	return v, nil
}

// NewFromConfig builds the Provider selected by credentials.source.
func NewFromConfig(cfg config.CredentialsConfig, prompter Prompter, logger *zap.Logger) (Provider, error) {
	switch cfg.Source {
	case "", "file":
		path := cfg.Path
		if path == "" {
			var err error
			if path, err = config.DefaultKeyFile(); err != nil {
				return nil, core.WrapError(core.ErrCredentialIO, err)
			}
		}
		store, err := blob.NewLocalFS(filepath.Dir(path))
		if err != nil {
			return nil, core.WrapError(core.ErrCredentialIO, err)
		}
		return NewStoreProvider(store, filepath.Base(path), prompter, logger), nil

	case "s3":
		key := cfg.Path
		if key == "" {
			key = config.DefaultKeyFileName
		}
		store, err := blob.NewS3(blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		return NewStoreProvider(store, key, prompter, logger), nil

	case "env":
		name := cfg.Env
		if name == "" {
			name = config.DefaultKeyEnv
		}
		return EnvProvider{Name: name}, nil

	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown credentials source %q", cfg.Source))
	}
}

// Fingerprint returns a short SHA-256 fingerprint of secret.
func Fingerprint(secret string) string {
	if secret == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:4])
}

// Mask renders secret for display without exposing any part of it.
func Mask(secret string) string {
	if secret == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(secret), Fingerprint(secret))
}
