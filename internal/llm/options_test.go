package llm

import (
	"testing"

	"github.com/newthinker/parley/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeOptions_Empty(t *testing.T) {
	opts, err := DecodeOptions(nil)
	require.NoError(t, err)
	assert.Nil(t, opts.Temperature)
	assert.Zero(t, opts.MaxTokens)
	assert.Empty(t, opts.Extra)
}

func TestDecodeOptions_KnownKeys(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"temperature": 0.7,
		"top_p":       1,
		"max_tokens":  512,
		"stop":        []any{"\n\n", "END"},
		"seed":        7,
		"json_mode":   true,
	})
	require.NoError(t, err)

	require.NotNil(t, opts.Temperature)
	assert.InDelta(t, 0.7, *opts.Temperature, 1e-9)
	require.NotNil(t, opts.TopP)
	assert.InDelta(t, 1.0, *opts.TopP, 1e-9)
	assert.Equal(t, 512, opts.MaxTokens)
	assert.Equal(t, []string{"\n\n", "END"}, opts.Stop)
	require.NotNil(t, opts.Seed)
	assert.Equal(t, 7, *opts.Seed)
	assert.True(t, opts.JSONMode)
	assert.Empty(t, opts.Extra)
}

func TestDecodeOptions_UnknownKeysKept(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"temperature": 0,
		"num_ctx":     8192,
	})
	require.NoError(t, err)

	require.NotNil(t, opts.Temperature)
	assert.Zero(t, *opts.Temperature)
	assert.Equal(t, map[string]any{"num_ctx": 8192}, opts.Extra)
}

func TestDecodeOptions_BadType(t *testing.T) {
	_, err := DecodeOptions(map[string]any{"max_tokens": "lots"})
	assert.Error(t, err)
}

func TestOptions_DecodeExtra(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{"temperature": 0.1, "n": "2", "user": "u1"})
	require.NoError(t, err)

	var dst struct {
		N    int    `mapstructure:"n"`
		User string `mapstructure:"user"`
	}
	require.NoError(t, opts.DecodeExtra("test", &dst))
	assert.Equal(t, 2, dst.N)
	assert.Equal(t, "u1", dst.User)
}

func TestOptions_DecodeExtra_UnknownKeys(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{"n": 2, "zeta": 1, "alpha": 2})
	require.NoError(t, err)

	var dst struct {
		N int `mapstructure:"n"`
	}
	err = opts.DecodeExtra("test", &dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	assert.Contains(t, err.Error(), "not supported by test: alpha, zeta")
}

func TestOptions_DecodeExtra_BadType(t *testing.T) {
	opts := Options{Extra: map[string]any{"n": "many"}}

	var dst struct {
		N int `mapstructure:"n"`
	}
	assert.ErrorIs(t, opts.DecodeExtra("test", &dst), core.ErrConfigInvalid)
}
