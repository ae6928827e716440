package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/newthinker/parley/internal/config"
	"github.com/newthinker/parley/internal/core"
	"github.com/newthinker/parley/internal/llm"
	"github.com/newthinker/parley/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cfgFile, debug, askJSON = "", false, false
		askFlags = sessionFlags{}
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAsk_DryRunJSON(t *testing.T) {
	out, err := runCLI(t, "ask", "--json", "first", "second")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	for _, line := range lines {
		var res struct {
			Response         string `json:"model_response"`
			CompletionTokens int    `json:"completion_tokens"`
			LatencyMS        int64  `json:"latency_ms"`
			Timestamp        string `json:"timestamp"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &res))
		assert.True(t, strings.HasPrefix(res.Response, "random response "))
		assert.Equal(t, 42, res.CompletionTokens)
		assert.Equal(t, int64(1234), res.LatencyMS)
		assert.NotEmpty(t, res.Timestamp)
	}
}

func TestAsk_WritesMetricsTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.prom")
	_, err := runCLI(t, "ask", "--metrics-textfile", path, "hello")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "parley_transcript_messages")
}

func TestAsk_UnknownModel(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
provider: ollama
models:
  local: "llama3"
`), 0644))

	_, err := runCLI(t, "ask", "-c", cfgPath, "-m", "remote", "hello")
	assert.True(t, errors.Is(err, core.ErrUnknownModel), "got %v", err)
}

func TestAsk_UnknownModelCheckedBeforeCredentials(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "api_key.txt")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
provider: openai
models:
  small: "gpt-4o-mini"
credentials:
  path: `+keyPath+`
`), 0644))

	_, err := runCLI(t, "ask", "-c", cfgPath, "-m", "typo", "hello")
	assert.True(t, errors.Is(err, core.ErrUnknownModel), "got %v", err)

	_, statErr := os.Stat(keyPath)
	assert.True(t, os.IsNotExist(statErr), "no key file should be written")
}

func TestModels_ListsSorted(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
models:
  zeta: "model-z"
  alpha: "model-a"
`), 0644))

	out, err := runCLI(t, "models", "-c", cfgPath)
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "zeta"))
	assert.Contains(t, out, "model-a")
}

func TestKey_ReadsStoredFile(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "api_key.txt")
	require.NoError(t, os.WriteFile(keyPath, []byte("sk-stored"), 0600))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("credentials:\n  path: "+keyPath+"\n"), 0644))

	out, err := runCLI(t, "key", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "length=9")
	assert.NotContains(t, out, "sk-stored")
	assert.Contains(t, out, keyPath)
}

func TestChatLoop(t *testing.T) {
	s, err := session.New(config.Defaults(), nil, "", "be nice")
	require.NoError(t, err)

	in := strings.NewReader("hello\n\n/history\n/quit\nnever read\n")
	var out, status bytes.Buffer

	queries := 0
	err = chatLoop(in, &out, &status, s, func(prompt string) (*session.Result, error) {
		queries++
		return s.Query(t.Context(), prompt)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, queries)
	assert.Contains(t, out.String(), "random response ")
	assert.Contains(t, out.String(), "ROLE")
	assert.Contains(t, out.String(), "be nice")
	assert.Len(t, s.Transcript(), 3)
}

func TestChatLoop_EOF(t *testing.T) {
	s, err := session.New(config.Defaults(), nil, "", "")
	require.NoError(t, err)

	err = chatLoop(strings.NewReader("one"), &bytes.Buffer{}, &bytes.Buffer{}, s,
		func(prompt string) (*session.Result, error) { return s.Query(t.Context(), prompt) })
	require.NoError(t, err)
	assert.Len(t, s.Transcript(), 2)
}

func TestPrintTranscript_TruncatesOnRuneBoundary(t *testing.T) {
	var buf bytes.Buffer
	printTranscript(&buf, []llm.Message{
		{Role: llm.RoleUser, Content: strings.Repeat("é", 100)},
	})

	out := buf.String()
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, strings.Repeat("é", 77)+"...")
	assert.NotContains(t, out, strings.Repeat("é", 78))
}

func TestPrintResult_Text(t *testing.T) {
	var buf bytes.Buffer
	err := printResult(&buf, &session.Result{
		Response:         "hi there",
		CompletionTokens: 3,
		LatencyMS:        120,
		Timestamp:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}, false)
	require.NoError(t, err)

	assert.Equal(t, "hi there\n-- tokens=3 latency=120ms at 2025-01-01T00:00:00Z\n", buf.String())
}
