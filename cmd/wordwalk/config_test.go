package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), config)

	// The defaults were written and load back unchanged.
	_, err = os.Stat(path)
	require.NoError(t, err)
	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, config, reloaded)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server_config:
  addr: ":9000"
  log_level: debug
  database_path: /tmp/walks.db
walk_config:
  order: 3
  max_steps: 40
  parallel: 2
  rand_seed: 7
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", config.Server.Addr)
	require.Equal(t, "debug", config.Server.LogLevel)
	require.Equal(t, "/tmp/walks.db", config.Server.DatabasePath)
	require.Equal(t, &WalkConfig{Order: 3, MaxSteps: 40, Parallel: 2, RandSeed: 7}, config.Walk)
	// Missing sections fall back to defaults.
	require.Equal(t, DefaultConfig().Tokenizer, config.Tokenizer)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(envDatabase, "/var/lib/wordwalk/env.db")
	t.Setenv(envAddr, "127.0.0.1:8081")
	t.Setenv(envLogLevel, "warn")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/wordwalk/env.db", config.Server.DatabasePath)
	require.Equal(t, "127.0.0.1:8081", config.Server.Addr)
	require.Equal(t, "warn", config.Server.LogLevel)
}

func TestLoadConfigNullSectionsWithEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"server_config": null, "walk_config": null, "tokenizer_config": null}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv(envAddr, "127.0.0.1:9090")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9090", config.Server.Addr)
	require.Equal(t, DefaultConfig().Server.DatabasePath, config.Server.DatabasePath)
	require.Equal(t, DefaultConfig().Walk, config.Walk)
	require.Equal(t, DefaultConfig().Tokenizer, config.Tokenizer)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	badJSON := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badJSON, []byte(`{"server_config": `), 0o644))
	_, err := LoadConfig(badJSON)
	require.Error(t, err)

	badOrder := filepath.Join(dir, "order.json")
	require.NoError(t, os.WriteFile(badOrder, []byte(`{"walk_config": {"order": 0}}`), 0o644))
	_, err = LoadConfig(badOrder)
	require.ErrorContains(t, err, "order must be positive")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range tests {
		require.Equal(t, want, parseLogLevel(input), "level %q", input)
	}
}

func TestTokenizerConfig(t *testing.T) {
	tc := TokenizerConfig{SplitHyphens: false, CaseFold: false, Separator: "_"}
	tok := tc.NewTokenizer()

	tokens := tok.TokenizeString("Well-Known Words!")
	require.Equal(t, []string{"Well-Known", "Words"}, tokens)
	require.Equal(t, "Well-Known_Words", tok.Join(tokens))
}
