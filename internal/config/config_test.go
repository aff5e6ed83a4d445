package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devhelper-ai/internal/llm"
	"github.com/sakif/devhelper-ai/internal/model"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, llm.DefaultEndpoint, cfg.GeminiEndpoint)
	assert.Equal(t, time.Duration(0), cfg.GeminiTimeout)
	assert.Equal(t, model.JavaScript, cfg.DefaultLanguage)
	assert.Equal(t, BackendMemory, cfg.HistoryBackend)
	assert.Equal(t, 10, cfg.HistoryAutoLimit)
	assert.Equal(t, 0, cfg.HistorySaveLimit)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"PORT":               "9090",
		"GEMINI_API_KEY":     "abc",
		"GEMINI_TIMEOUT":     "30s",
		"DEFAULT_LANGUAGE":   "Python",
		"HISTORY_BACKEND":    "SQLite",
		"HISTORY_AUTO_LIMIT": "5",
		"HISTORY_SAVE_LIMIT": "5",
		"SESSION_SECRET":     "0123456789abcdef",
		"LOG_LEVEL":          "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "abc", cfg.GeminiAPIKey)
	assert.Equal(t, 30*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, model.Python, cfg.DefaultLanguage)
	assert.Equal(t, BackendSQLite, cfg.HistoryBackend)
	assert.Equal(t, 5, cfg.HistoryAutoLimit)
	assert.Equal(t, 5, cfg.HistorySaveLimit)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"non-numeric port":  {"PORT": "eighty"},
		"port out of range": {"PORT": "70000"},
		"unknown language":  {"DEFAULT_LANGUAGE": "Fortran"},
		"unknown backend":   {"HISTORY_BACKEND": "redis"},
		"negative limit":    {"HISTORY_AUTO_LIMIT": "-1"},
		"short secret":      {"SESSION_SECRET": "short"},
		"bad duration":      {"GEMINI_TIMEOUT": "soon"},
		"bad log level":     {"LOG_LEVEL": "loud"},
		"non-positive ttl":  {"SESSION_TTL": "0s"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(envOf(env))
			assert.Error(t, err)
		})
	}
}
