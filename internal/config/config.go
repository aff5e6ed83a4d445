// Package config loads runtime settings from the environment.
//
// Values come from real environment variables first; a ".env" file in the
// working directory fills in anything unset (godotenv never overrides).
// Every key has a default except GEMINI_API_KEY — without it the server
// still starts, but every analysis fails with the API's own error.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/devhelper-ai/internal/llm"
	"github.com/sakif/devhelper-ai/internal/model"
)

// History backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config is every setting the server reads at startup.
type Config struct {
	Port int

	GeminiAPIKey   string
	GeminiEndpoint string
	GeminiModel    string        // display name on the Settings tab
	GeminiTimeout  time.Duration // 0 = no timeout

	DefaultLanguage model.Language

	HistoryBackend   string
	HistoryAutoLimit int // entries kept after a successful analysis
	HistorySaveLimit int // entries kept after an explicit save; 0 = unbounded

	SessionSecret string // empty = random per process
	SessionTTL    time.Duration

	TemplateDir string
	StaticDir   string

	LogLevel slog.Level
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	// A missing .env is the normal case in production.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Split out from Load so tests can
// pass a map lookup instead of mutating the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	p := parser{getenv: getenv}

	cfg := Config{
		Port:             p.int("PORT", 8080),
		GeminiAPIKey:     getenv("GEMINI_API_KEY"),
		GeminiEndpoint:   p.string("GEMINI_API_URL", llm.DefaultEndpoint),
		GeminiModel:      p.string("GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiTimeout:    p.duration("GEMINI_TIMEOUT", 0),
		DefaultLanguage:  model.Language(p.string("DEFAULT_LANGUAGE", string(model.DefaultLanguage))),
		HistoryBackend:   strings.ToLower(p.string("HISTORY_BACKEND", BackendMemory)),
		HistoryAutoLimit: p.int("HISTORY_AUTO_LIMIT", 10),
		HistorySaveLimit: p.int("HISTORY_SAVE_LIMIT", 0),
		SessionSecret:    getenv("SESSION_SECRET"),
		SessionTTL:       p.duration("SESSION_TTL", 24*time.Hour),
		TemplateDir:      p.string("TEMPLATE_DIR", "web/templates"),
		StaticDir:        p.string("STATIC_DIR", "web/static"),
		LogLevel:         p.level("LOG_LEVEL", slog.LevelInfo),
	}
	if p.err != nil {
		return Config{}, p.err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT out of range: %d", c.Port)
	}
	if !c.DefaultLanguage.Valid() {
		return fmt.Errorf("config: DEFAULT_LANGUAGE %q is not a supported language", c.DefaultLanguage)
	}
	if c.HistoryBackend != BackendMemory && c.HistoryBackend != BackendSQLite {
		return fmt.Errorf("config: HISTORY_BACKEND must be %q or %q, got %q", BackendMemory, BackendSQLite, c.HistoryBackend)
	}
	if c.HistoryAutoLimit < 0 || c.HistorySaveLimit < 0 {
		return fmt.Errorf("config: history limits must not be negative")
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		return fmt.Errorf("config: SESSION_SECRET must be at least 16 characters")
	}
	if c.GeminiTimeout < 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("config: GEMINI_TIMEOUT must be >= 0 and SESSION_TTL > 0")
	}
	return nil
}

// parser reads typed values and keeps the first error, so FromEnv can
// read every key before checking once.
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) string(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, err)
		return def
	}
	return l
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("config: invalid %s value %q: %w", key, value, err)
	}
}
