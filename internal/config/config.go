// Package config reads runtime settings from the environment, after loading
// a .env file if one is present.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the digest commands need.
type Config struct {
	DatabaseDriver string
	DatabaseURL    string

	GeminiAPIKey string
	GeminiModel  string
	GeminiRPM    int

	CrawlerDir          string
	CrawlerConfig       string
	CrawlerCommand      []string
	CrawlerTimeout      time.Duration
	CrawlerStorage      string
	CrawlSettleAttempts int
	CrawlSettleInterval time.Duration

	WindowHours int
	MaxCount    int
	Schedule    string
	JobsFile    string
	OutDir      string

	LogFormat string
	LogLevel  slog.Level
}

// Load reads .env (if present) and then the environment. Every invalid
// variable is reported in the returned error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	var errs []error
	p := parser{errs: &errs}

	cfg := &Config{
		DatabaseDriver: getenv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    getenv("DATABASE_URL", "data/posts.db"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiRPM:    p.positiveInt("GEMINI_RPM", 10),

		CrawlerDir:          os.Getenv("CRAWLER_DIR"),
		CrawlerConfig:       getenv("CRAWLER_CONFIG", "config/base_config.py"),
		CrawlerCommand:      strings.Fields(getenv("CRAWLER_COMMAND", "python3 main.py")),
		CrawlerTimeout:      p.duration("CRAWLER_TIMEOUT", 120*time.Second),
		CrawlerStorage:      getenv("CRAWLER_STORAGE", "postgresql"),
		CrawlSettleAttempts: p.nonNegativeInt("CRAWL_SETTLE_ATTEMPTS", 3),
		CrawlSettleInterval: p.duration("CRAWL_SETTLE_INTERVAL", 500*time.Millisecond),

		WindowHours: p.positiveInt("DIGEST_WINDOW_HOURS", 24),
		MaxCount:    p.positiveInt("CRAWL_MAX_COUNT", 50),
		Schedule:    getenv("DIGEST_SCHEDULE", "0 8 * * *"),
		JobsFile:    getenv("DIGEST_JOBS_FILE", "input/jobs.csv"),
		OutDir:      getenv("DIGEST_OUT_DIR", "data/digests"),

		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "json")),
	}

	switch cfg.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q (use sqlite or postgres)", cfg.DatabaseDriver))
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: %q (use json or text)", cfg.LogFormat))
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// NewLogger builds the process logger: JSON to w unless LOG_FORMAT=text.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

type parser struct {
	errs *[]error
}

func (p parser) integer(key string, def int) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return def, false
	}
	return n, true
}

func (p parser) positiveInt(key string, def int) int {
	n, ok := p.integer(key, def)
	if ok && n <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: must be positive, got %d", key, n))
		return def
	}
	return n
}

func (p parser) nonNegativeInt(key string, def int) int {
	n, ok := p.integer(key, def)
	if ok && n < 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: must not be negative, got %d", key, n))
		return def
	}
	return n
}

// duration accepts Go durations ("90s", "2m") or a bare number of seconds.
func (p parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*p.errs = append(*p.errs, fmt.Errorf("%s: %q is not a positive duration", key, raw))
		return def
	}
	return d
}
