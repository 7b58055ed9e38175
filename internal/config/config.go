package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL            string `yaml:"base_url"`
	Browser            string `yaml:"browser"`         // chrome | chromium | edge
	BrowserProfile     string `yaml:"browser_profile"` // profile root or Cookies DB path
	BrowserProfileName string `yaml:"browser_profile_name"`
	StateDir           string `yaml:"state_dir"`
	Visible            bool   `yaml:"visible"`
	NavWaitMs          int    `yaml:"nav_wait_ms"`
	ScrollPauseMs      int    `yaml:"scroll_pause_ms"`
	FFmpegPath         string `yaml:"ffmpeg_path"`
	NotifyWebhook      string `yaml:"notify_webhook"`
	LogLevel           string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		BaseURL:            "https://x.com",
		Browser:            "chrome",
		BrowserProfileName: "Default",
		StateDir:           "./.state",
		NavWaitMs:          900,
		ScrollPauseMs:      750,
		FFmpegPath:         "ffmpeg",
		LogLevel:           "warn",
	}
}

// Load reads an optional YAML config over the defaults. A missing file is
// fine; every run must work with zero configuration.
func Load(path string) (Config, error) {
	cfg := defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	switch cfg.Browser {
	case "chrome", "chromium", "edge":
	default:
		return cfg, fmt.Errorf("browser must be one of: chrome, chromium, edge (got %q)", cfg.Browser)
	}
	if cfg.NavWaitMs < 0 || cfg.ScrollPauseMs < 0 {
		return cfg, errors.New("nav_wait_ms and scroll_pause_ms must be >= 0")
	}
	if cfg.BaseURL == "" || !strings.HasPrefix(cfg.BaseURL, "http") {
		return cfg, fmt.Errorf("invalid base_url %q", cfg.BaseURL)
	}
	return cfg, nil
}

// SessionCookieFile is the persisted CookieSet document.
func (c Config) SessionCookieFile() string { return filepath.Join(c.StateDir, "x_session_cookies.json") }

// StreamPIDFile is the stream job's durable process handle.
func (c Config) StreamPIDFile() string { return filepath.Join(c.StateDir, "x_stream.pid") }

// StreamMetaFile is the stream job's best-effort metadata record.
func (c Config) StreamMetaFile() string { return filepath.Join(c.StateDir, "x_stream.json") }

// StreamLogFile captures the transcoder's combined output.
func (c Config) StreamLogFile() string { return filepath.Join(c.StateDir, "x_stream.log") }

// NewLogger builds the process logger. It writes to stderr: stdout is
// reserved for the single JSON result document.
func NewLogger(level string) *slog.Logger {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
