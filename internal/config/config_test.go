package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://x.com", cfg.BaseURL)
	assert.Equal(t, "chrome", cfg.Browser)
	assert.Equal(t, 750, cfg.ScrollPauseMs)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser: edge\nstate_dir: /tmp/xlocal-state\nscroll_pause_ms: 500\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "edge", cfg.Browser)
	assert.Equal(t, 500, cfg.ScrollPauseMs)
	assert.Equal(t, "/tmp/xlocal-state/x_stream.pid", cfg.StreamPIDFile())
	assert.Equal(t, "/tmp/xlocal-state/x_session_cookies.json", cfg.SessionCookieFile())
}

func TestLoadRejectsUnknownBrowser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser: safari\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "browser must be one of")
}
