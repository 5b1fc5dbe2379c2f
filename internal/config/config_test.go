package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetConfigDir(t *testing.T) {
	t.Setenv(configDirEnvVar, "")
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Contains(t, dir, appName)

	switch runtime.GOOS {
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" {
			assert.Contains(t, dir, ".config")
		}
	}
}

func TestGetConfigDir_Override(t *testing.T) {
	override := t.TempDir()
	t.Setenv(configDirEnvVar, override)

	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, override, dir)

	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(override, "config.yaml"), path)

	creds, err := Default().CredentialsPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(override, "credentials.db"), creds)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := Default()
	cfg.LogLevel = "debug"
	cfg.Telemetry.Transport = "websocket"
	cfg.Gesture.TapMaxDuration = 300 * time.Millisecond
	cfg.Storage.Path = "/var/lib/garagectl/credentials.db"
	require.NoError(t, cfg.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# garagectl preferences"))
	assert.Contains(t, string(raw), "tap_max_duration: 300ms")
	assert.NotContains(t, string(raw), "apiKey")

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_PartialFileFilledWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\ngesture:\n  drag_fraction: 0.5\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.5, cfg.Gesture.DragFraction)
	assert.Equal(t, "sse", cfg.Telemetry.Transport)
	assert.Equal(t, 250*time.Millisecond, cfg.Gesture.TapMaxDuration)
	assert.Equal(t, 10*time.Second, cfg.Command.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"bad version", "version: 2\n", "unsupported config version"},
		{"bad transport", "version: 1\ntelemetry:\n  transport: carrier-pigeon\n", "telemetry.transport"},
		{"bad fraction", "version: 1\ngesture:\n  drag_fraction: 1.5\n", "drag_fraction"},
		{"bad yaml", "version: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestGestureParams(t *testing.T) {
	cfg := Default()
	p := cfg.GestureParams(40)
	assert.InDelta(t, 12, p.DragScale, 1e-9)
	assert.Equal(t, 1.0, p.TapMaxDistance)
	assert.Equal(t, 250*time.Millisecond, p.TapMaxDuration)
}
