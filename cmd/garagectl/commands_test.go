package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/telemetry"
	"github.com/muurk/garagectl/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withFlags points the global flags at a scratch config dir
func withFlags(t *testing.T, level string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GARAGECTL_CONFIG_DIR", dir)
	configPath = filepath.Join(dir, "missing.yaml")
	dbPath, logLevel, logFile, transportName = "", level, "", ""
	t.Cleanup(func() {
		logging.SetLogger(nil)
		configPath, dbPath, logLevel, logFile, transportName = "", "", "", "", ""
		cfg = nil
	})
	return dir
}

func TestSetupRootLogsToFile(t *testing.T) {
	dir := withFlags(t, "debug")
	transportName = "WebSocket"

	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	require.NotNil(t, cfg)
	assert.Equal(t, "websocket", cfg.Telemetry.Transport)
	assert.FileExists(t, filepath.Join(dir, "garagectl.log"))
}

func TestSetupSubcommandKeepsConsole(t *testing.T) {
	dir := withFlags(t, "error")

	require.NoError(t, setup(versionCmd, nil))
	require.NotNil(t, cfg)
	_, err := os.Stat(filepath.Join(dir, "garagectl.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestSetupRejectsUnknownTransport(t *testing.T) {
	withFlags(t, "")
	transportName = "carrier-pigeon"

	assert.Error(t, setup(statusCmd, nil))
	assert.Nil(t, cfg)
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		wantErr  bool
	}{
		{"http://10.0.0.2:8080", false},
		{"https://garage.local/api", false},
		{"ftp://garage.local", true},
		{"garage.local:8080", true},
		{"http://", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			err := validateEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "••••••••cdef", maskKey("0123456789abcdef"))
	assert.Equal(t, "•••", maskKey("abc"))
	assert.Equal(t, "", maskKey(""))
}

func TestStatusDetails(t *testing.T) {
	pos := 0.42
	details := statusDetails(telemetry.StatusEvent{Status: "moving_up", Setpoint: telemetry.SetpointOpen, Position: &pos})
	assert.Equal(t, []ui.Detail{
		{Key: "Status", Value: "moving_up"},
		{Key: "Setpoint", Value: "open"},
		{Key: "Position", Value: "42%"},
	}, details)

	unknown := statusDetails(telemetry.StatusEvent{Status: "unknown", Setpoint: "unknown"})
	assert.Equal(t, "unknown", unknown[2].Value)
}
