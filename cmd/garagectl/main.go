// Garagectl is a terminal remote control for a networked garage door.
//
// Running without arguments opens the interactive door screen: drag the
// door with the mouse or use the keys shown at the bottom. Subcommands send
// single commands, print the door status and manage the stored endpoint and
// API key.
//
// Usage:
//
//	garagectl [command] [flags]
//
// See 'garagectl --help' for available commands.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/garagectl/internal/config"
	"github.com/muurk/garagectl/internal/credentials"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/telemetry"
	"github.com/muurk/garagectl/internal/version"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath    string
	dbPath        string
	logLevel      string
	logFile       string
	transportName string
)

// cfg is loaded before any command runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "garagectl",
	Short: "Garage door remote control",
	Long: `A terminal remote control for a networked garage door.

The door screen shows the live door position and the target position,
animated as commands and telemetry arrive. Drag the door up or down with
the mouse and release to open, close or leave it where it was; click it to
toggle.

If no command is specified, the door screen opens.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentPreRunE = setup

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Preferences file (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Credential database (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log destination (file path, stdout or stderr)")
	rootCmd.PersistentFlags().StringVar(&transportName, "transport", "", "Telemetry transport (sse, websocket)")

	rootCmd.AddCommand(versionCmd)
}

// setup loads preferences, applies flag overrides and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if transportName != "" {
		loaded.Telemetry.Transport = strings.ToLower(transportName)
	}
	if dbPath != "" {
		loaded.Storage.Path = dbPath
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = loaded.LogLevel
	}
	output := logFile
	if output == "" {
		output = loaded.LogFile
	}
	if output == "" && !cmd.HasParent() && level != "" {
		// Console logs would tear the full-screen UI
		if output, err = defaultLogPath(); err != nil {
			return err
		}
	}
	if err := logging.InitializeWithOptions(logging.Options{Level: level, OutputPath: output}); err != nil {
		return err
	}

	cfg = loaded
	logging.Debug("Configuration loaded")
	return nil
}

func defaultLogPath() (string, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return filepath.Join(dir, "garagectl.log"), nil
}

// openStore opens the credential database. The returned func closes it.
func openStore() (*credentials.Store, func(), error) {
	path, err := cfg.CredentialsPath()
	if err != nil {
		return nil, nil, err
	}
	backend, err := credentials.OpenBolt(path)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = backend.Close() }

	store, err := credentials.NewStore(backend)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

func transport() telemetry.Transport {
	return telemetry.NewTransport(cfg.Telemetry.Transport)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("garagectl %s\n", version.Get())
	},
}
