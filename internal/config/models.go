package config

import (
	"fmt"
	"time"

	"github.com/muurk/garagectl/internal/gesture"
	"github.com/muurk/garagectl/internal/telemetry"
)

// CurrentVersion is the only config file version understood
const CurrentVersion = 1

// Config represents the preferences file. Credentials are not part of it.
type Config struct {
	Version   int             `yaml:"version"`
	LogLevel  string          `yaml:"log_level,omitempty"` // debug, info, warn, error; empty is silent
	LogFile   string          `yaml:"log_file,omitempty"`  // Log destination while the TUI runs
	Telemetry TelemetryPrefs  `yaml:"telemetry"`
	Gesture   GesturePrefs    `yaml:"gesture"`
	Command   CommandPrefs    `yaml:"command"`
	Storage   StoragePrefs    `yaml:"storage"`
	Discovery DiscoveryPrefs  `yaml:"discovery"`
	Simulator *SimulatorPrefs `yaml:"simulator,omitempty"`
}

// TelemetryPrefs selects how the status stream is read.
type TelemetryPrefs struct {
	Transport string `yaml:"transport"` // sse or websocket
}

// GesturePrefs tunes drag and tap recognition in the terminal UI.
type GesturePrefs struct {
	DragFraction   float64       `yaml:"drag_fraction"`    // Share of screen height for full travel
	TapMaxDistance float64       `yaml:"tap_max_distance"` // In terminal cells
	TapMaxDuration time.Duration `yaml:"tap_max_duration"`
}

// CommandPrefs configures door command requests.
type CommandPrefs struct {
	Timeout time.Duration `yaml:"timeout"`
}

// StoragePrefs locates the credential database.
type StoragePrefs struct {
	Path string `yaml:"path,omitempty"` // Empty means credentials.db next to this file
}

// DiscoveryPrefs configures mDNS browsing.
type DiscoveryPrefs struct {
	Timeout time.Duration `yaml:"timeout"`
}

// SimulatorPrefs are defaults for garage-sim.
type SimulatorPrefs struct {
	Port       int           `yaml:"port,omitempty"`
	TravelTime time.Duration `yaml:"travel_time,omitempty"`
	Advertise  bool          `yaml:"advertise,omitempty"`
}

// Default returns a Config with every field set to its default.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Telemetry: TelemetryPrefs{
			Transport: telemetry.TransportSSE,
		},
		Gesture: GesturePrefs{
			DragFraction: gesture.DefaultDragFraction,
			// Terminal cells are coarse; one cell of slop still counts as a tap
			TapMaxDistance: 1,
			TapMaxDuration: gesture.DefaultTapMaxDuration,
		},
		Command: CommandPrefs{
			Timeout: 10 * time.Second,
		},
		Discovery: DiscoveryPrefs{
			Timeout: 5 * time.Second,
		},
	}
}

// applyDefaults fills zero values that a hand-edited file may leave out.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Telemetry.Transport == "" {
		c.Telemetry.Transport = d.Telemetry.Transport
	}
	if c.Gesture.DragFraction == 0 {
		c.Gesture.DragFraction = d.Gesture.DragFraction
	}
	if c.Gesture.TapMaxDistance == 0 {
		c.Gesture.TapMaxDistance = d.Gesture.TapMaxDistance
	}
	if c.Gesture.TapMaxDuration == 0 {
		c.Gesture.TapMaxDuration = d.Gesture.TapMaxDuration
	}
	if c.Command.Timeout == 0 {
		c.Command.Timeout = d.Command.Timeout
	}
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = d.Discovery.Timeout
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	switch c.Telemetry.Transport {
	case telemetry.TransportSSE, telemetry.TransportWebSocket:
	default:
		return fmt.Errorf("telemetry.transport must be %q or %q, got %q",
			telemetry.TransportSSE, telemetry.TransportWebSocket, c.Telemetry.Transport)
	}
	if c.Gesture.DragFraction <= 0 || c.Gesture.DragFraction > 1 {
		return fmt.Errorf("gesture.drag_fraction must be in (0, 1], got %v", c.Gesture.DragFraction)
	}
	if c.Gesture.TapMaxDistance < 0 {
		return fmt.Errorf("gesture.tap_max_distance must not be negative")
	}
	if c.Gesture.TapMaxDuration < 0 || c.Command.Timeout < 0 || c.Discovery.Timeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// GestureParams converts the gesture preferences for a screen height.
func (c *Config) GestureParams(height float64) gesture.Params {
	return gesture.ParamsForHeight(height, c.Gesture.DragFraction).
		WithTap(c.Gesture.TapMaxDistance, c.Gesture.TapMaxDuration)
}
