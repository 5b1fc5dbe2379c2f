// Package config manages garagectl's YAML preferences file.
//
// The file lives in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/garagectl/config.yaml or $HOME/.config/garagectl/config.yaml
//   - macOS: $HOME/.config/garagectl/config.yaml
//   - Windows: %LOCALAPPDATA%\garagectl\config.yaml
//
// GARAGECTL_CONFIG_DIR overrides the directory.
//
// # Security
//
// The door endpoint and API key are never written to this file. They are kept
// by the credentials package in a bolt database with user-only permissions,
// by default credentials.db in the same directory.
//
// # Example
//
//	version: 1
//	log_level: info
//	log_file: /tmp/garagectl.log
//	telemetry:
//	    transport: sse
//	gesture:
//	    drag_fraction: 0.3
//	    tap_max_distance: 1
//	    tap_max_duration: 250ms
//	command:
//	    timeout: 10s
//	storage:
//	    path: /home/me/.config/garagectl/credentials.db
//	discovery:
//	    timeout: 5s
//
// A missing file yields Default(). Missing keys in an existing file take
// their default values. Save writes atomically through a temporary file.
package config
