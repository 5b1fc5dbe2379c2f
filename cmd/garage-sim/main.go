// Garage-sim is a simulated garage door controller.
//
// It serves the same HTTP API as a real controller: bearer-protected
// POST /open, /close and /toggle, and GET /watch-status streaming the door
// status as server-sent events or, when upgraded, over a websocket. The door
// travels between closed and open over a configurable time.
//
// Usage:
//
//	garage-sim [flags]
//
// See 'garage-sim --help' for available options.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/garagectl/internal/config"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/server"
	"github.com/muurk/garagectl/internal/ui"
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

// Simulator flags
var (
	configPath string
	host       string
	port       int
	apiKey     string
	travelTime time.Duration
	advertise  bool
	instance   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "garage-sim",
	Short: "Simulated garage door controller",
	Long: `A simulated garage door controller for developing and testing garagectl.

The door starts in an unknown state. Open and close move it at a constant
speed; toggle stops a moving door, or moves a stopped one away from the end
it last moved toward.

When no API key is given a random one is generated and printed. Unset flags
fall back to the simulator section of the garagectl preferences file.`,
	Example: `  # Start on the default port with a generated key
  garage-sim

  # Fixed key, fast door, published over mDNS
  garage-sim --api-key secret --travel-time 5s --advertise

  # Then, from another terminal
  garagectl config set --url http://localhost:8080 --api-key secret`,
	Version:      version.Version,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE:         runSimulator,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&configPath, "config", "", "garagectl preferences file (default: platform config dir)")
	rootCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	rootCmd.Flags().IntVar(&port, "port", server.DefaultPort, "Listen port")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "Bearer token clients must send (generated when empty)")
	rootCmd.Flags().DurationVar(&travelTime, "travel-time", server.DefaultTravelTime, "Time for a full open or close")
	rootCmd.Flags().BoolVar(&advertise, "advertise", false, "Publish the simulator over mDNS")
	rootCmd.Flags().StringVar(&instance, "name", server.DefaultInstance, "mDNS instance name")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

func runSimulator(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}

	prefs, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if sim := prefs.Simulator; sim != nil {
		flags := cmd.Flags()
		if !flags.Changed("port") && sim.Port != 0 {
			port = sim.Port
		}
		if !flags.Changed("travel-time") && sim.TravelTime > 0 {
			travelTime = sim.TravelTime
		}
		if !flags.Changed("advertise") {
			advertise = sim.Advertise
		}
	}

	srv, err := server.New(server.Config{
		Host:       host,
		Port:       port,
		APIKey:     apiKey,
		TravelTime: travelTime,
		Advertise:  advertise,
		Instance:   instance,
	})
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}

	listenHost := host
	if listenHost == "" {
		listenHost = "localhost"
	}
	endpoint := "http://" + net.JoinHostPort(listenHost, strconv.Itoa(port))

	ui.NewPrinter(os.Stdout).PrintHeader(ui.NewHeader("garage-sim", endpoint,
		ui.Detail{Key: "API key", Value: srv.APIKey()},
		ui.Detail{Key: "Travel time", Value: travelTime.String()},
		ui.Detail{Key: "mDNS", Value: strconv.FormatBool(advertise)},
		ui.Detail{Key: "Connect", Value: "garagectl config set --url " + endpoint + " --api-key -"},
	))

	return srv.Start(context.Background())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("garage-sim %s\n", version.Get())
	},
}
