package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/garagectl/internal/command"
	"github.com/muurk/garagectl/internal/config"
	"github.com/muurk/garagectl/internal/credentials"
	"github.com/muurk/garagectl/internal/deviceerr"
	"github.com/muurk/garagectl/internal/discovery"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/remote"
	"github.com/muurk/garagectl/internal/telemetry"
	"github.com/muurk/garagectl/internal/ui"
	"go.uber.org/zap"
)

// Command flags
var (
	followStatus  bool
	statusTimeout time.Duration
	setURL        string
	setAPIKey     string
	assumeYes     bool
	scanTimeout   time.Duration
	saveIndex     int
)

var notConfiguredTips = []string{
	"Save the endpoint: garagectl config set --url http://<door>:8080",
	"Save the API key: garagectl config set --api-key -",
	"Or find a door on this network: garagectl discover --save 1",
}

func init() {
	rootCmd.AddCommand(doorCommand(command.Open, "Open the door"))
	rootCmd.AddCommand(doorCommand(command.Close, "Close the door"))
	rootCmd.AddCommand(doorCommand(command.Toggle, "Toggle the door (stops a moving door)"))
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(discoverCmd)
}

// signalContext ends on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runTUI(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctrl := remote.New(store, remote.Options{
		Transport:      transport(),
		Params:         cfg.GestureParams(float64(ui.DefaultHeight)),
		CommandTimeout: cfg.Command.Timeout,
	})
	if err := ctrl.Start(); err != nil {
		// The screen shows the error; saving credentials later connects
		logging.Warn("Initial connect failed", zap.Error(err))
	}
	defer ctrl.Stop()

	ctx, stop := signalContext()
	defer stop()

	if err := ui.Run(ctx, ctrl, ctrl, store.Get().Endpoint, cfg.GestureParams); err != nil {
		return fmt.Errorf("terminal UI error: %w", err)
	}
	return nil
}

// doorCommand builds the open, close and toggle subcommands
func doorCommand(cmd command.Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   cmd.String(),
		Short: short,
		Long: fmt.Sprintf(`Send a single %q command to the door and wait for the device to answer.

Any HTTP answer counts as delivered; a rejected command (for example a wrong
API key) is reported as a warning.`, cmd),
		Example: fmt.Sprintf("  garagectl %s", cmd),
		Args:    cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return runDoorCommand(cmd)
		},
	}
}

func runDoorCommand(cmd command.Command) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	printer := ui.NewPrinter(os.Stdout)
	creds := store.Get()
	if !creds.Configured() {
		err := deviceerr.NewConfigError()
		printer.PrintError("Door not configured", err, notConfiguredTips...)
		return err
	}

	dispatcher := command.NewDispatcher(store)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Command.Timeout)
	defer cancel()

	code, err := dispatcher.Post(ctx, cmd)
	if err != nil {
		printer.PrintError("Command failed", err,
			"Check that the door controller is powered and reachable",
			"Endpoint: "+creds.Endpoint,
		)
		return err
	}

	details := []ui.Detail{
		{Key: "Command", Value: cmd.String()},
		{Key: "Endpoint", Value: creds.Endpoint},
		{Key: "HTTP status", Value: fmt.Sprintf("%d", code)},
	}
	if code >= 400 {
		printer.PrintResult(ui.NewWarningResult("Device rejected the command", details...))
		return nil
	}
	printer.PrintSuccess("Command sent", details...)
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the door status",
	Long: `Connect to the door's status stream and print the current status.

With --follow, every status update is printed until interrupted.`,
	Example: `  # Print the current status
  garagectl status

  # Watch the door over a websocket
  garagectl status --follow --transport websocket`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&followStatus, "follow", "f", false, "Print updates until interrupted")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second, "How long to wait for the first status")
}

func runStatus(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	printer := ui.NewPrinter(os.Stdout)
	if !store.Get().Configured() {
		err := deviceerr.NewConfigError()
		printer.PrintError("Door not configured", err, notConfiguredTips...)
		return err
	}

	if followStatus {
		return followDoor(store, printer)
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	ev, err := remote.FetchStatus(ctx, store, transport())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no status within %s", statusTimeout)
		}
		printer.PrintError("Status unavailable", err, "Endpoint: "+store.Get().Endpoint)
		return err
	}

	printer.PrintSuccess("Door status", statusDetails(ev)...)
	return nil
}

func statusDetails(ev telemetry.StatusEvent) []ui.Detail {
	position := "unknown"
	if ev.Position != nil {
		position = fmt.Sprintf("%.0f%%", *ev.Position*100)
	}
	return []ui.Detail{
		{Key: "Status", Value: ev.Status},
		{Key: "Setpoint", Value: string(ev.Setpoint)},
		{Key: "Position", Value: position},
	}
}

// followDoor prints status updates until interrupted or the stream fails
func followDoor(store *credentials.Store, printer *ui.Printer) error {
	ctx, stop := signalContext()
	defer stop()

	ch := telemetry.NewChannel(store, transport())
	defer ch.Close()

	failed := make(chan error, 1)
	defer ch.OnStatus(func(ev telemetry.StatusEvent) {
		var b strings.Builder
		b.WriteString(time.Now().Format("15:04:05"))
		for _, d := range statusDetails(ev) {
			b.WriteString("  " + d.Key + ": " + d.Value)
		}
		printer.Println(b.String())
	})()
	defer ch.OnState(func(s telemetry.Snapshot) {
		if s.State == telemetry.StateDisconnected && s.Err != nil {
			select {
			case failed <- s.Err:
			default:
			}
		}
	})()

	if err := ch.Connect(); err != nil {
		return err
	}
	printer.Println(ui.SubtitleStyle.Render("Watching " + store.Get().Endpoint + " (Ctrl+C to stop)"))

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		printer.PrintError("Status stream ended", err)
		return err
	}
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the door endpoint and API key",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show stored credentials and preferences",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the door endpoint and/or API key",
	Long: `Store the door endpoint and/or API key in the credential database.

Pass "-" as the API key to type it without echo. A running door screen picks
up the change and reconnects. --transport is saved to the preferences file.`,
	Example: `  # Save both at once
  garagectl config set --url http://10.0.0.2:8080 --api-key -

  # Only change the endpoint
  garagectl config set --url http://garage.local

  # Prefer the websocket stream
  garagectl config set --transport websocket`,
	Args: cobra.NoArgs,
	RunE: runConfigSet,
}

var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored endpoint and API key",
	Args:  cobra.NoArgs,
	RunE:  runConfigClear,
}

func init() {
	configSetCmd.Flags().StringVar(&setURL, "url", "", "Door endpoint, e.g. http://10.0.0.2:8080")
	configSetCmd.Flags().StringVar(&setAPIKey, "api-key", "", `API key ("-" prompts without echo)`)
	configClearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configClearCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	creds := store.Get()
	endpoint := creds.Endpoint
	if endpoint == "" {
		endpoint = "not set"
	}
	apiKey := "not set"
	if creds.APIKey != "" {
		apiKey = maskKey(creds.APIKey)
	}
	prefsPath := configPath
	if prefsPath == "" {
		if prefsPath, err = config.GetConfigPath(); err != nil {
			return err
		}
	}
	dbFile, err := cfg.CredentialsPath()
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintHeader(ui.NewHeader("garagectl configuration", "",
		ui.Detail{Key: "Endpoint", Value: endpoint},
		ui.Detail{Key: "API key", Value: apiKey},
		ui.Detail{Key: "Transport", Value: cfg.Telemetry.Transport},
		ui.Detail{Key: "Command timeout", Value: cfg.Command.Timeout.String()},
		ui.Detail{Key: "Preferences", Value: prefsPath},
		ui.Detail{Key: "Credentials", Value: dbFile},
	))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	urlChanged := cmd.Flags().Changed("url")
	keyChanged := cmd.Flags().Changed("api-key")
	transportChanged := cmd.Flags().Changed("transport")
	if !urlChanged && !keyChanged && !transportChanged {
		return errors.New("nothing to set: pass --url, --api-key or --transport")
	}

	printer := ui.NewPrinter(os.Stdout)
	var details []ui.Detail

	if transportChanged {
		// setup already applied and validated the flag
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		details = append(details, ui.Detail{Key: "Transport", Value: cfg.Telemetry.Transport})
	}

	if urlChanged || keyChanged {
		update, err := credentialUpdate(urlChanged, keyChanged)
		if err != nil {
			return err
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.Set(update); err != nil {
			printer.PrintError("Failed to save credentials", err)
			return err
		}
		creds := store.Get()
		if urlChanged {
			details = append(details, ui.Detail{Key: "Endpoint", Value: creds.Endpoint})
		}
		if keyChanged {
			details = append(details, ui.Detail{Key: "API key", Value: maskKey(creds.APIKey)})
		}
	}

	printer.PrintSuccess("Configuration saved", details...)
	return nil
}

// credentialUpdate validates the flags and builds the partial write
func credentialUpdate(urlChanged, keyChanged bool) (credentials.Update, error) {
	endpoint := strings.TrimSpace(setURL)
	if urlChanged && endpoint != "" {
		if err := validateEndpoint(endpoint); err != nil {
			return credentials.Update{}, err
		}
	}

	key := setAPIKey
	if keyChanged && key == "-" {
		var err error
		if key, err = promptSecret("API key: "); err != nil {
			return credentials.Update{}, err
		}
	}
	key = strings.TrimSpace(key)

	switch {
	case urlChanged && keyChanged:
		return credentials.SetBoth(endpoint, key), nil
	case urlChanged:
		return credentials.SetEndpoint(endpoint), nil
	default:
		return credentials.SetAPIKey(key), nil
	}
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return nil
}

// promptSecret reads a line from the terminal without echo
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--api-key - needs an interactive terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return string(secret), nil
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", 8) + key[len(key)-4:]
}

func runConfigClear(cmd *cobra.Command, args []string) error {
	if !assumeYes && !ui.Confirm(os.Stdin, os.Stdout, "Clear stored credentials",
		"The door endpoint and API key are removed",
		"A running door screen disconnects") {
		return nil
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Clear(); err != nil {
		return err
	}
	ui.NewPrinter(os.Stdout).PrintSuccess("Credentials cleared")
	return nil
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find door controllers on the local network",
	Long: `Browse the local network for door controllers advertising ` + discovery.ServiceType + ` over mDNS.

garage-sim --advertise publishes a simulator this way.`,
	Example: `  # Scan for 5 seconds (default)
  garagectl discover

  # Scan longer and save the first door found as the endpoint
  garagectl discover --timeout 10s --save 1`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "Scan timeout (default: discovery.timeout preference)")
	discoverCmd.Flags().IntVar(&saveIndex, "save", 0, "Save the endpoint of the Nth door found")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	scanner := discovery.NewScanner()
	scanner.Timeout = cfg.Discovery.Timeout
	if scanTimeout > 0 {
		scanner.Timeout = scanTimeout
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.Println(ui.SubtitleStyle.Render(fmt.Sprintf("Scanning for door controllers (timeout: %s)...", scanner.Timeout)))

	ctx, stop := signalContext()
	defer stop()

	devices, err := scanner.Scan(ctx)
	if err != nil {
		printer.PrintError("Scan failed", err)
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		printer.PrintResult(&ui.Result{
			Type:  ui.ResultWarning,
			Title: "No door controllers found",
			Troubleshooting: []string{
				"Ensure the controller is powered and on this network",
				"Start a simulator with: garage-sim --advertise",
				"Try increasing --timeout for slower networks",
				"Set the endpoint manually: garagectl config set --url <endpoint>",
			},
		})
		return nil
	}

	details := make([]ui.Detail, 0, len(devices))
	for i, d := range devices {
		details = append(details, ui.Detail{Key: fmt.Sprintf("%d", i+1), Value: d.String()})
	}
	printer.PrintSuccess(fmt.Sprintf("Found %d door controller(s)", len(devices)), details...)

	if saveIndex == 0 {
		printer.Println(ui.SubtitleStyle.Render("Use 'garagectl discover --save N' to store an endpoint"))
		return nil
	}
	if saveIndex < 1 || saveIndex > len(devices) {
		return fmt.Errorf("--save %d: only %d door controller(s) found", saveIndex, len(devices))
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	endpoint := devices[saveIndex-1].Endpoint()
	if err := store.Set(credentials.SetEndpoint(endpoint)); err != nil {
		return err
	}

	tips := []ui.Detail{{Key: "Endpoint", Value: endpoint}}
	if store.Get().APIKey == "" {
		tips = append(tips, ui.Detail{Key: "Next", Value: "garagectl config set --api-key -"})
	}
	printer.PrintSuccess("Endpoint saved", tips...)
	return nil
}
