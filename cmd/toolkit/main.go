package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/skgsergio/picolog-toolkit/internal/config"
	"github.com/skgsergio/picolog-toolkit/internal/logging"
	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	portFlag    string
	toolFlag    string
	configFlag  string
	verboseFlag bool

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datalogger-toolkit",
	Short: "Datalogger Toolkit - MicroPython data logger interface",
	Long: `Datalogger Toolkit manages a MicroPython data logger through mpremote.
You can read and set the device clock, list and download files from the
SD card, and generate or upload the deployment metadata file (info.json).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewCLI(verboseFlag)

		loaded, err := config.Load(configFlag)
		if err != nil {
			return err
		}
		cfg = loaded

		if cmd.Flags().Changed("port") {
			cfg.Port = portFlag
		}
		if cmd.Flags().Changed("tool") {
			cfg.Tool = toolFlag
		}
		return nil
	},
}

func init() {
	// Disable the default help command (use --help flag instead)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// Global flags (available to all commands)
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", datalogger.DefaultPort, "Device port passed to mpremote connect (auto, /dev/ttyACM0, COM3...)")
	rootCmd.PersistentFlags().StringVar(&toolFlag, "tool", datalogger.DefaultTool, "Device-management tool executable")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file path (default ~/.config/picolog/toolkit.conf)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show every device command")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newDevice builds the device façade from the loaded config
func newDevice() *datalogger.Datalogger {
	return newDeviceWithRunner(datalogger.NewExecRunner(cfg.Tool))
}

func newDeviceWithRunner(runner datalogger.Runner) *datalogger.Datalogger {
	opts := cfg.Options()
	opts.Logger = &logger
	return datalogger.New(runner, opts)
}

// exitOnFailure prints a failed result and exits. "No device" gets a hint
// since it is the common case.
func exitOnFailure(what string, res datalogger.Result) {
	if res.OK() {
		return
	}

	fmt.Fprintf(os.Stderr, "Error %s: %s\n", what, res.Message())
	if res.Kind == datalogger.KindDeviceNotFound {
		fmt.Fprintf(os.Stderr, "Check that the data logger is plugged in (see 'datalogger-toolkit ports').\n")
	}
	os.Exit(1)
}

// checkInterval rejects a non-positive duration flag
func checkInterval(flag string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("--%s must be positive, got %v", flag, d)
	}
	return nil
}

// exitOnBadInterval prints a checkInterval error and exits
func exitOnBadInterval(flag string, d time.Duration) {
	if err := checkInterval(flag, d); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
