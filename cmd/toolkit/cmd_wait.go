package main

import (
	"fmt"
	"time"

	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
	"github.com/spf13/cobra"
)

var waitIntervalFlag time.Duration

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Soft-reset the device, retrying until one is connected",
	Run: func(cmd *cobra.Command, args []string) {
		exitOnBadInterval("interval", waitIntervalFlag)
		executeWait(cmd, newDevice(), waitIntervalFlag)
	},
}

func init() {
	waitCmd.Flags().DurationVarP(&waitIntervalFlag, "interval", "i", time.Second, "Retry interval")
	rootCmd.AddCommand(waitCmd)
}

// executeWait blocks until a device answers the soft reset
func executeWait(cmd *cobra.Command, device *datalogger.Datalogger, interval time.Duration) {
	fmt.Println("Waiting for device (press Ctrl+C to stop)...")

	res := device.WaitForDevice(cmd.Context(), interval, func(attempt int) {
		logger.Info().Int("attempt", attempt).Msg("no device found")
	})
	exitOnFailure("waiting for device", res)

	fmt.Println("Device soft reset, ready to work")
}
