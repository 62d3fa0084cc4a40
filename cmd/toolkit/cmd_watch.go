package main

import (
	"fmt"
	"time"

	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
	"github.com/spf13/cobra"
)

var (
	intervalFlag    time.Duration
	deviceEveryFlag int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously show computer time and device time",
	Run: func(cmd *cobra.Command, args []string) {
		exitOnBadInterval("interval", intervalFlag)
		executeWatch(cmd, newDevice(), intervalFlag, deviceEveryFlag)
	},
}

func init() {
	watchCmd.Flags().DurationVarP(&intervalFlag, "interval", "i", time.Second, "Refresh interval")
	watchCmd.Flags().IntVarP(&deviceEveryFlag, "device-every", "d", 5, "Read the device clock every N refreshes (0 disables)")
	rootCmd.AddCommand(watchCmd)
}

// executeWatch refreshes the computer clock every interval and the device
// clock every deviceEvery ticks until interrupted
func executeWatch(cmd *cobra.Command, device *datalogger.Datalogger, interval time.Duration, deviceEvery int) {
	fmt.Printf("Refreshing every %v (press Ctrl+C to stop)...\n\n", interval)

	ctx := cmd.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	deviceTime := "--:--:--"
	for tick := 0; ; tick++ {
		if deviceEvery > 0 && tick%deviceEvery == 0 {
			reading := device.ReadClock(ctx)
			if reading.OK() {
				deviceTime = reading.String()
			} else {
				deviceTime = reading.Message()
			}
		}

		fmt.Printf("\rComputer: %s | Device: %-30s", time.Now().Format("15:04:05"), deviceTime)

		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
		}
	}
}
