package main

import (
	"fmt"
	"os"

	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports that may host the data logger",
	Run: func(cmd *cobra.Command, args []string) {
		executePorts()
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

// executePorts lists serial ports, marking known MicroPython board vendors
func executePorts() {
	ports, err := datalogger.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return
	}

	fmt.Printf("%-20s | %-9s | %-14s | %s\n", "Port", "VID:PID", "Serial", "Board")
	fmt.Println("---------------------+-----------+----------------+------------------")

	for _, p := range ports {
		id := "-"
		if p.IsUSB {
			id = p.VID + ":" + p.PID
		}
		board := "-"
		if p.Likely() {
			board = p.Vendor + " (MicroPython?)"
		}
		fmt.Printf("%-20s | %-9s | %-14s | %s\n", p.Name, id, p.SerialNumber, board)
	}
}
