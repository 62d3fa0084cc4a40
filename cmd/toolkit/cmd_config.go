package main

import (
	"fmt"
	"os"

	"github.com/skgsergio/picolog-toolkit/internal/config"
	"github.com/spf13/cobra"
)

var configForceFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath()
		fmt.Printf("Config file: %s\n\n", path)
		fmt.Printf("Tool:          %s\n", cfg.Tool)
		fmt.Printf("Port:          %s\n", cfg.Port)
		fmt.Printf("Remote dir:    %s\n", cfg.RemoteDir)
		fmt.Printf("Metadata name: %s\n", cfg.MetadataName)
		fmt.Printf("Data dir:      %s\n", cfg.DataDir)
		fmt.Printf("Scripts:       %s, %s, %s\n", cfg.Scripts.ReadSD, cfg.Scripts.ReadRTC, cfg.Scripts.SetRTC)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the config file",
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath()
		if _, err := os.Stat(path); err == nil && !configForceFlag {
			fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", path)
			os.Exit(1)
		}
		if err := cfg.Save(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", path)
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForceFlag, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	path, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return path
}
