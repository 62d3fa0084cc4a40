package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
	"github.com/spf13/cobra"
)

var (
	filesJSONFlag bool
	getAllFlag    bool
	dataDirFlag   string
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List files on the device SD card",
	Run: func(cmd *cobra.Command, args []string) {
		executeFiles(cmd, newDevice(), filesJSONFlag)
	},
}

var filesGetCmd = &cobra.Command{
	Use:   "get [NAME...]",
	Short: "Download files from the device SD card",
	Long: `Download files from the device SD card into the data directory.

Each file is downloaded independently. The exit status is 0 when every
file was downloaded, 2 when only some were, and 1 when none were.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && !getAllFlag {
			fmt.Fprintf(os.Stderr, "Error: give file names or --all\n")
			cmd.Usage()
			os.Exit(1)
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = dataDirFlag
		}
		executeFilesGet(cmd, newDevice(), args, getAllFlag)
	},
}

func init() {
	filesCmd.Flags().BoolVarP(&filesJSONFlag, "json", "j", false, "Output in JSON format")
	filesGetCmd.Flags().BoolVarP(&getAllFlag, "all", "a", false, "Download every file on the SD card")
	filesGetCmd.Flags().StringVarP(&dataDirFlag, "data-dir", "d", datalogger.DefaultDataDir, "Local directory for downloaded files")
	filesCmd.AddCommand(filesGetCmd)
	rootCmd.AddCommand(filesCmd)
}

// executeFiles lists the SD card files
func executeFiles(cmd *cobra.Command, device *datalogger.Datalogger, jsonOutput bool) {
	listing := device.ListFiles(cmd.Context())
	exitOnFailure("listing SD card files", listing.Result)

	if jsonOutput {
		out, err := json.MarshalIndent(listing.Files, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	if len(listing.Files) == 0 {
		fmt.Println("No files found on SD card")
		return
	}

	// Print header
	fmt.Printf("%12s | %s\n", "Size (B)", "Name")
	fmt.Println("-------------+---------------------------")

	for _, f := range listing.Files {
		size := "-"
		if f.Size >= 0 {
			size = fmt.Sprintf("%d", f.Size)
		}
		fmt.Printf("%12s | %s\n", size, f.Name)
	}

	fmt.Printf("\nTotal files: %d\n", len(listing.Files))
}

// executeFilesGet downloads the named files, or all files, and reports
// every outcome
func executeFilesGet(cmd *cobra.Command, device *datalogger.Datalogger, names []string, all bool) {
	ctx := cmd.Context()

	if all {
		listing := device.ListFiles(ctx)
		exitOnFailure("listing SD card files", listing.Result)

		names = names[:0]
		for _, f := range listing.Files {
			names = append(names, f.Name)
		}
		if len(names) == 0 {
			fmt.Println("No files found on SD card")
			return
		}
	}

	bar := progressbar.NewOptions(len(names),
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	batch := device.DownloadFiles(ctx, names, func(name string, res datalogger.Result) {
		bar.Describe(name)
		_ = bar.Add(1)
		logger.Debug().Str("file", name).Stringer("kind", res.Kind).Msg("download finished")
	})

	dataDir := device.Options().DataDir

	switch batch.Outcome() {
	case datalogger.BatchComplete:
		fmt.Printf("Successfully downloaded %d file(s) to '%s':\n", len(batch.Succeeded), dataDir)
		printNames(batch.Succeeded)
	case datalogger.BatchPartial:
		fmt.Printf("Partial download: %d file(s) downloaded to '%s':\n", len(batch.Succeeded), dataDir)
		printNames(batch.Succeeded)
		fmt.Fprintf(os.Stderr, "\nFailed %d file(s):\n", len(batch.Failed))
		printFailures(batch.Failed)
		os.Exit(2)
	case datalogger.BatchFailed:
		fmt.Fprintf(os.Stderr, "Failed to download %d file(s):\n", len(batch.Failed))
		printFailures(batch.Failed)
		os.Exit(1)
	}
}

func printNames(names []string) {
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func printFailures(failures []datalogger.FileFailure) {
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Name, f.Result.Message())
	}
}
