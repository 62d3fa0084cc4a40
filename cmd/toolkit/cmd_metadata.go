package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	metadataForm    datalogger.Form
	metadataOutFlag string
	toDeviceFlag    bool
	yesFlag         bool
	fromFileFlag    string
)

var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Generate, import and upload the deployment metadata file",
}

var metadataGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the metadata file and save it locally and/or on the device",
	Long: `Generate the deployment metadata JSON document.

Blank fields are saved as 9999 to mark them as intentionally unset. The
device name must not contain spaces; use underscores instead, e.g.
'Temperature_Sensor_01'.

With --device the document is uploaded as info.json. The device must be
connected; this is checked before uploading.`,
	Run: func(cmd *cobra.Command, args []string) {
		if metadataOutFlag == "" && !toDeviceFlag {
			fmt.Fprintf(os.Stderr, "Error: --out and/or --device is required\n")
			cmd.Usage()
			os.Exit(1)
		}
		form := metadataForm
		if fromFileFlag != "" {
			form = mergeImportedForm(cmd, form, fromFileFlag)
		}
		executeMetadataGenerate(cmd, newDevice(), form, metadataOutFlag, toDeviceFlag, yesFlag)
	},
}

var metadataImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Show the form fields stored in a metadata file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		executeMetadataImport(args[0])
	},
}

func init() {
	f := metadataGenerateCmd.Flags()
	f.StringVar(&metadataForm.Latitude, "latitude", "", "Latitude, e.g. 40.7128")
	f.StringVar(&metadataForm.Longitude, "longitude", "", "Longitude, e.g. -74.0060")
	f.StringVar(&metadataForm.NamedLocation, "location", "", "Named location")
	f.StringVar(&metadataForm.DeviceName, "name", "", "Device name (no spaces)")
	f.StringVar(&metadataForm.Description, "description", "", "Description")
	f.StringVar(&metadataForm.Timestep, "timestep", "", "Sampling interval")
	f.StringVarP(&metadataOutFlag, "out", "o", "", "Save the document to this file")
	f.BoolVar(&toDeviceFlag, "device", false, "Upload the document to the device")
	f.BoolVarP(&yesFlag, "yes", "y", false, "Do not ask before saving blank fields as 9999")
	f.StringVar(&fromFileFlag, "from", "", "Prefill fields from an existing metadata file")

	metadataCmd.AddCommand(metadataGenerateCmd)
	metadataCmd.AddCommand(metadataImportCmd)
	rootCmd.AddCommand(metadataCmd)
}

// mergeImportedForm prefills fields the user did not pass on the command
// line from an existing document
func mergeImportedForm(cmd *cobra.Command, form datalogger.Form, path string) datalogger.Form {
	m, err := datalogger.ReadMetadataFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", path, err)
		os.Exit(1)
	}
	imported := datalogger.FormFromMetadata(m)

	flags := cmd.Flags()
	for _, field := range []struct {
		flag string
		dst  *string
		src  string
	}{
		{"latitude", &form.Latitude, imported.Latitude},
		{"longitude", &form.Longitude, imported.Longitude},
		{"location", &form.NamedLocation, imported.NamedLocation},
		{"name", &form.DeviceName, imported.DeviceName},
		{"description", &form.Description, imported.Description},
		{"timestep", &form.Timestep, imported.Timestep},
	} {
		if !flags.Changed(field.flag) {
			*field.dst = field.src
		}
	}
	return form
}

// errAborted is returned when the user declines to save blank fields
var errAborted = errors.New("aborted")

// resultError carries a failed device result out of generateMetadata
type resultError struct {
	what string
	res  datalogger.Result
}

func (e *resultError) Error() string {
	return fmt.Sprintf("%s: %s", e.what, e.res.Message())
}

// generateMetadata builds the document and saves and/or uploads it. The
// form is validated, and blank fields accepted, before any device command
// runs. With upload the device is checked before anything is written.
func generateMetadata(ctx context.Context, device *datalogger.Datalogger, form datalogger.Form, outPath string, upload bool, acceptMissing func(missing []string) bool) error {
	metadata, err := form.Build(time.Now())
	if err != nil {
		return err
	}

	if missing := form.Missing(); len(missing) > 0 && !acceptMissing(missing) {
		return errAborted
	}

	if upload {
		if res := device.Probe(ctx); !res.OK() {
			return &resultError{what: "checking device connection", res: res}
		}
	}

	if outPath != "" {
		if err := metadata.WriteFile(outPath); err != nil {
			return err
		}
		fmt.Printf("JSON file saved successfully: %s\n", outPath)
	}

	if upload {
		if res := device.UploadMetadata(ctx, metadata); !res.OK() {
			return &resultError{what: "uploading to device", res: res}
		}
		fmt.Printf("JSON file uploaded to device successfully. Saved as '%s' on the device.\n", device.Options().MetadataName)
	}

	return nil
}

// executeMetadataGenerate runs generateMetadata and exits on failure
func executeMetadataGenerate(cmd *cobra.Command, device *datalogger.Datalogger, form datalogger.Form, outPath string, upload, assumeYes bool) {
	err := generateMetadata(cmd.Context(), device, form, outPath, upload, func(missing []string) bool {
		fmt.Fprintf(os.Stderr, "The following fields are empty: %s\n", strings.Join(missing, ", "))
		fmt.Fprintf(os.Stderr, "Missing values will be saved as '%s'.\n", datalogger.SentinelText)
		return assumeYes || confirm("Do you want to continue generating the JSON file?")
	})

	var resErr *resultError
	switch {
	case err == nil:
	case errors.As(err, &resErr):
		exitOnFailure(resErr.what, resErr.res)
	case errors.Is(err, errAborted):
		fmt.Fprintln(os.Stderr, "Aborted")
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// confirm asks a yes/no question on the terminal. Without a terminal the
// answer is no; pass --yes in scripts.
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Not a terminal, use --yes to accept blank fields")
		return false
	}

	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// executeMetadataImport prints the fields of a metadata file. Fields saved
// as 9999 are shown empty.
func executeMetadataImport(path string) {
	m, err := datalogger.ReadMetadataFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %s: %v\n", path, err)
		os.Exit(1)
	}

	form := datalogger.FormFromMetadata(m)
	fmt.Printf("Latitude:       %s\n", form.Latitude)
	fmt.Printf("Longitude:      %s\n", form.Longitude)
	fmt.Printf("Named Location: %s\n", form.NamedLocation)
	fmt.Printf("Device Name:    %s\n", form.DeviceName)
	fmt.Printf("Description:    %s\n", form.Description)
	fmt.Printf("Timestep:       %s\n", form.Timestep)
	if !m.GeneratedAt.IsZero() {
		fmt.Printf("Generated At:   %s\n", m.GeneratedAt.Format(time.RFC3339))
	}
}
