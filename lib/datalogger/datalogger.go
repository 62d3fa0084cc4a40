package datalogger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for Options
const (
	DefaultPort         = "auto"
	DefaultRemoteDir    = "sd/"
	DefaultMetadataName = "info.json"
	DefaultDataDir      = "data"

	DefaultReadSDScript  = "read_sd.py"
	DefaultReadRTCScript = "read_rtc_time.py"
	DefaultSetRTCScript  = "set_rtc_time.py"
)

// ErrInvalidInterval is returned for a non-positive retry interval
var ErrInvalidInterval = errors.New("interval must be positive")

// Timeouts bounds each kind of invocation
type Timeouts struct {
	List     time.Duration
	Download time.Duration
	Clock    time.Duration
	SetClock time.Duration
	Upload   time.Duration
	Check    time.Duration
	Reset    time.Duration
}

// DefaultTimeouts returns the stock time bounds
func DefaultTimeouts() Timeouts {
	return Timeouts{
		List:     15 * time.Second,
		Download: 30 * time.Second,
		Clock:    10 * time.Second,
		SetClock: 10 * time.Second,
		Upload:   10 * time.Second,
		Check:    5 * time.Second,
		Reset:    10 * time.Second,
	}
}

// Scripts are host-side MicroPython helpers run on the device
type Scripts struct {
	ReadSD  string // Mounts the SD card
	ReadRTC string // Prints the RTC time
	SetRTC  string // Commits the synced time to the external RTC
}

// Options configures a Datalogger. Zero fields take their defaults.
type Options struct {
	Port         string // Port passed to "connect" (auto, /dev/ttyACM0, COM3...)
	RemoteDir    string // SD card directory on the device
	MetadataName string // Remote name of the uploaded metadata document
	DataDir      string // Local directory for downloads
	Scripts      Scripts
	Timeouts     Timeouts
	Logger       *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Port == "" {
		o.Port = DefaultPort
	}
	if o.RemoteDir == "" {
		o.RemoteDir = DefaultRemoteDir
	}
	if !strings.HasSuffix(o.RemoteDir, "/") {
		o.RemoteDir += "/"
	}
	if o.MetadataName == "" {
		o.MetadataName = DefaultMetadataName
	}
	if o.DataDir == "" {
		o.DataDir = DefaultDataDir
	}
	if o.Scripts.ReadSD == "" {
		o.Scripts.ReadSD = DefaultReadSDScript
	}
	if o.Scripts.ReadRTC == "" {
		o.Scripts.ReadRTC = DefaultReadRTCScript
	}
	if o.Scripts.SetRTC == "" {
		o.Scripts.SetRTC = DefaultSetRTCScript
	}

	def := DefaultTimeouts()
	setDefault := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	setDefault(&o.Timeouts.List, def.List)
	setDefault(&o.Timeouts.Download, def.Download)
	setDefault(&o.Timeouts.Clock, def.Clock)
	setDefault(&o.Timeouts.SetClock, def.SetClock)
	setDefault(&o.Timeouts.Upload, def.Upload)
	setDefault(&o.Timeouts.Check, def.Check)
	setDefault(&o.Timeouts.Reset, def.Reset)

	return o
}

// Datalogger is the command façade for a data logger reached through the
// device-management tool
type Datalogger struct {
	runner Runner
	opts   Options
	log    zerolog.Logger
}

// New creates a Datalogger that invokes the tool through runner
func New(runner Runner, opts Options) *Datalogger {
	opts = opts.withDefaults()

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Datalogger{
		runner: runner,
		opts:   opts,
		log:    logger.With().Str("port", opts.Port).Logger(),
	}
}

// Options returns the effective options
func (d *Datalogger) Options() Options {
	return d.opts
}

// run invokes the tool once with a bounded wait and classifies the result
func (d *Datalogger) run(ctx context.Context, timeout time.Duration, args ...string) Result {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append([]string{"connect", d.opts.Port}, args...)

	start := time.Now()
	res := classify(d.runner.Run(ctx, argv...))

	d.log.Debug().
		Strs("args", argv).
		Dur("took", time.Since(start)).
		Int("exit", res.ExitCode).
		Stringer("kind", res.Kind).
		Msg("device command")

	return res
}

// Listing is the result of a remote directory listing
type Listing struct {
	Result
	Files []File
}

// ListFiles lists the files on the SD card
func (d *Datalogger) ListFiles(ctx context.Context) Listing {
	res := d.run(ctx, d.opts.Timeouts.List,
		"run", d.opts.Scripts.ReadSD, "fs", "ls", d.opts.RemoteDir)
	if !res.OK() {
		return Listing{Result: res}
	}

	return Listing{
		Result: res,
		Files:  parseListing(res.Stdout, d.opts.RemoteDir),
	}
}

// DownloadFile copies one SD card file into the local data directory under
// the same name
func (d *Datalogger) DownloadFile(ctx context.Context, name string) Result {
	if err := validateFileName(name); err != nil {
		return invalid(err)
	}

	if err := os.MkdirAll(d.opts.DataDir, 0o755); err != nil {
		return Result{Kind: KindToolError, ExitCode: -1, Err: fmt.Errorf("failed to create data directory: %w", err)}
	}

	return d.run(ctx, d.opts.Timeouts.Download,
		"run", d.opts.Scripts.ReadSD,
		"cp", ":"+d.opts.RemoteDir+name, filepath.Join(d.opts.DataDir, name))
}

func validateFileName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return &ValidationError{Field: "file name", Value: name, Err: ErrInvalidFileName}
	}
	return nil
}

// LocalPath returns where a downloaded file is stored
func (d *Datalogger) LocalPath(name string) string {
	return filepath.Join(d.opts.DataDir, name)
}

// BatchOutcome summarizes a multi-file download
type BatchOutcome int

const (
	BatchEmpty    BatchOutcome = iota // Nothing was requested
	BatchComplete                     // Every file downloaded
	BatchPartial                      // Some files downloaded, some failed
	BatchFailed                       // Every file failed
)

// String returns a string representation of the outcome
func (o BatchOutcome) String() string {
	switch o {
	case BatchEmpty:
		return "empty"
	case BatchComplete:
		return "complete"
	case BatchPartial:
		return "partial"
	case BatchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText lets BatchOutcome appear by name in JSON output
func (o BatchOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// FileFailure records why one file of a batch failed
type FileFailure struct {
	Name   string
	Result Result
}

// BatchResult holds the independent outcome of every file in a batch
type BatchResult struct {
	Succeeded []string
	Failed    []FileFailure
}

// Outcome classifies the batch as a whole
func (b BatchResult) Outcome() BatchOutcome {
	switch {
	case len(b.Succeeded) == 0 && len(b.Failed) == 0:
		return BatchEmpty
	case len(b.Failed) == 0:
		return BatchComplete
	case len(b.Succeeded) == 0:
		return BatchFailed
	default:
		return BatchPartial
	}
}

// DownloadFiles downloads each file independently. onDone, if not nil, is
// called after each file. A canceled context stops the batch; the remaining
// files are reported as canceled.
func (d *Datalogger) DownloadFiles(ctx context.Context, names []string, onDone func(name string, res Result)) BatchResult {
	var batch BatchResult

	for _, name := range names {
		var res Result
		if ctx.Err() != nil {
			res = Result{Kind: KindCanceled, Canceled: true, Err: ctx.Err()}
		} else {
			res = d.DownloadFile(ctx, name)
		}

		if res.OK() {
			batch.Succeeded = append(batch.Succeeded, name)
		} else {
			batch.Failed = append(batch.Failed, FileFailure{Name: name, Result: res})
		}

		if onDone != nil {
			onDone(name, res)
		}
	}

	return batch
}

// ClockReading is the device RTC time
type ClockReading struct {
	Result
	Hours   int
	Minutes int
	Seconds int
}

// String formats the reading as HH:MM:SS
func (c ClockReading) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
}

// ReadClock reads the device RTC
func (d *Datalogger) ReadClock(ctx context.Context) ClockReading {
	res := d.run(ctx, d.opts.Timeouts.Clock, "run", d.opts.Scripts.ReadRTC)
	if !res.OK() {
		return ClockReading{Result: res}
	}

	h, m, s, err := parseClock(res.Stdout)
	if err != nil {
		res.Kind = KindParseError
		res.Err = err
		return ClockReading{Result: res}
	}

	return ClockReading{Result: res, Hours: h, Minutes: m, Seconds: s}
}

// SetClock syncs the device clock to the host and commits it with the
// set-RTC script. The script is not run if the sync fails.
func (d *Datalogger) SetClock(ctx context.Context) Result {
	res := d.run(ctx, d.opts.Timeouts.SetClock, "rtc", "--set")
	if !res.OK() {
		return res
	}

	return d.run(ctx, d.opts.Timeouts.SetClock, "run", d.opts.Scripts.SetRTC)
}

// UploadMetadata writes m to the device under the metadata name. The
// temporary local copy is always removed.
func (d *Datalogger) UploadMetadata(ctx context.Context, m *SensorMetadata) Result {
	data, err := m.JSON()
	if err != nil {
		return invalid(err)
	}

	tmp, err := os.CreateTemp("", "datalogger-*.json")
	if err != nil {
		return Result{Kind: KindToolError, ExitCode: -1, Err: fmt.Errorf("failed to create temporary file: %w", err)}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Result{Kind: KindToolError, ExitCode: -1, Err: fmt.Errorf("failed to write temporary file: %w", err)}
	}

	return d.run(ctx, d.opts.Timeouts.Upload, "cp", tmpName, ":"+d.opts.MetadataName)
}

// Probe runs the connection check and returns its result. A tool that
// exits cleanly without printing the marker yields KindParseError.
func (d *Datalogger) Probe(ctx context.Context) Result {
	res := d.run(ctx, d.opts.Timeouts.Check, "exec", `print("connected")`)
	if res.OK() && !isConnected(res.Stdout) {
		res.Kind = KindParseError
	}
	return res
}

// CheckConnection reports whether a device answers a trivial command
func (d *Datalogger) CheckConnection(ctx context.Context) bool {
	return d.Probe(ctx).OK()
}

// SoftReset soft-resets the device
func (d *Datalogger) SoftReset(ctx context.Context) Result {
	return d.run(ctx, d.opts.Timeouts.Reset, "soft-reset")
}

// WaitForDevice soft-resets the device every interval until it stops
// reporting that no device is attached. It returns the first such result,
// or a canceled result when ctx is done first.
func (d *Datalogger) WaitForDevice(ctx context.Context, interval time.Duration, onRetry func(attempt int)) Result {
	if interval <= 0 {
		return invalid(fmt.Errorf("%w: %v", ErrInvalidInterval, interval))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		res := d.SoftReset(ctx)
		if res.Kind != KindDeviceNotFound {
			return res
		}

		if onRetry != nil {
			onRetry(attempt)
		}

		select {
		case <-ctx.Done():
			return Result{Kind: KindCanceled, Canceled: true, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}
