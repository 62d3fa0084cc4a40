// Package config loads toolkit settings from an INI file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/ini.v1"

	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
)

// Config holds toolkit settings.
//
// INI format:
//
//	[device]
//	tool = mpremote
//	port = auto
//
//	[scripts]
//	read_sd = read_sd.py
//	read_rtc = read_rtc_time.py
//	set_rtc = set_rtc_time.py
//
//	[storage]
//	remote_dir = sd/
//	metadata_name = info.json
//	data_dir = data
//
//	[timeouts]
//	list = 15s
//	download = 30s
//	clock = 10s
//	set_clock = 10s
//	upload = 10s
//	check = 5s
//	reset = 10s
//
//	[web]
//	address = localhost
//	port = 8080
type Config struct {
	Tool string
	Port string

	Scripts datalogger.Scripts

	RemoteDir    string
	MetadataName string
	DataDir      string

	Timeouts datalogger.Timeouts

	WebAddress string
	WebPort    string
}

// ErrInvalidTimeout is returned when a timeout is not positive
var ErrInvalidTimeout = errors.New("timeouts must be positive")

// DefaultPath returns the default config file location.
//   - Windows: %APPDATA%\picolog\toolkit.conf
//   - Unix: ~/.config/picolog/toolkit.conf
func DefaultPath() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "picolog", "toolkit.conf"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "picolog", "toolkit.conf"), nil
}

// New returns a Config with default values
func New() *Config {
	return &Config{
		Tool: datalogger.DefaultTool,
		Port: datalogger.DefaultPort,
		Scripts: datalogger.Scripts{
			ReadSD:  datalogger.DefaultReadSDScript,
			ReadRTC: datalogger.DefaultReadRTCScript,
			SetRTC:  datalogger.DefaultSetRTCScript,
		},
		RemoteDir:    datalogger.DefaultRemoteDir,
		MetadataName: datalogger.DefaultMetadataName,
		DataDir:      datalogger.DefaultDataDir,
		Timeouts:     datalogger.DefaultTimeouts(),
		WebAddress:   "localhost",
		WebPort:      "8080",
	}
}

// Load reads the config file at path. An empty path means DefaultPath. A
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	device := file.Section("device")
	cfg.Tool = device.Key("tool").MustString(cfg.Tool)
	cfg.Port = device.Key("port").MustString(cfg.Port)

	scripts := file.Section("scripts")
	cfg.Scripts.ReadSD = scripts.Key("read_sd").MustString(cfg.Scripts.ReadSD)
	cfg.Scripts.ReadRTC = scripts.Key("read_rtc").MustString(cfg.Scripts.ReadRTC)
	cfg.Scripts.SetRTC = scripts.Key("set_rtc").MustString(cfg.Scripts.SetRTC)

	storage := file.Section("storage")
	cfg.RemoteDir = storage.Key("remote_dir").MustString(cfg.RemoteDir)
	cfg.MetadataName = storage.Key("metadata_name").MustString(cfg.MetadataName)
	cfg.DataDir = storage.Key("data_dir").MustString(cfg.DataDir)

	timeouts := file.Section("timeouts")
	cfg.Timeouts.List = timeouts.Key("list").MustDuration(cfg.Timeouts.List)
	cfg.Timeouts.Download = timeouts.Key("download").MustDuration(cfg.Timeouts.Download)
	cfg.Timeouts.Clock = timeouts.Key("clock").MustDuration(cfg.Timeouts.Clock)
	cfg.Timeouts.SetClock = timeouts.Key("set_clock").MustDuration(cfg.Timeouts.SetClock)
	cfg.Timeouts.Upload = timeouts.Key("upload").MustDuration(cfg.Timeouts.Upload)
	cfg.Timeouts.Check = timeouts.Key("check").MustDuration(cfg.Timeouts.Check)
	cfg.Timeouts.Reset = timeouts.Key("reset").MustDuration(cfg.Timeouts.Reset)

	web := file.Section("web")
	cfg.WebAddress = web.Key("address").MustString(cfg.WebAddress)
	cfg.WebPort = web.Key("port").MustString(cfg.WebPort)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	for _, d := range []time.Duration{
		c.Timeouts.List, c.Timeouts.Download, c.Timeouts.Clock,
		c.Timeouts.SetClock, c.Timeouts.Upload, c.Timeouts.Check, c.Timeouts.Reset,
	} {
		if d <= 0 {
			return ErrInvalidTimeout
		}
	}
	return nil
}

// Save writes the config to path, creating parent directories
func (c *Config) Save(path string) error {
	file := ini.Empty()

	device := file.Section("device")
	device.Key("tool").SetValue(c.Tool)
	device.Key("port").SetValue(c.Port)

	scripts := file.Section("scripts")
	scripts.Key("read_sd").SetValue(c.Scripts.ReadSD)
	scripts.Key("read_rtc").SetValue(c.Scripts.ReadRTC)
	scripts.Key("set_rtc").SetValue(c.Scripts.SetRTC)

	storage := file.Section("storage")
	storage.Key("remote_dir").SetValue(c.RemoteDir)
	storage.Key("metadata_name").SetValue(c.MetadataName)
	storage.Key("data_dir").SetValue(c.DataDir)

	timeouts := file.Section("timeouts")
	timeouts.Key("list").SetValue(c.Timeouts.List.String())
	timeouts.Key("download").SetValue(c.Timeouts.Download.String())
	timeouts.Key("clock").SetValue(c.Timeouts.Clock.String())
	timeouts.Key("set_clock").SetValue(c.Timeouts.SetClock.String())
	timeouts.Key("upload").SetValue(c.Timeouts.Upload.String())
	timeouts.Key("check").SetValue(c.Timeouts.Check.String())
	timeouts.Key("reset").SetValue(c.Timeouts.Reset.String())

	web := file.Section("web")
	web.Key("address").SetValue(c.WebAddress)
	web.Key("port").SetValue(c.WebPort)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Options converts the config into datalogger options
func (c *Config) Options() datalogger.Options {
	return datalogger.Options{
		Port:         c.Port,
		RemoteDir:    c.RemoteDir,
		MetadataName: c.MetadataName,
		DataDir:      c.DataDir,
		Scripts:      c.Scripts,
		Timeouts:     c.Timeouts,
	}
}
