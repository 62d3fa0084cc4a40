package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skgsergio/picolog-toolkit/lib/datalogger"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Tool != "mpremote" {
		t.Errorf("expected default tool mpremote, got %s", cfg.Tool)
	}
	if cfg.Port != "auto" {
		t.Errorf("expected default port auto, got %s", cfg.Port)
	}
	if cfg.Timeouts.Download != 30*time.Second {
		t.Errorf("expected default download timeout 30s, got %v", cfg.Timeouts.Download)
	}
	if cfg.MetadataName != "info.json" {
		t.Errorf("expected default metadata name info.json, got %s", cfg.MetadataName)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.conf"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *cfg != *New() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolkit.conf")
	content := `[device]
port = /dev/ttyACM1

[storage]
data_dir = /tmp/logs

[timeouts]
download = 1m
check = 2s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "/dev/ttyACM1" {
		t.Errorf("Port mismatch: got %s", cfg.Port)
	}
	if cfg.DataDir != "/tmp/logs" {
		t.Errorf("DataDir mismatch: got %s", cfg.DataDir)
	}
	if cfg.Timeouts.Download != time.Minute {
		t.Errorf("Download timeout mismatch: got %v", cfg.Timeouts.Download)
	}
	if cfg.Timeouts.Check != 2*time.Second {
		t.Errorf("Check timeout mismatch: got %v", cfg.Timeouts.Check)
	}

	// Untouched keys keep their defaults
	if cfg.Tool != "mpremote" {
		t.Errorf("Tool mismatch: got %s", cfg.Tool)
	}
	if cfg.Timeouts.List != 15*time.Second {
		t.Errorf("List timeout mismatch: got %v", cfg.Timeouts.List)
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolkit.conf")
	if err := os.WriteFile(path, []byte("[timeouts]\nclock = -1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidTimeout) {
		t.Fatalf("expected ErrInvalidTimeout, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "toolkit.conf")

	cfg := New()
	cfg.Port = "COM3"
	cfg.Scripts.ReadSD = "mount_sd.py"
	cfg.Timeouts.Upload = 45 * time.Second
	cfg.WebPort = "9090"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", cfg, loaded)
	}
}

func TestOptions(t *testing.T) {
	cfg := New()
	cfg.Port = "/dev/ttyUSB0"
	cfg.DataDir = "downloads"

	d := datalogger.New(nil, cfg.Options())
	opts := d.Options()

	if opts.Port != "/dev/ttyUSB0" || opts.DataDir != "downloads" {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Timeouts != cfg.Timeouts {
		t.Errorf("timeouts mismatch: %+v vs %+v", opts.Timeouts, cfg.Timeouts)
	}
}
