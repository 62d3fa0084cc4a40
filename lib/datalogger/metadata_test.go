package datalogger

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestBuildBlankFormUsesSentinels(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	m, err := Form{}.Build(now)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := m.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	for _, key := range []string{"latitude", "longitude"} {
		if doc[key] != float64(SentinelNumber) {
			t.Errorf("%s: expected %d, got %v", key, SentinelNumber, doc[key])
		}
	}
	for _, key := range []string{"named_location", "device_name", "description", "timestep"} {
		if doc[key] != SentinelText {
			t.Errorf("%s: expected %q, got %v", key, SentinelText, doc[key])
		}
	}

	generated, ok := doc["generated_at"].(string)
	if !ok || generated == SentinelText {
		t.Fatalf("unexpected generated_at %v", doc["generated_at"])
	}
	if parsed, err := time.Parse(time.RFC3339Nano, generated); err != nil || !parsed.Equal(now) {
		t.Errorf("generated_at %q does not match %v", generated, now)
	}
}

func TestFormMissing(t *testing.T) {
	form := Form{Latitude: "1", DeviceName: "  ", Timestep: "60"}

	missing := form.Missing()
	want := []string{"Longitude", "Named Location", "Device Name", "Description"}
	if len(missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("expected %v, got %v", want, missing)
		}
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name  string
		form  Form
		field string
		err   error
	}{
		{"space in name", Form{DeviceName: "Temperature Sensor 01"}, "device name", ErrDeviceNameWhitespace},
		{"tab in name", Form{DeviceName: "a\tb"}, "device name", ErrDeviceNameWhitespace},
		{"bad latitude", Form{Latitude: "north"}, "latitude", ErrInvalidCoordinate},
		{"bad longitude", Form{Longitude: "1,5"}, "longitude", ErrInvalidCoordinate},
		{"NaN latitude", Form{Latitude: "NaN"}, "latitude", ErrInvalidCoordinate},
		{"infinite longitude", Form{Longitude: "-Inf"}, "longitude", ErrInvalidCoordinate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.form.Build(time.Now())
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}

			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Errorf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}
}

func TestBuildTrimsFields(t *testing.T) {
	m, err := Form{DeviceName: "  logger_01 ", Latitude: " 40.5 "}.Build(time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if m.DeviceName != "logger_01" {
		t.Errorf("unexpected device name %q", m.DeviceName)
	}
	if !m.Latitude.Set || m.Latitude.Value != 40.5 {
		t.Errorf("unexpected latitude %+v", m.Latitude)
	}
}

func TestMetadataFileRoundTrip(t *testing.T) {
	form := Form{
		Latitude:      "40.7128",
		Longitude:     "-74.006",
		NamedLocation: "Central Park",
		DeviceName:    "Temperature_Sensor_01",
		Description:   "",
		Timestep:      "300",
	}

	m, err := form.Build(time.Now())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	path := filepath.Join(t.TempDir(), "info.json")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loaded, err := ReadMetadataFile(path)
	if err != nil {
		t.Fatalf("ReadMetadataFile: %v", err)
	}

	if got := FormFromMetadata(loaded); got != form {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", form, got)
	}
	if !loaded.GeneratedAt.Equal(m.GeneratedAt.Time) {
		t.Errorf("generated_at mismatch: %v vs %v", loaded.GeneratedAt, m.GeneratedAt)
	}
}

func TestImportLegacyDocument(t *testing.T) {
	doc := `{
  "latitude": 9999,
  "longitude": "12.25",
  "named_location": "9999",
  "device_name": "logger_02",
  "description": "9999",
  "timestep": 60,
  "generated_at": "2024-05-01T12:30:45.123456"
}`

	m, err := ParseMetadata([]byte(doc))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}

	want := Form{Longitude: "12.25", DeviceName: "logger_02", Timestep: "60"}
	if got := FormFromMetadata(m); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if m.GeneratedAt.Year() != 2024 || m.GeneratedAt.Second() != 45 {
		t.Errorf("unexpected generated_at %v", m.GeneratedAt)
	}
}

func TestImportMissingKeys(t *testing.T) {
	m, err := ParseMetadata([]byte(`{"device_name": "x"}`))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	if got := FormFromMetadata(m); got != (Form{DeviceName: "x"}) {
		t.Errorf("unexpected form %+v", got)
	}
}

func TestParseMetadataInvalid(t *testing.T) {
	for _, doc := range []string{
		`not json`,
		`{"latitude": "north"}`,
		`{"longitude": "NaN"}`,
		`{"generated_at": "yesterday"}`,
	} {
		if _, err := ParseMetadata([]byte(doc)); err == nil {
			t.Errorf("expected error for %s", doc)
		}
	}
}
