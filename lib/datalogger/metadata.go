package datalogger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Sentinel values marking a field the user intentionally left unset
const (
	SentinelNumber = 9999
	SentinelText   = "9999"
)

// Validation errors
var (
	ErrDeviceNameWhitespace = errors.New("device name must not contain whitespace, use underscores instead")
	ErrInvalidCoordinate    = errors.New("must be a valid number")
	ErrInvalidFileName      = errors.New("file name must not contain path separators")
)

// ValidationError reports a field rejected before any device call
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Coordinate is a latitude or longitude that may be unset
type Coordinate struct {
	Value float64
	Set   bool
}

// Coord returns a set coordinate
func Coord(v float64) Coordinate {
	return Coordinate{Value: v, Set: true}
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte(strconv.Itoa(SentinelNumber)), nil
	}
	return json.Marshal(c.Value)
}

// UnmarshalJSON accepts a number, a numeric string or the sentinel in
// either form
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	*c = Coordinate{}

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw json.Number
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || s == SentinelText {
			return nil
		}
		raw = json.Number(s)
	} else {
		raw = json.Number(data)
	}

	v, err := raw.Float64()
	if err != nil {
		return fmt.Errorf("invalid coordinate %s: %w", string(data), err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid coordinate %s: %w", string(data), ErrInvalidCoordinate)
	}
	if v == SentinelNumber {
		return nil
	}

	c.Value = v
	c.Set = true
	return nil
}

// String returns the coordinate as typed in a form, or "" if unset
func (c Coordinate) String() string {
	if !c.Set {
		return ""
	}
	return strconv.FormatFloat(c.Value, 'f', -1, 64)
}

// Text is a free-form metadata field; the empty value means unset
type Text string

func (t Text) MarshalJSON() ([]byte, error) {
	if t == "" {
		return json.Marshal(SentinelText)
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON accepts strings and numbers (older documents stored the
// timestep as a number)
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""

	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid text field %s: %w", string(data), err)
		}
		s = n.String()
	}

	if s == SentinelText {
		return nil
	}

	*t = Text(s)
	return nil
}

// Timestamp is an ISO-8601 time
type Timestamp struct {
	time.Time
}

// Layouts accepted when reading generated_at
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.Time.Format(time.RFC3339Nano))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid generated_at: %w", err)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			ts.Time = t
			return nil
		}
	}

	return fmt.Errorf("invalid generated_at %q", s)
}

// SensorMetadata describes a sensor deployment. It is written to the device
// as info.json.
type SensorMetadata struct {
	Latitude      Coordinate `json:"latitude"`
	Longitude     Coordinate `json:"longitude"`
	NamedLocation Text       `json:"named_location"`
	DeviceName    Text       `json:"device_name"`
	Description   Text       `json:"description"`
	Timestep      Text       `json:"timestep"`
	GeneratedAt   Timestamp  `json:"generated_at"`
}

// Validate checks the invariants that must hold before serialization
func (m *SensorMetadata) Validate() error {
	if strings.ContainsFunc(string(m.DeviceName), unicode.IsSpace) {
		return &ValidationError{Field: "device name", Value: string(m.DeviceName), Err: ErrDeviceNameWhitespace}
	}
	return nil
}

// JSON returns the indented JSON document
func (m *SensorMetadata) JSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// WriteFile saves the document to path
func (m *SensorMetadata) WriteFile(path string) error {
	data, err := m.JSON()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// ParseMetadata decodes a metadata document
func ParseMetadata(data []byte) (*SensorMetadata, error) {
	var m SensorMetadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid metadata document: %w", err)
	}
	return &m, nil
}

// ReadMetadataFile loads a metadata document from path
func ReadMetadataFile(path string) (*SensorMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	return ParseMetadata(data)
}

// Form holds metadata fields exactly as a user typed them
type Form struct {
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
	NamedLocation string `json:"named_location"`
	DeviceName    string `json:"device_name"`
	Description   string `json:"description"`
	Timestep      string `json:"timestep"`
}

// trimmed returns a copy with surrounding whitespace removed
func (f Form) trimmed() Form {
	return Form{
		Latitude:      strings.TrimSpace(f.Latitude),
		Longitude:     strings.TrimSpace(f.Longitude),
		NamedLocation: strings.TrimSpace(f.NamedLocation),
		DeviceName:    strings.TrimSpace(f.DeviceName),
		Description:   strings.TrimSpace(f.Description),
		Timestep:      strings.TrimSpace(f.Timestep),
	}
}

// Missing returns the labels of blank fields. Those fields will be saved
// as the sentinel.
func (f Form) Missing() []string {
	f = f.trimmed()

	var missing []string
	for _, field := range []struct {
		label, value string
	}{
		{"Latitude", f.Latitude},
		{"Longitude", f.Longitude},
		{"Named Location", f.NamedLocation},
		{"Device Name", f.DeviceName},
		{"Description", f.Description},
		{"Timestep", f.Timestep},
	} {
		if field.value == "" {
			missing = append(missing, field.label)
		}
	}
	return missing
}

// Build validates the form and assembles a metadata record stamped with now
func (f Form) Build(now time.Time) (*SensorMetadata, error) {
	f = f.trimmed()

	m := &SensorMetadata{
		NamedLocation: Text(f.NamedLocation),
		DeviceName:    Text(f.DeviceName),
		Description:   Text(f.Description),
		Timestep:      Text(f.Timestep),
		GeneratedAt:   Timestamp{now},
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	var err error
	if m.Latitude, err = parseCoordinate("latitude", f.Latitude); err != nil {
		return nil, err
	}
	if m.Longitude, err = parseCoordinate("longitude", f.Longitude); err != nil {
		return nil, err
	}

	return m, nil
}

func parseCoordinate(field, s string) (Coordinate, error) {
	if s == "" {
		return Coordinate{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Coordinate{}, &ValidationError{Field: field, Value: s, Err: ErrInvalidCoordinate}
	}
	return Coord(v), nil
}

// FormFromMetadata converts a record back into form fields. Sentinel
// fields come back empty.
func FormFromMetadata(m *SensorMetadata) Form {
	return Form{
		Latitude:      m.Latitude.String(),
		Longitude:     m.Longitude.String(),
		NamedLocation: string(m.NamedLocation),
		DeviceName:    string(m.DeviceName),
		Description:   string(m.Description),
		Timestep:      string(m.Timestep),
	}
}
