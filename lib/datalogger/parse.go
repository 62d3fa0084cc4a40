package datalogger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Output grammar of the device-management tool. Everything that depends on
// the tool's text lives in this file.
const (
	NoDevicePhrase = "no device found"

	listingBannerPrefix = "ls :"
	connectedMarker     = "connected"
)

var digitsRe = regexp.MustCompile(`\d+`)

// classify fills in r.Kind from the raw invocation fields
func classify(r Result) Result {
	switch {
	case r.Canceled:
		r.Kind = KindCanceled
	case r.TimedOut:
		r.Kind = KindTimeout
	case containsNoDevice(r.Stdout) || containsNoDevice(r.Stderr):
		r.Kind = KindDeviceNotFound
	case r.Err != nil || r.ExitCode != 0:
		r.Kind = KindToolError
	default:
		r.Kind = KindSuccess
	}
	return r
}

func containsNoDevice(s string) bool {
	return strings.Contains(strings.ToLower(s), NoDevicePhrase)
}

// File is one entry of a remote directory listing
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size"` // -1 when the listing carries no size
}

// parseListing extracts file entries from a remote listing. remoteDir is
// the listed directory (e.g. "sd/"); its echo line is discarded and its
// prefix is stripped from entries.
func parseListing(out, remoteDir string) []File {
	dir := strings.TrimPrefix(remoteDir, ":")
	echo := ":" + dir

	files := make([]File, 0)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, listingBannerPrefix) || line == echo {
			continue
		}

		size := int64(-1)
		if fields := strings.Fields(line); len(fields) > 1 {
			if n, err := strconv.ParseInt(fields[0], 10, 64); err == nil {
				size = n
				line = strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
			}
		}

		line = strings.TrimPrefix(line, dir)
		if line == "" {
			continue
		}

		files = append(files, File{Name: line, Size: size})
	}

	return files
}

// parseClock takes the last three integer tokens of out as hours, minutes
// and seconds, in that order
func parseClock(out string) (h, m, s int, err error) {
	tokens := digitsRe.FindAllString(strings.TrimSpace(out), -1)
	if len(tokens) < 3 {
		return 0, 0, 0, fmt.Errorf("expected at least 3 numbers in clock output, got %d", len(tokens))
	}

	vals := make([]int, 3)
	for i, tok := range tokens[len(tokens)-3:] {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid clock token %q: %w", tok, err)
		}
		vals[i] = v
	}

	return vals[0], vals[1], vals[2], nil
}

// isConnected reports whether an echo probe printed the marker
func isConnected(out string) bool {
	return strings.Contains(out, connectedMarker)
}
