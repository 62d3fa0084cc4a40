package datalogger

import (
	"fmt"
	"strings"
)

// Kind classifies the outcome of a device operation
type Kind int

const (
	KindSuccess        Kind = iota // Operation completed
	KindDeviceNotFound             // Tool reported that no device is attached
	KindToolError                  // Non-zero exit or the tool could not be started
	KindTimeout                    // Invocation exceeded its time bound
	KindCanceled                   // Invocation was canceled by the caller
	KindParseError                 // Output did not match the expected grammar
	KindInvalid                    // Rejected locally before any invocation
)

// String returns a string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindDeviceNotFound:
		return "device-not-found"
	case KindToolError:
		return "tool-error"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	case KindParseError:
		return "parse-error"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// MarshalText lets Kind appear by name in JSON output
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindSuccess; c <= KindInvalid; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown result kind %q", string(text))
}

// Result is the outcome of one device operation. Every failure mode is
// represented here rather than returned as an error.
type Result struct {
	Kind     Kind
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Canceled bool
	Err      error
}

// OK reports whether the operation succeeded
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}

// Message returns a short user-facing description of the result
func (r Result) Message() string {
	switch r.Kind {
	case KindSuccess:
		return "ok"
	case KindDeviceNotFound:
		return "no device found"
	case KindTimeout:
		return "device communication timeout"
	case KindCanceled:
		return "canceled"
	case KindInvalid:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "invalid request"
	case KindParseError:
		out := strings.TrimSpace(r.Stdout)
		if out == "" {
			return "unexpected empty output"
		}
		return fmt.Sprintf("unexpected output: %s", out)
	default:
		if msg := r.diagnostic(); msg != "" {
			return msg
		}
		if r.Err != nil {
			return r.Err.Error()
		}
		return fmt.Sprintf("tool exited with status %d", r.ExitCode)
	}
}

// diagnostic picks the tool's own explanation, preferring stderr
func (r Result) diagnostic() string {
	if msg := strings.TrimSpace(r.Stderr); msg != "" {
		return msg
	}
	return strings.TrimSpace(r.Stdout)
}

// invalid builds a Result for a request rejected before dispatch
func invalid(err error) Result {
	return Result{Kind: KindInvalid, Err: err}
}
