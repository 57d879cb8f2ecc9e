package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// ErrorKind classifies capture failures.
type ErrorKind string

const (
	NotInitialized   ErrorKind = "not_initialized"
	PermissionDenied ErrorKind = "permission_denied"
	IOFailure        ErrorKind = "io_failure"
)

// ErrRecordingStopped is returned by CaptureVideo when the call toggled an
// active recording off instead of starting a new one.
var ErrRecordingStopped = errors.New("recording stop requested")

// Error is a classified capture failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the short user-facing description.
func (e *Error) Message() string {
	switch e.Kind {
	case NotInitialized:
		return "Camera not ready"
	case PermissionDenied:
		return "Camera permission denied"
	default:
		return "Capture failed"
	}
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var captureErr *Error
	if errors.As(err, &captureErr) {
		return err
	}
	kind := IOFailure
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = PermissionDenied
	case errors.Is(err, exec.ErrNotFound):
		kind = NotInitialized
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
