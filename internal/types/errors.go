package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrSessionCreate = errors.New("browser session could not be created")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrTaskPanic     = errors.New("task panicked")
	ErrNoInput       = errors.New("no input URLs")
)

// SessionError wraps a browser session construction failure.
type SessionError struct {
	Attempts int
	Err      error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("create session after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *SessionError) Unwrap() []error { return []error{ErrSessionCreate, e.Err} }

// TaskError wraps errors raised while driving or extracting a page.
type TaskError struct {
	URL   string
	Stage string
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed at %s: %v", e.URL, e.Stage, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// ProbeError records a transport failure during a status probe.
// The prober never returns it; it is logged and mapped to an unknown status.
type ProbeError struct {
	URL string
	Err error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.URL, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Path    string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage error (%s, %s): %v", e.Backend, e.Path, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
