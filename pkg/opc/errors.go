package opc

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrNotConnected is returned when an operation requires a live
	// connection to the remote source.
	ErrNotConnected = errors.New("session is not connected")

	// ErrCallbackTimeout is returned when an asynchronous refresh did not
	// deliver its callback within the configured timeout.
	ErrCallbackTimeout = errors.New("callback: timeout waiting for data")

	// ErrNoHealthReader is returned when health pseudo-tags are requested
	// but no health reader is configured.
	ErrNoHealthReader = errors.New("no health reader configured")

	// errShortBatch flags a remote reply whose per-item arrays do not
	// match the request length.
	errShortBatch = errors.New("server returned short per-item arrays")
)

// InputError reports a malformed tags or pairs argument. It is raised
// before any remote call is made.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "opc: " + e.Reason
}

// RemoteError reports a fatal failure of a remote primitive. Per-tag
// validation and add failures are never RemoteErrors; those are reported in
// the per-tag results instead.
type RemoteError struct {
	// Op is the remote primitive that failed (e.g. "AddGroup", "SyncRead").
	Op string

	// Group is the sub-group the operation targeted, if any.
	Group string

	// Err is the remote-supplied error.
	Err error
}

func (e *RemoteError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("%s(%s): %v", e.Op, e.Group, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
