package reindex

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPosition is returned for a target position below 1.
	ErrInvalidPosition = errors.New("position must be a positive integer")

	// ErrStoreRead matches any *ReadError.
	ErrStoreRead = errors.New("store read failed")

	// ErrStoreWrite matches any *WriteError.
	ErrStoreWrite = errors.New("store write failed")
)

// ReadError reports a failed full scan. Nothing was written.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%v: %v", ErrStoreRead, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStoreRead.
func (e *ReadError) Is(target error) bool { return target == ErrStoreRead }

// WriteError reports a reindex that stopped part way through its writes.
// Completed shifts are not rolled back.
type WriteError struct {
	// Failed holds shifts whose write was attempted and did not succeed.
	Failed []Shift

	// Done holds shifts that were persisted.
	Done []Shift

	// Pending holds shifts that were never attempted.
	Pending []Shift

	// Err is the first write error observed.
	Err error
}

func (e *WriteError) Error() string {
	total := len(e.Failed) + len(e.Done) + len(e.Pending)
	if len(e.Failed) == 0 {
		return fmt.Sprintf("%v: %v (%d of %d shifts applied)", ErrStoreWrite, e.Err, len(e.Done), total)
	}
	s := e.Failed[0]
	return fmt.Sprintf("%v: movie %s %d->%d: %v (%d of %d shifts applied)",
		ErrStoreWrite, s.ID, s.From, s.To, e.Err, len(e.Done), total)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStoreWrite.
func (e *WriteError) Is(target error) bool { return target == ErrStoreWrite }

// Remaining returns the failed and pending shifts, in that order.
func (e *WriteError) Remaining() []Shift {
	result := make([]Shift, 0, len(e.Failed)+len(e.Pending))
	result = append(result, e.Failed...)
	return append(result, e.Pending...)
}
