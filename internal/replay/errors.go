package replay

import (
	"errors"
	"fmt"
)

// ErrNotLoaded is returned when an operation needs an archive and none is loaded.
var ErrNotLoaded = errors.New("no archive loaded")

// ErrNotReplayed is returned when an outcome is requested for an index that
// has no recorded outcome.
var ErrNotReplayed = errors.New("not replayed")

// RangeError reports a transaction index outside the loaded archive.
type RangeError struct {
	Index int
	Count int
}

func (e *RangeError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("index %d out of range: archive is empty", e.Index)
	}
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Count)
}

// InFlightError reports an attempt to replay an index whose previous
// attempt has not settled yet.
type InFlightError struct {
	Index int
}

func (e *InFlightError) Error() string {
	return fmt.Sprintf("index %d is already being replayed", e.Index)
}
