package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncatedInput indicates the input ended before the terminator.
	// Frames parsed before the end are still returned.
	ErrTruncatedInput = errors.New("schedule not terminated")
)

// MalformedLineError describes a frame line which can't be scanned.
// Such lines are skipped.
type MalformedLineError struct {
	Line  int
	Text  string
	Field string
	Err   error
}

// Error implements error.
func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("line %d %q: bad %s: %v", e.Line, e.Text, e.Field, e.Err)
}

// Unwrap returns the underlying scan error.
func (e *MalformedLineError) Unwrap() error {
	return e.Err
}
