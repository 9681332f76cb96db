package tx

import "errors"

var (
	// ErrAlreadyRun indicates the scheduler has been run once.
	ErrAlreadyRun = errors.New("schedule already broadcast")
)
