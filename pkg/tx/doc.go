// Package tx broadcasts a schedule of frames at their fire times.
package tx

// The scheduler runs on a single goroutine and busy-polls the clock;
// it has nothing else to do while waiting. Message objects (mobs) of
// the controller are handed out round-robin and returned by the
// transmit-complete notification of the driver, which arrives on a
// different goroutine. When more frames are due at once than there
// are mobs, submission stalls until one completes and later frames
// may be sent past their fire time. They are never dropped.
