// Package rx captures frames received from the bus.
package rx

import (
	"fmt"
	"sync"

	"github.com/robotalks/cantester/pkg/can"
)

// DefaultCapacity is the default number of frames held by a Ring.
const DefaultCapacity = 16

// Ring is a fixed-capacity circular buffer of received frames. The
// receive path puts frames, the main loop drains them; both run inside
// the same critical section. When full, the oldest unread frame is
// dropped to make room.
type Ring struct {
	frames   []can.Frame
	mask     uint8
	write    uint8
	read     uint8
	overruns uint64
	lock     sync.Mutex
}

// NewRing creates a Ring. Capacity must be a power of two not larger
// than 128 so the 8-bit counters wrap consistently; 0 selects the default.
func NewRing(capacity int) *Ring {
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < 0 || capacity > 128 || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("invalid ring capacity %d", capacity))
	}
	return &Ring{
		frames: make([]can.Frame, capacity),
		mask:   uint8(capacity - 1),
	}
}

// Cap returns the capacity.
func (r *Ring) Cap() int {
	return len(r.frames)
}

// Len returns the number of unread frames.
func (r *Ring) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return int(r.write - r.read)
}

// Overruns returns the number of frames dropped because the ring was full.
func (r *Ring) Overruns() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.overruns
}

// Put inserts a frame. It returns true if the oldest frame was evicted.
func (r *Ring) Put(f can.Frame) (evicted bool) {
	r.lock.Lock()
	if int(r.write-r.read) >= len(r.frames) {
		r.read++
		r.overruns++
		evicted = true
	}
	r.frames[r.write&r.mask] = f
	r.write++
	r.lock.Unlock()
	return
}

// DrainOne removes and returns the oldest frame, if any.
func (r *Ring) DrainOne() (f can.Frame, ok bool) {
	r.lock.Lock()
	if r.write != r.read {
		f, ok = r.frames[r.read&r.mask], true
		r.read++
	}
	r.lock.Unlock()
	return
}
