package tx

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
)

// DefaultSlots is the number of message objects used for transmission.
// The controller has 15; one is left for reception.
const DefaultSlots = 14

// MobPool allocates transmit message objects. Acquire is called from the
// submitting goroutine, Release from transmit-complete notifications.
type MobPool struct {
	busy     []atomic.Bool
	inFlight atomic.Int32
	next     int

	stalls   atomic.Uint64
	spurious atomic.Uint64
}

// NewMobPool creates a pool of n slots.
func NewMobPool(n int) *MobPool {
	if n <= 0 {
		n = DefaultSlots
	}
	return &MobPool{busy: make([]atomic.Bool, n)}
}

// Size returns the number of slots.
func (p *MobPool) Size() int {
	return len(p.busy)
}

// InFlight returns the number of slots submitted but not completed.
func (p *MobPool) InFlight() int {
	return int(p.inFlight.Load())
}

// Stalls returns how many times Acquire had to wait for a free slot.
func (p *MobPool) Stalls() uint64 {
	return p.stalls.Load()
}

// Spurious returns how many releases were ignored because the slot
// was not in flight.
func (p *MobPool) Spurious() uint64 {
	return p.spurious.Load()
}

// Acquire spins until a slot is free, then returns it. Slots are handed
// out round-robin; a slot still in flight is skipped, as completions may
// arrive out of order. Only the submitting goroutine may call Acquire.
func (p *MobPool) Acquire(ctx context.Context) (int, error) {
	size := int32(len(p.busy))
	done := ctx.Done()
	stalled := false
	for {
		n := p.inFlight.Load()
		if n < size && p.inFlight.CompareAndSwap(n, n+1) {
			break
		}
		if !stalled {
			stalled = true
			p.stalls.Add(1)
			glog.V(2).Infof("all %d mobs in flight, stalling", size)
		}
		select {
		case <-done:
			return -1, ctx.Err()
		default:
		}
	}
	// At most inFlight-1 busy flags are set here, so a free slot exists.
	for i := 0; ; i++ {
		slot := (p.next + i) % len(p.busy)
		if p.busy[slot].CompareAndSwap(false, true) {
			p.next = (slot + 1) % len(p.busy)
			return slot, nil
		}
	}
}

// Release returns a slot to the pool. It returns false if the slot
// was not in flight.
func (p *MobPool) Release(slot int) bool {
	if slot < 0 || slot >= len(p.busy) || !p.busy[slot].CompareAndSwap(true, false) {
		p.spurious.Add(1)
		glog.Warningf("release of idle mob %d ignored", slot)
		return false
	}
	p.inFlight.Add(-1)
	return true
}
