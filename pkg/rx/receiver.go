package rx

import (
	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/clock"
)

// Receiver timestamps frames reported by the driver and puts them into
// a Ring. FrameReceived runs in the driver's notification context and
// never blocks beyond the ring's critical section.
type Receiver struct {
	Clock  *clock.Clock
	Ring   *Ring
	Driver can.Driver

	// Acceptance filter, all frames by default.
	Filter uint32
	Mask   uint32
	IDType can.IDType

	arrivalCh chan struct{}
}

// NewReceiver creates a Receiver accepting all standard frames.
func NewReceiver(c *clock.Clock, ring *Ring, drv can.Driver) *Receiver {
	return &Receiver{
		Clock:     c,
		Ring:      ring,
		Driver:    drv,
		arrivalCh: make(chan struct{}, 1),
	}
}

// Start installs the receiver on the driver.
func (r *Receiver) Start() error {
	glog.V(2).Infof("receiving %s frames filter=%x mask=%x", r.IDType, r.Filter, r.Mask)
	return r.Driver.ConfigureReceiver(r.Filter, r.Mask, r.IDType, r)
}

// Arrivals signals when frames have been put into the ring since the
// last receive from the chan.
func (r *Receiver) Arrivals() <-chan struct{} {
	return r.arrivalCh
}

// FrameReceived implements can.RxHandler.
func (r *Receiver) FrameReceived(slot int, id uint32, kind can.Kind) {
	f := can.Frame{
		Time:      r.Clock.Now(),
		Direction: can.Input,
		IDType:    r.IDType,
		Kind:      kind,
		ID:        id,
	}
	if kind == can.Data {
		payload, err := r.Driver.ReadPayload(slot, can.MaxDataLen)
		if err != nil {
			glog.Warningf("read payload of mob %d error: %v", slot, err)
		}
		f.SetPayload(payload)
	}
	if r.Ring.Put(f) {
		glog.V(2).Infof("receive overrun, oldest frame dropped")
	}
	select {
	case r.arrivalCh <- struct{}{}:
	default:
	}
}
