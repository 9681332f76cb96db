package rx

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/can"
)

// DefaultPollInterval is used when a Drainer has no arrival notification.
const DefaultPollInterval = 10 * time.Millisecond

// FramePrinter reports drained frames.
type FramePrinter interface {
	PrintFrame(can.Frame) error
}

// Sink receives a copy of every drained frame.
type Sink interface {
	CaptureFrame(can.Frame) error
}

// Drainer empties a Ring into a printer from the main loop.
type Drainer struct {
	Ring    *Ring
	Printer FramePrinter
	Sink    Sink
	Arrival <-chan struct{}
	Poll    time.Duration
}

// NewDrainer creates a Drainer woken up by the receiver's arrivals.
func NewDrainer(ring *Ring, printer FramePrinter, recv *Receiver) *Drainer {
	d := &Drainer{Ring: ring, Printer: printer, Poll: DefaultPollInterval}
	if recv != nil {
		d.Arrival = recv.Arrivals()
	}
	return d
}

// Name implements Named.
func (d *Drainer) Name() string {
	return "drainer"
}

// DrainAll drains every frame currently in the ring and returns the count.
func (d *Drainer) DrainAll() int {
	var n int
	for {
		f, ok := d.Ring.DrainOne()
		if !ok {
			return n
		}
		n++
		if p := d.Printer; p != nil {
			if err := p.PrintFrame(f); err != nil {
				glog.Errorf("print received frame error: %v", err)
			}
		}
		if s := d.Sink; s != nil {
			if err := s.CaptureFrame(f); err != nil {
				glog.Errorf("capture frame error: %v", err)
			}
		}
	}
}

// Run implements Runnable. It drains on every arrival and at least
// every Poll interval, until ctx is done. Frames left in the ring
// are drained before returning.
func (d *Drainer) Run(ctx context.Context) error {
	poll := d.Poll
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		d.DrainAll()
		select {
		case <-ctx.Done():
			d.DrainAll()
			return ctx.Err()
		case <-d.Arrival:
		case <-ticker.C:
		}
	}
}
