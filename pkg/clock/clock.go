// Package clock provides the millisecond time base of the tester.
package clock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

// DefaultPeriod is the tick period of the time base.
const DefaultPeriod = time.Millisecond

// Clock is a millisecond counter advanced by Tick and restarted by
// Reset. The counter wraps after 2^32 ms.
type Clock struct {
	ms atomic.Uint32
}

// Now returns the current millisecond count.
func (c *Clock) Now() uint32 {
	return c.ms.Load()
}

// Tick advances the clock by one millisecond.
func (c *Clock) Tick() {
	c.ms.Add(1)
}

// Reset sets the clock back to zero. It's safe while a Ticker runs,
// counting continues from zero.
func (c *Clock) Reset() {
	c.ms.Store(0)
}

// Ticker drives a Clock from the host timer.
type Ticker struct {
	Clock  *Clock
	Period time.Duration
}

// NewTicker creates a Ticker with the default period.
func NewTicker(c *Clock) *Ticker {
	return &Ticker{Clock: c, Period: DefaultPeriod}
}

// Name implements Named.
func (t *Ticker) Name() string {
	return "clock"
}

// Run implements Runnable. The host timer may coalesce ticks, so every
// elapsed period since start is credited to the clock.
func (t *Ticker) Run(ctx context.Context) error {
	period := t.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	timer := time.NewTicker(period)
	defer timer.Stop()
	start := time.Now()
	var ticks uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-timer.C:
			due := uint64(now.Sub(start) / period)
			if due > ticks+1 && glog.V(4) {
				glog.Infof("clock catching up %d ticks", due-ticks)
			}
			for ; ticks < due; ticks++ {
				t.Clock.Tick()
			}
		}
	}
}
