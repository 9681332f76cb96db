package tester

import (
	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/clock"
	"github.com/robotalks/cantester/pkg/rx"
	"github.com/robotalks/cantester/pkg/tx"
)

// Hardware is the shared state of one tester instance: the millisecond
// clock, the transmit message objects, the receive ring and the
// controller driving them. Components get it at construction.
type Hardware struct {
	Clock  *clock.Clock
	Ticker *clock.Ticker
	Pool   *tx.MobPool
	Ring   *rx.Ring
	Driver can.Driver
}

// NewHardware creates a Hardware. slots and ringSize fall back to
// defaults when zero.
func NewHardware(drv can.Driver, slots, ringSize int) *Hardware {
	c := &clock.Clock{}
	return &Hardware{
		Clock:  c,
		Ticker: clock.NewTicker(c),
		Pool:   tx.NewMobPool(slots),
		Ring:   rx.NewRing(ringSize),
		Driver: drv,
	}
}
