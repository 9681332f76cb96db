// Package sim simulates a CAN controller in process.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/can"
)

// NumMobs is the number of message objects of the simulated controller.
const NumMobs = 15

// RxMob is the message object used for reception.
const RxMob = NumMobs - 1

var (
	// ErrBadSlot indicates a message object out of range.
	ErrBadSlot = errors.New("invalid message object")
	// ErrNoPayload indicates the slot holds no received frame.
	ErrNoPayload = errors.New("no received frame in message object")
)

type txRequest struct {
	slot  int
	frame can.Frame
	done  can.TxCompleteFunc
}

// Bus is a simulated CAN controller. Transmissions complete in order,
// each TxLatency after the previous one. Notifications never run
// concurrently with each other, as interrupts on a single core.
type Bus struct {
	TxLatency time.Duration
	// Echo delivers every transmitted frame back to the receiver.
	Echo bool

	txCh chan txRequest

	handler can.RxHandler
	filter  uint32
	mask    uint32
	idType  can.IDType
	rxData  []byte
	rxLock  sync.Mutex

	irq sync.Mutex

	transmitted []can.Frame
	logLock     sync.Mutex
}

// New creates a simulated Bus.
func New() *Bus {
	return &Bus{
		TxLatency: 100 * time.Microsecond,
		txCh:      make(chan txRequest, NumMobs),
	}
}

// Name implements Named.
func (b *Bus) Name() string {
	return "sim-bus"
}

// Submit implements can.Driver.
func (b *Bus) Submit(slot int, frame can.Frame, done can.TxCompleteFunc) error {
	if slot < 0 || slot >= RxMob {
		return fmt.Errorf("mob %d: %w", slot, ErrBadSlot)
	}
	select {
	case b.txCh <- txRequest{slot: slot, frame: frame, done: done}:
		return nil
	default:
		return fmt.Errorf("mob %d: transmit queue full", slot)
	}
}

// ConfigureReceiver implements can.Driver.
func (b *Bus) ConfigureReceiver(filter, mask uint32, idType can.IDType, h can.RxHandler) error {
	b.rxLock.Lock()
	b.filter, b.mask, b.idType, b.handler = filter, mask, idType, h
	b.rxLock.Unlock()
	return nil
}

// ReadPayload implements can.Driver.
func (b *Bus) ReadPayload(slot int, max int) ([]byte, error) {
	if slot != RxMob {
		return nil, fmt.Errorf("mob %d: %w", slot, ErrNoPayload)
	}
	p := b.rxData
	if len(p) > max {
		p = p[:max]
	}
	return append([]byte(nil), p...), nil
}

// Inject simulates a frame arriving from the bus. It returns false if
// the frame was not accepted by the receiver.
func (b *Bus) Inject(f can.Frame) bool {
	b.rxLock.Lock()
	h, filter, mask, idType := b.handler, b.filter, b.mask, b.idType
	b.rxLock.Unlock()
	if h == nil || f.IDType != idType || f.ID&mask != filter&mask {
		return false
	}
	b.irq.Lock()
	defer b.irq.Unlock()
	b.rxData = f.Payload()
	h.FrameReceived(RxMob, f.ID, f.Kind)
	b.rxData = nil
	return true
}

// Transmitted returns frames transmitted so far.
func (b *Bus) Transmitted() []can.Frame {
	b.logLock.Lock()
	defer b.logLock.Unlock()
	return append([]can.Frame(nil), b.transmitted...)
}

// Run implements Runnable. It transmits submitted frames.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-b.txCh:
			if b.TxLatency > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(b.TxLatency):
				}
			}
			b.transmit(req)
		}
	}
}

func (b *Bus) transmit(req txRequest) {
	b.logLock.Lock()
	b.transmitted = append(b.transmitted, req.frame)
	b.logLock.Unlock()
	if glog.V(4) {
		glog.Infof("mob %d transmitted id=%x", req.slot, req.frame.ID)
	}
	b.irq.Lock()
	req.done(req.slot)
	b.irq.Unlock()
	if b.Echo {
		echo := req.frame
		echo.Direction = can.Input
		b.Inject(echo)
	}
}
