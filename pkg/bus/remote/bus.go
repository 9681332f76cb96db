// Package remote drives a CAN controller behind a packet transport.
// The controller side is served by an Adapter.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/bus/remote/pb"
	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/comm"
)

var (
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("remote bus closed")
	// ErrSlotBusy indicates a transmit is already pending on the slot.
	ErrSlotBusy = errors.New("slot busy")
)

// Bus implements can.Driver over a PacketReadWriter.
type Bus struct {
	ReadWriter comm.PacketReadWriter

	pending  map[int]can.TxCompleteFunc
	handler  can.RxHandler
	idType   can.IDType
	closed   bool
	lock     sync.Mutex
	sendLock sync.Mutex

	// notifications are serialized and rxData is only valid within one.
	irq    sync.Mutex
	rxSlot int
	rxData []byte
}

// New creates a Bus.
func New(rw comm.PacketReadWriter) *Bus {
	return &Bus{ReadWriter: rw, pending: make(map[int]can.TxCompleteFunc), rxSlot: -1}
}

// Name implements Named.
func (b *Bus) Name() string {
	return "remote-bus"
}

// Submit implements can.Driver.
func (b *Bus) Submit(slot int, frame can.Frame, done can.TxCompleteFunc) error {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return ErrClosed
	}
	if _, busy := b.pending[slot]; busy {
		b.lock.Unlock()
		return fmt.Errorf("slot %d: %w", slot, ErrSlotBusy)
	}
	b.pending[slot] = done
	b.lock.Unlock()

	err := b.send(&pb.Envelope{Kind: pb.KindTransmit, Slot: uint32(slot), Frame: EncodeFrame(frame)})
	if err != nil {
		b.lock.Lock()
		delete(b.pending, slot)
		b.lock.Unlock()
	}
	return err
}

// ConfigureReceiver implements can.Driver.
func (b *Bus) ConfigureReceiver(filter, mask uint32, idType can.IDType, h can.RxHandler) error {
	b.lock.Lock()
	b.handler, b.idType = h, idType
	b.lock.Unlock()
	return b.send(&pb.Envelope{
		Kind:   pb.KindFilter,
		Filter: &pb.Filter{Id: filter, Mask: mask, Extended: idType == can.Extended},
	})
}

// ReadPayload implements can.Driver. It's only valid inside
// RxHandler.FrameReceived.
func (b *Bus) ReadPayload(slot int, max int) ([]byte, error) {
	if slot != b.rxSlot {
		return nil, fmt.Errorf("slot %d: no received frame", slot)
	}
	p := b.rxData
	if len(p) > max {
		p = p[:max]
	}
	return append([]byte(nil), p...), nil
}

// Run implements Runnable. It dispatches notifications from the remote
// controller until ctx is done or the transport fails.
func (b *Bus) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer b.Close()
	go func() {
		<-ctx.Done()
		b.Close()
	}()
	for {
		pkt, err := b.ReadWriter.ReadPacket()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		env, err := decode(pkt)
		if err != nil {
			return err
		}
		if err = b.dispatch(env); err != nil {
			var kindErr *UnknownKindError
			if !errors.As(err, &kindErr) {
				return err
			}
			glog.Warningf("remote bus: %v", err)
		}
	}
}

// Close implements io.Closer. Transmits still pending will never
// complete and are abandoned, further Submits fail with ErrClosed.
// Run closes the Bus when it exits.
func (b *Bus) Close() error {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return nil
	}
	b.closed = true
	if n := len(b.pending); n > 0 {
		glog.Warningf("remote bus closed with %d transmits pending", n)
	}
	b.pending = make(map[int]can.TxCompleteFunc)
	b.lock.Unlock()
	if closer, ok := b.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (b *Bus) dispatch(env *pb.Envelope) error {
	switch env.Kind {
	case pb.KindTxComplete:
		slot := int(env.Slot)
		b.lock.Lock()
		done := b.pending[slot]
		delete(b.pending, slot)
		b.lock.Unlock()
		if done == nil {
			glog.Warningf("remote bus: completion on idle slot %d", slot)
			return nil
		}
		b.irq.Lock()
		done(slot)
		b.irq.Unlock()
	case pb.KindReceived:
		b.lock.Lock()
		h := b.handler
		b.lock.Unlock()
		if h == nil {
			return nil
		}
		f := DecodeFrame(env.Frame)
		b.irq.Lock()
		b.rxSlot, b.rxData = int(env.Slot), f.Payload()
		h.FrameReceived(b.rxSlot, f.ID, f.Kind)
		b.rxSlot, b.rxData = -1, nil
		b.irq.Unlock()
	default:
		return &UnknownKindError{Kind: env.Kind}
	}
	return nil
}

func (b *Bus) send(env *pb.Envelope) error {
	pkt, err := encode(env)
	if err != nil {
		return err
	}
	b.sendLock.Lock()
	defer b.sendLock.Unlock()
	return b.ReadWriter.WritePacket(pkt)
}
