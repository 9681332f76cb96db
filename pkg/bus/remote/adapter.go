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

// Adapter exposes a local can.Driver to a remote Bus.
type Adapter struct {
	ReadWriter comm.PacketReadWriter
	Driver     can.Driver

	idType   can.IDType
	sendLock sync.Mutex
}

// NewAdapter creates an Adapter.
func NewAdapter(rw comm.PacketReadWriter, drv can.Driver) *Adapter {
	return &Adapter{ReadWriter: rw, Driver: drv}
}

// Name implements Named.
func (a *Adapter) Name() string {
	return "adapter"
}

// Run implements Runnable.
func (a *Adapter) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		if closer, ok := a.ReadWriter.(io.Closer); ok {
			closer.Close()
		}
	}()
	for {
		pkt, err := a.ReadWriter.ReadPacket()
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
		if err = a.dispatch(env); err != nil {
			var kindErr *UnknownKindError
			if !errors.As(err, &kindErr) {
				return err
			}
			glog.Warningf("adapter: %v", err)
		}
	}
}

func (a *Adapter) dispatch(env *pb.Envelope) error {
	switch env.Kind {
	case pb.KindTransmit:
		f := DecodeFrame(env.Frame)
		f.Direction = can.Output
		if err := a.Driver.Submit(int(env.Slot), f, a.txComplete); err != nil {
			return fmt.Errorf("transmit on slot %d: %w", env.Slot, err)
		}
	case pb.KindFilter:
		var flt pb.Filter
		if env.Filter != nil {
			flt = *env.Filter
		}
		a.idType = can.Standard
		if flt.Extended {
			a.idType = can.Extended
		}
		glog.Infof("adapter: receive filter %x mask %x %s", flt.Id, flt.Mask, a.idType)
		return a.Driver.ConfigureReceiver(flt.Id, flt.Mask, a.idType, can.FrameReceivedFunc(a.frameReceived))
	default:
		return &UnknownKindError{Kind: env.Kind}
	}
	return nil
}

func (a *Adapter) txComplete(slot int) {
	if err := a.send(&pb.Envelope{Kind: pb.KindTxComplete, Slot: uint32(slot)}); err != nil {
		glog.Errorf("adapter: completion of slot %d: %v", slot, err)
	}
}

func (a *Adapter) frameReceived(slot int, id uint32, kind can.Kind) {
	f := can.Frame{ID: id, IDType: a.idType, Kind: kind}
	if kind == can.Data {
		data, err := a.Driver.ReadPayload(slot, can.MaxDataLen)
		if err != nil {
			glog.Warningf("adapter: read slot %d: %v", slot, err)
		}
		f.SetPayload(data)
	}
	env := &pb.Envelope{Kind: pb.KindReceived, Slot: uint32(slot), Frame: EncodeFrame(f)}
	if err := a.send(env); err != nil {
		glog.Errorf("adapter: forward frame %x: %v", id, err)
	}
}

func (a *Adapter) send(env *pb.Envelope) error {
	pkt, err := encode(env)
	if err != nil {
		return err
	}
	a.sendLock.Lock()
	defer a.sendLock.Unlock()
	return a.ReadWriter.WritePacket(pkt)
}
