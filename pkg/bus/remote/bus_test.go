package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cantester/pkg/bus/remote/pb"
	"github.com/robotalks/cantester/pkg/bus/sim"
	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/comm"
	"github.com/robotalks/cantester/pkg/comm/stream"
)

type received struct {
	slot    int
	id      uint32
	kind    can.Kind
	payload []byte
	err     error
}

func dataFrame(id uint32, p ...byte) can.Frame {
	f := can.Frame{Direction: can.Output, ID: id}
	f.SetPayload(p)
	return f
}

func setup(t *testing.T) (*Bus, *sim.Bus, context.CancelFunc) {
	c1, c2 := net.Pipe()
	simBus := sim.New()
	simBus.TxLatency = 0
	simBus.Echo = true
	bus := New(stream.New(c1))
	adapter := NewAdapter(stream.New(c2), simBus)
	ctx, cancel := context.WithCancel(context.Background())
	go simBus.Run(ctx)
	go adapter.Run(ctx)
	go bus.Run(ctx)
	return bus, simBus, cancel
}

func TestCodecFrame(t *testing.T) {
	cases := []struct {
		name  string
		frame can.Frame
	}{
		{"data", dataFrame(0x7ff, 1, 2, 3)},
		{"empty", dataFrame(0x100)},
		{"extended", can.Frame{IDType: can.Extended, ID: 0x1fffffff, Len: 1, Data: [8]byte{9}}},
		{"remote", can.Frame{ID: 0x12, Kind: can.Remote}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			pkt, err := encode(&pb.Envelope{Kind: pb.KindTransmit, Slot: 3, Frame: EncodeFrame(c.frame)})
			require.NoError(t, err)
			env, err := decode(pkt)
			require.NoError(t, err)
			require.Equal(t, pb.KindTransmit, env.Kind)
			require.Equal(t, uint32(3), env.Slot)
			f := DecodeFrame(env.Frame)
			f.Direction = c.frame.Direction
			require.Equal(t, c.frame, f)
		})
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := decode([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestRemoteTransmit(t *testing.T) {
	bus, simBus, cancel := setup(t)
	defer cancel()

	doneCh := make(chan int, 2)
	require.NoError(t, bus.Submit(2, dataFrame(0x10, 0xaa), func(slot int) { doneCh <- slot }))
	require.NoError(t, bus.Submit(5, dataFrame(0x11), func(slot int) { doneCh <- slot }))
	for _, slot := range []int{2, 5} {
		select {
		case s := <-doneCh:
			require.Equal(t, slot, s)
		case <-time.After(time.Second):
			t.Fatal("transmit not completed")
		}
	}
	sent := simBus.Transmitted()
	require.Len(t, sent, 2)
	require.Equal(t, uint32(0x10), sent[0].ID)
	require.Equal(t, []byte{0xaa}, sent[0].Payload())
}

func TestRemoteSlotBusy(t *testing.T) {
	bus := New(stream.New(nopStream{}))
	require.NoError(t, bus.Submit(1, dataFrame(1), func(int) {}))
	require.True(t, errors.Is(bus.Submit(1, dataFrame(2), func(int) {}), ErrSlotBusy))
	require.NoError(t, bus.Close())
	require.Equal(t, ErrClosed, bus.Submit(2, dataFrame(3), func(int) {}))
}

func TestRemotePeerClosed(t *testing.T) {
	c1, c2 := net.Pipe()
	bus := New(stream.New(c1))
	go func() {
		peer := stream.New(c2)
		peer.ReadPacket()
		c2.Close()
	}()
	runCh := make(chan error, 1)
	go func() { runCh <- bus.Run(context.Background()) }()

	completed := make(chan int, 1)
	require.NoError(t, bus.Submit(0, dataFrame(1, 0xaa), func(slot int) { completed <- slot }))
	select {
	case err := <-runCh:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not exit")
	}
	bus.lock.Lock()
	require.Empty(t, bus.pending)
	bus.lock.Unlock()
	require.Equal(t, ErrClosed, bus.Submit(0, dataFrame(2), func(int) {}))
	select {
	case slot := <-completed:
		t.Fatalf("abandoned transmit on slot %d completed", slot)
	default:
	}
}

func TestRemoteReceive(t *testing.T) {
	bus, _, cancel := setup(t)
	defer cancel()

	rxCh := make(chan received, 1)
	h := can.FrameReceivedFunc(func(slot int, id uint32, kind can.Kind) {
		p, err := bus.ReadPayload(slot, can.MaxDataLen)
		rxCh <- received{slot: slot, id: id, kind: kind, payload: p, err: err}
	})
	require.NoError(t, bus.ConfigureReceiver(0x100, 0x700, can.Standard, h))
	// the filter travels the same pipe ahead of the transmit.
	require.NoError(t, bus.Submit(0, dataFrame(0x123, 4, 5), func(int) {}))
	select {
	case r := <-rxCh:
		require.Equal(t, received{slot: sim.RxMob, id: 0x123, kind: can.Data, payload: []byte{4, 5}}, r)
	case <-time.After(time.Second):
		t.Fatal("frame not received")
	}
}

func TestDispatchUnknownKind(t *testing.T) {
	bus := New(stream.New(nopStream{}))
	err := bus.dispatch(&pb.Envelope{Kind: 42})
	require.Equal(t, &UnknownKindError{Kind: 42}, err)
	require.NoError(t, bus.dispatch(&pb.Envelope{Kind: pb.KindTxComplete, Slot: 3}))
}

type nopStream struct{}

func (nopStream) Read(p []byte) (int, error)  { select {} }
func (nopStream) Write(p []byte) (int, error) { return len(p), nil }

func TestDialServeTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	simBus := sim.New()
	simBus.TxLatency = 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go simBus.Run(ctx)
	go Serve(ctx, "tcp://"+addr, "bench", simBus)

	var rw comm.PacketReadWriter
	deadline := time.Now().Add(time.Second)
	for {
		if rw, err = Dial("tcp://"+addr, "bench"); err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	bus := New(rw)
	go bus.Run(ctx)

	doneCh := make(chan int, 1)
	require.NoError(t, bus.Submit(7, dataFrame(0x42, 1), func(slot int) { doneCh <- slot }))
	select {
	case slot := <-doneCh:
		require.Equal(t, 7, slot)
	case <-time.After(time.Second):
		t.Fatal("transmit not completed")
	}
}

func TestDialUnknownScheme(t *testing.T) {
	_, err := Dial("carrier-pigeon://coop", "bench")
	require.Error(t, err)
	require.Error(t, Serve(context.Background(), "carrier-pigeon://coop", "bench", sim.New()))
}
