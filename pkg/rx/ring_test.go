package rx

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cantester/pkg/can"
)

func seqFrame(n uint32) can.Frame {
	return can.Frame{Time: n, Direction: can.Input, Kind: can.Remote, ID: n}
}

func TestRingCapacity(t *testing.T) {
	require.Equal(t, DefaultCapacity, NewRing(0).Cap())
	require.Equal(t, 128, NewRing(128).Cap())
	for _, c := range []int{-1, 3, 100, 256} {
		require.Panics(t, func() { NewRing(c) }, "capacity %d", c)
	}
}

func TestRingFIFO(t *testing.T) {
	r := NewRing(4)
	_, ok := r.DrainOne()
	require.False(t, ok)
	for i := uint32(1); i <= 3; i++ {
		require.False(t, r.Put(seqFrame(i)))
	}
	require.Equal(t, 3, r.Len())
	for i := uint32(1); i <= 3; i++ {
		f, ok := r.DrainOne()
		require.True(t, ok)
		require.Equal(t, i, f.ID)
	}
	_, ok = r.DrainOne()
	require.False(t, ok)
	require.Zero(t, r.Overruns())
}

func TestRingOverrunEvictsOldest(t *testing.T) {
	const capacity = 16
	r := NewRing(capacity)
	for i := uint32(1); i <= capacity; i++ {
		require.False(t, r.Put(seqFrame(i)))
	}
	require.True(t, r.Put(seqFrame(capacity+1)))
	require.Equal(t, capacity, r.Len())
	require.Equal(t, uint64(1), r.Overruns())
	for i := uint32(2); i <= capacity+1; i++ {
		f, ok := r.DrainOne()
		require.True(t, ok)
		require.Equal(t, i, f.ID)
	}
	_, ok := r.DrainOne()
	require.False(t, ok)
}

func TestRingCounterWrap(t *testing.T) {
	r := NewRing(8)
	var next, expect uint32
	for round := 0; round < 200; round++ {
		for i := 0; i < 5; i++ {
			next++
			r.Put(seqFrame(next))
		}
		for i := 0; i < 5; i++ {
			expect++
			f, ok := r.DrainOne()
			require.True(t, ok)
			require.Equal(t, expect, f.ID)
		}
		require.Zero(t, r.Len())
	}
}

func TestRingRandomOperations(t *testing.T) {
	r := NewRing(8)
	rnd := rand.New(rand.NewSource(1))
	var model []uint32
	var next uint32
	for i := 0; i < 5000; i++ {
		if rnd.Intn(3) > 0 {
			next++
			evicted := r.Put(seqFrame(next))
			model = append(model, next)
			require.Equal(t, len(model) > r.Cap(), evicted)
			if evicted {
				model = model[1:]
			}
		} else {
			f, ok := r.DrainOne()
			require.Equal(t, len(model) > 0, ok)
			if ok {
				require.Equal(t, model[0], f.ID)
				model = model[1:]
			}
		}
		require.Equal(t, len(model), r.Len())
		require.True(t, r.Len() <= r.Cap())
	}
}

func TestRingConcurrentPutDrain(t *testing.T) {
	const total = 20000
	r := NewRing(16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint32(1); i <= total; i++ {
			r.Put(seqFrame(i))
		}
	}()
	var last uint32
	var drained int
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		f, ok := r.DrainOne()
		if ok {
			// Never torn, never repeated, always in arrival order.
			require.Equal(t, f.ID, f.Time)
			require.True(t, f.ID > last, "frame %d after %d", f.ID, last)
			last = f.ID
			drained++
			continue
		}
		select {
		case <-done:
			if r.Len() == 0 {
				require.Equal(t, uint64(total-drained), r.Overruns())
				return
			}
		default:
		}
	}
}
