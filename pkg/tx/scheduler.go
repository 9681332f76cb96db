package tx

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/clock"
)

// EntryState is the state of a schedule entry.
type EntryState int32

const (
	// Pending entries have not been submitted yet.
	Pending EntryState = iota
	// Submitted entries are loaded into a mob, waiting for transmission.
	Submitted
	// Complete entries have been transmitted.
	Complete
)

// String implements fmt.Stringer.
func (s EntryState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Submitted:
		return "submitted"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// FramePrinter reports frames as they are handled.
type FramePrinter interface {
	PrintFrame(can.Frame) error
}

type entry struct {
	frame can.Frame
	state atomic.Int32
}

// Scheduler submits frames in schedule order once their time is due.
type Scheduler struct {
	Clock   *clock.Clock
	Pool    *MobPool
	Driver  can.Driver
	Printer FramePrinter

	entries   []entry
	cursor    int
	ran       atomic.Bool
	completed atomic.Int32
	doneCh    chan struct{}
	doneOnce  sync.Once

	lateness []float64
	lock     sync.Mutex
}

// NewScheduler creates a Scheduler for frames. The frames are copied.
func NewScheduler(frames []can.Frame, c *clock.Clock, pool *MobPool, drv can.Driver) *Scheduler {
	s := &Scheduler{
		Clock:    c,
		Pool:     pool,
		Driver:   drv,
		entries:  make([]entry, len(frames)),
		doneCh:   make(chan struct{}),
		lateness: make([]float64, 0, len(frames)),
	}
	for i := range frames {
		s.entries[i].frame = frames[i]
	}
	if len(frames) == 0 {
		close(s.doneCh)
	}
	return s
}

// Name implements Named.
func (s *Scheduler) Name() string {
	return "scheduler"
}

// Len returns the number of entries.
func (s *Scheduler) Len() int {
	return len(s.entries)
}

// State returns the state of entry i.
func (s *Scheduler) State(i int) EntryState {
	return EntryState(s.entries[i].state.Load())
}

// Run implements Runnable. It returns after the last entry has been
// submitted, and can only be called once.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}
	done := ctx.Done()
	for s.cursor < len(s.entries) {
		e := &s.entries[s.cursor]
		for e.frame.Time > s.Clock.Now() {
			select {
			case <-done:
				return ctx.Err()
			default:
			}
		}
		if err := s.submit(ctx, s.cursor); err != nil {
			return err
		}
		s.cursor++
	}
	glog.V(2).Infof("all %d frames submitted at %d ms", len(s.entries), s.Clock.Now())
	return nil
}

// Wait waits until every entry has completed.
func (s *Scheduler) Wait(ctx context.Context) error {
	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) submit(ctx context.Context, index int) error {
	slot, err := s.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	e := &s.entries[index]
	now := s.Clock.Now()
	e.state.Store(int32(Submitted))
	if err := s.Driver.Submit(slot, e.frame, func(slot int) { s.complete(index, slot) }); err != nil {
		e.state.Store(int32(Pending))
		s.Pool.Release(slot)
		return fmt.Errorf("submit frame %d to mob %d: %w", index, slot, err)
	}

	s.lock.Lock()
	s.lateness = append(s.lateness, float64(now-e.frame.Time))
	s.lock.Unlock()

	if glog.V(4) {
		glog.Infof("frame %d id=%x submitted to mob %d at %d ms", index, e.frame.ID, slot, now)
	}
	if p := s.Printer; p != nil {
		if err := p.PrintFrame(e.frame); err != nil {
			glog.Errorf("print frame %d error: %v", index, err)
		}
	}
	return nil
}

func (s *Scheduler) complete(index, slot int) {
	e := &s.entries[index]
	if !e.state.CompareAndSwap(int32(Submitted), int32(Complete)) {
		glog.Warningf("duplicated completion of frame %d on mob %d", index, slot)
		return
	}
	s.Pool.Release(slot)
	if int(s.completed.Add(1)) == len(s.entries) {
		s.doneOnce.Do(func() { close(s.doneCh) })
	}
}
