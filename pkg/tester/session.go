package tester

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/rx"
	"github.com/robotalks/cantester/pkg/schedule"
	"github.com/robotalks/cantester/pkg/tx"
)

// Report summarizes a broadcast.
type Report struct {
	Delivered int
	// Elapsed is the clock reading in ms when the last frame completed.
	Elapsed uint32
	Stats   tx.Stats
}

func (r Report) String() string {
	return fmt.Sprintf("%d packets delivered in %d ms", r.Delivered, r.Elapsed)
}

// Session loads schedules, broadcasts them and reports received frames
// on a Hardware.
type Session struct {
	Hardware *Hardware
	Printer  *schedule.Printer
	Receiver *rx.Receiver
	Drainer  *rx.Drainer
	Capacity int

	capture   switchSink
	running   atomic.Bool
	readyCh   chan struct{}
	readyOnce sync.Once
	stopCh    chan struct{}
	frames    schedule.Schedule
	sched     *tx.Scheduler
	lock      sync.Mutex
}

// NewSession creates a Session printing to out.
func NewSession(hw *Hardware, out io.Writer) *Session {
	printer := schedule.NewPrinter(out)
	recv := rx.NewReceiver(hw.Clock, hw.Ring, hw.Driver)
	s := &Session{
		Hardware: hw,
		Printer:  printer,
		Receiver: recv,
		Drainer:  rx.NewDrainer(hw.Ring, printer, recv),
		Capacity: schedule.DefaultCapacity,
		readyCh:  make(chan struct{}),
	}
	s.Drainer.Sink = &s.capture
	return s
}

type switchSink struct {
	sink rx.Sink
	lock sync.Mutex
}

func (s *switchSink) CaptureFrame(f can.Frame) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.sink == nil {
		return nil
	}
	return s.sink.CaptureFrame(f)
}

// Capture sends every drained frame to sink from now on, nil stops
// capturing. The previous sink is returned.
func (s *Session) Capture(sink rx.Sink) rx.Sink {
	s.capture.lock.Lock()
	defer s.capture.lock.Unlock()
	prev := s.capture.sink
	s.capture.sink = sink
	return prev
}

// Listen configures the receiver and starts capturing frames matching
// filter under mask.
func (s *Session) Listen(filter, mask uint32, idType can.IDType) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Receiver.Filter, s.Receiver.Mask, s.Receiver.IDType = filter, mask, idType
	if err := s.Receiver.Start(); err != nil {
		return fmt.Errorf("configure receiver: %w", err)
	}
	return nil
}

// Load reads a schedule and prints it. A truncated schedule is kept
// and ErrTruncatedInput returned along with it.
func (s *Session) Load(r io.Reader) (*schedule.Result, error) {
	res, err := schedule.Read(r, s.Capacity)
	if res == nil {
		return nil, err
	}
	s.LoadFrames(res.Schedule)
	return res, err
}

// LoadFrames installs frames as the schedule, e.g. a replayed capture,
// and prints it. Frames are replayed as Output in the given order.
func (s *Session) LoadFrames(frames []can.Frame) {
	sch := make(schedule.Schedule, len(frames))
	for i, f := range frames {
		f.Direction = can.Output
		sch[i] = f
	}
	s.lock.Lock()
	s.frames, s.sched = sch, nil
	s.lock.Unlock()
	if _, err := sch.WriteTo(s.Printer); err != nil {
		glog.Errorf("print schedule error: %v", err)
	}
}

// Schedule returns the loaded schedule.
func (s *Session) Schedule() schedule.Schedule {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.frames
}

// Stats returns the statistics of the last broadcast.
func (s *Session) Stats() (tx.Stats, bool) {
	s.lock.Lock()
	sched := s.sched
	s.lock.Unlock()
	if sched == nil {
		return tx.Stats{}, false
	}
	return sched.Stats(), true
}

// Run implements Runnable. It keeps the clock ticking and drains
// received frames until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("session already running")
	}
	stopCh := make(chan struct{})
	s.lock.Lock()
	s.stopCh = stopCh
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		s.stopCh = nil
		s.lock.Unlock()
		s.running.Store(false)
		close(stopCh)
	}()
	s.readyOnce.Do(func() { close(s.readyCh) })
	return NewRunnerWith(ctx).Go(s.Hardware.Ticker, s.Drainer).Wait()
}

// Running tells whether Run is active.
func (s *Session) Running() bool {
	return s.running.Load()
}

// Ready is closed once Run has started for the first time.
func (s *Session) Ready() <-chan struct{} {
	return s.readyCh
}

// Name implements Named.
func (s *Session) Name() string {
	return "session"
}

// Broadcast transmits the loaded schedule and waits until every frame
// has been delivered. The clock restarts from 0 so frame times are
// offsets from the start of the broadcast. If Run exits meanwhile the
// broadcast is aborted with ErrStopped.
func (s *Session) Broadcast(ctx context.Context) (*Report, error) {
	s.lock.Lock()
	stopCh := s.stopCh
	if stopCh == nil {
		s.lock.Unlock()
		return nil, fmt.Errorf("session not running: %w", ErrNotReady)
	}
	if s.frames == nil {
		s.lock.Unlock()
		return nil, fmt.Errorf("no schedule loaded: %w", ErrNotReady)
	}
	hw := s.Hardware
	sched := tx.NewScheduler(s.frames, hw.Clock, hw.Pool, hw.Driver)
	sched.Printer = s.Printer
	s.sched = sched
	s.lock.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.Printer.ResetHeader()
	hw.Clock.Reset()
	glog.V(2).Infof("broadcast %d frames", sched.Len())
	err := sched.Run(ctx)
	if err == nil {
		err = sched.Wait(ctx)
	}
	if err != nil {
		select {
		case <-stopCh:
			return nil, fmt.Errorf("broadcast aborted: %w", ErrStopped)
		default:
		}
		return nil, err
	}
	report := &Report{Elapsed: hw.Clock.Now(), Stats: sched.Stats()}
	report.Delivered = report.Stats.Completed
	fmt.Fprintln(s.Printer, report)
	return report, nil
}

// Drain prints every frame currently captured.
func (s *Session) Drain() int {
	return s.Drainer.DrainAll()
}
