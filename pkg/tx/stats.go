package tx

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes a broadcast.
type Stats struct {
	Total     int
	Submitted int
	Completed int
	InFlight  int
	Stalls    uint64
	Spurious  uint64

	// Lateness of submissions against fire times, in ms.
	LatenessMean   float64
	LatenessStdDev float64
	LatenessMax    float64
	LateFrames     int
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return fmt.Sprintf("%d/%d submitted, %d completed, %d in flight, %d stalls, %d late (mean %.2f ms, stddev %.2f ms, max %.0f ms)",
		s.Submitted, s.Total, s.Completed, s.InFlight, s.Stalls,
		s.LateFrames, s.LatenessMean, s.LatenessStdDev, s.LatenessMax)
}

// Stats returns the current statistics. It is safe to call while running.
func (s *Scheduler) Stats() Stats {
	st := Stats{
		Total:     len(s.entries),
		Completed: int(s.completed.Load()),
		InFlight:  s.Pool.InFlight(),
		Stalls:    s.Pool.Stalls(),
		Spurious:  s.Pool.Spurious(),
	}
	s.lock.Lock()
	lateness := append([]float64(nil), s.lateness...)
	s.lock.Unlock()
	st.Submitted = len(lateness)
	if len(lateness) == 0 {
		return st
	}
	for _, l := range lateness {
		if l > 0 {
			st.LateFrames++
		}
	}
	st.LatenessMax = floats.Max(lateness)
	if len(lateness) > 1 {
		st.LatenessMean, st.LatenessStdDev = stat.MeanStdDev(lateness, nil)
	} else {
		st.LatenessMean = lateness[0]
	}
	return st
}
