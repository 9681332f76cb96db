package schedule

import (
	"bufio"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/can"
)

// Schedule is the ordered list of frames to broadcast.
type Schedule []can.Frame

// WriteTo prints the schedule as a table.
func (s Schedule) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, FormatHeader())
	total := int64(n)
	for i := range s {
		if err != nil {
			break
		}
		n, err = fmt.Fprintln(w, FormatFrame(s[i]))
		total += int64(n)
	}
	return total, err
}

// Result is the outcome of reading a schedule.
type Result struct {
	Schedule  Schedule
	Malformed []*MalformedLineError
	// Full is set when reading stopped because the capacity was reached.
	Full bool
}

// Read reads a schedule from r, one line at a time, until the terminator
// or capacity frames have been collected. Malformed lines are skipped.
// If r ends before either, the partial result is returned together with
// ErrTruncatedInput.
func Read(r io.Reader, capacity int) (*Result, error) {
	p := NewParser(capacity)
	scanner := bufio.NewScanner(r)
	for !p.Done() && scanner.Scan() {
		if err := p.Parse(scanner.Text()); err != nil {
			glog.Warningf("skip schedule %v", err)
		}
	}
	res := &Result{Schedule: p.Schedule(), Malformed: p.Malformed(), Full: p.Full()}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read schedule: %w", err)
	}
	if !p.Done() {
		return res, ErrTruncatedInput
	}
	return res, nil
}
