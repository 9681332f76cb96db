package schedule

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/cantester/pkg/can"
)

// DefaultCapacity is the maximum number of frames in a schedule.
const DefaultCapacity = 100

// Line leaders of the schedule protocol.
const (
	leaderData   = '@'
	leaderRemote = '$'
	leaderEnd    = '!'
)

// LineKind classifies a schedule line.
type LineKind int

const (
	// LineIgnored is a line with an unknown leader, including blank lines.
	LineIgnored LineKind = iota
	// LineFrame is a data or remote frame line.
	LineFrame
	// LineEnd is the terminator.
	LineEnd
)

// LineResult is the result of parsing one line.
type LineResult struct {
	Kind  LineKind
	Frame can.Frame
}

var (
	errMissingField = errors.New("missing field")
	errOutOfRange   = errors.New("out of range")
	errShortPayload = errors.New("short payload")
)

// ParseLine parses a single schedule line:
//
//	@time:eid:id:dlc:data   data frame
//	$time:eid:id            remote frame
//	!                       end of schedule
//
// Numbers are decimal except id and data which are hexadecimal, and id
// may carry a 0x prefix. Identifier ranges are not checked. A line not
// starting with a leader, e.g. indented, is ignored.
func ParseLine(line string) (LineResult, error) {
	var r LineResult
	// only the line ending is dropped, the leader must be the first character.
	line = strings.TrimRight(line, " \t\r\n")
	if line == "" {
		return r, nil
	}
	var fields []string
	switch line[0] {
	case leaderEnd:
		r.Kind = LineEnd
		return r, nil
	case leaderData:
		r.Frame.Kind = can.Data
		fields = strings.SplitN(line[1:], ":", 5)
		if len(fields) == 4 {
			// dlc 0 may come without a payload field.
			fields = append(fields, "")
		}
	case leaderRemote:
		r.Frame.Kind = can.Remote
		fields = strings.SplitN(line[1:], ":", 3)
	default:
		return r, nil
	}

	f := &r.Frame
	f.Direction = can.Output
	if err := parseHeader(f, fields); err != nil {
		return r, err
	}
	if f.Kind == can.Data {
		if len(fields) < 5 {
			return r, &fieldError{field: "dlc", err: errMissingField}
		}
		if err := parsePayload(f, fields[3], fields[4]); err != nil {
			return r, err
		}
	}
	r.Kind = LineFrame
	return r, nil
}

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.err.Error()
}

func (e *fieldError) Unwrap() error {
	return e.err
}

func parseHeader(f *can.Frame, fields []string) error {
	t, err := strconv.ParseUint(strings.TrimSpace(fields[0]), 10, 32)
	if err != nil {
		return &fieldError{field: "time", err: err}
	}
	f.Time = uint32(t)
	if len(fields) < 2 {
		return &fieldError{field: "eid", err: errMissingField}
	}
	switch strings.TrimSpace(fields[1]) {
	case "0":
		f.IDType = can.Standard
	case "1":
		f.IDType = can.Extended
	default:
		return &fieldError{field: "eid", err: errOutOfRange}
	}
	if len(fields) < 3 {
		return &fieldError{field: "id", err: errMissingField}
	}
	id := strings.TrimSpace(fields[2])
	if strings.HasPrefix(id, "0x") || strings.HasPrefix(id, "0X") {
		id = id[2:]
	}
	v, err := strconv.ParseUint(id, 16, 32)
	if err != nil {
		return &fieldError{field: "id", err: err}
	}
	f.ID = uint32(v)
	return nil
}

func parsePayload(f *can.Frame, dlcField, dataField string) error {
	dlc, err := strconv.ParseUint(strings.TrimSpace(dlcField), 10, 8)
	if err != nil {
		return &fieldError{field: "dlc", err: err}
	}
	if dlc > can.MaxDataLen {
		return &fieldError{field: "dlc", err: errOutOfRange}
	}
	digits := strings.TrimSpace(dataField)
	if len(digits) < int(dlc)*2 {
		return &fieldError{field: "data", err: errShortPayload}
	}
	n, err := hex.Decode(f.Data[:], []byte(digits[:dlc*2]))
	if err != nil {
		return &fieldError{field: "data", err: err}
	}
	f.Len = uint8(n)
	return nil
}

// Parser accumulates frames from schedule lines until the terminator
// is seen or the capacity is reached.
type Parser struct {
	Capacity int

	frames     Schedule
	malformed  []*MalformedLineError
	line       int
	terminated bool
}

// NewParser creates a Parser with the given capacity.
func NewParser(capacity int) *Parser {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Parser{Capacity: capacity, frames: make(Schedule, 0, capacity)}
}

// Done indicates no more lines are accepted.
func (p *Parser) Done() bool {
	return p.terminated || p.Full()
}

// Full indicates the capacity is exhausted.
func (p *Parser) Full() bool {
	return len(p.frames) >= p.Capacity
}

// Terminated indicates the terminator line has been seen.
func (p *Parser) Terminated() bool {
	return p.terminated
}

// Parse consumes one line. It returns the error of a malformed frame
// line, which has been skipped, and parsing can continue.
func (p *Parser) Parse(line string) error {
	if p.Done() {
		return nil
	}
	p.line++
	r, err := ParseLine(line)
	if err != nil {
		merr := &MalformedLineError{Line: p.line, Text: strings.TrimSpace(line), Field: "line", Err: err}
		var ferr *fieldError
		if errors.As(err, &ferr) {
			merr.Field, merr.Err = ferr.field, ferr.err
		}
		p.malformed = append(p.malformed, merr)
		return merr
	}
	switch r.Kind {
	case LineEnd:
		p.terminated = true
	case LineFrame:
		p.frames = append(p.frames, r.Frame)
	}
	return nil
}

// Schedule returns the frames parsed so far.
func (p *Parser) Schedule() Schedule {
	return p.frames
}

// Malformed returns all skipped malformed lines.
func (p *Parser) Malformed() []*MalformedLineError {
	return p.malformed
}

func (p *Parser) String() string {
	return fmt.Sprintf("%d frames, %d malformed", len(p.frames), len(p.malformed))
}
