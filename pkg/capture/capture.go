// Package capture records frames as a stream of CBOR items, one per
// frame, so a capture can be appended to and read back incrementally.
package capture

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/robotalks/cantester/pkg/can"
)

// Record is the encoded form of a frame.
type Record struct {
	_        struct{} `cbor:",toarray"`
	Time     uint32
	Input    bool
	Extended bool
	Remote   bool
	ID       uint32
	Data     []byte
}

// RecordOf converts a frame.
func RecordOf(f can.Frame) Record {
	return Record{
		Time:     f.Time,
		Input:    f.Direction == can.Input,
		Extended: f.IDType == can.Extended,
		Remote:   f.Kind == can.Remote,
		ID:       f.ID,
		Data:     append([]byte(nil), f.Payload()...),
	}
}

// Frame converts the record back to a frame.
func (r *Record) Frame() can.Frame {
	f := can.Frame{Time: r.Time, ID: r.ID, Direction: can.Output}
	if r.Input {
		f.Direction = can.Input
	}
	if r.Extended {
		f.IDType = can.Extended
	}
	if r.Remote {
		f.Kind = can.Remote
	} else {
		f.SetPayload(r.Data)
	}
	return f
}

// Writer appends frames to a capture.
type Writer struct {
	buf    *bufio.Writer
	enc    *cbor.Encoder
	closer io.Closer
	count  int
	lock   sync.Mutex
}

// NewWriter creates a Writer on w. If w is an io.Closer, it's closed
// by Close.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriter(w)
	cw := &Writer{buf: buf, enc: cbor.NewEncoder(buf)}
	cw.closer, _ = w.(io.Closer)
	return cw
}

// Create truncates or creates the capture file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return NewWriter(f), nil
}

// CaptureFrame implements rx.Sink.
func (w *Writer) CaptureFrame(f can.Frame) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if err := w.enc.Encode(RecordOf(f)); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of frames written.
func (w *Writer) Count() int {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.count
}

// Flush writes buffered records out.
func (w *Writer) Flush() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.buf.Flush()
}

// Close flushes and closes the underlying writer.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadAll decodes all frames from r.
func ReadAll(r io.Reader) ([]can.Frame, error) {
	dec := cbor.NewDecoder(bufio.NewReader(r))
	var frames []can.Frame
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, rec.Frame())
	}
}

// Load reads the capture file at path.
func Load(path string) ([]can.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}
