package schedule

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/robotalks/cantester/pkg/can"
)

const header = " Time  (ms)   Direction    Format        ID        Type    DLC                     Data                  \n" +
	"============ =========== ========== ============ ======== ===== =========================================\n"

// FormatHeader returns the column banner printed before any frames.
func FormatHeader() string {
	return header
}

// FormatFrame renders one frame as a report line, without line feed.
func FormatFrame(f can.Frame) string {
	dir := "Input "
	if f.Direction == can.Output {
		dir = "Output"
	}
	prefix := fmt.Sprintf(" %10d     %s    %s   0x%08X", f.Time, dir, f.IDType, f.ID)
	if f.Kind == can.Remote {
		return prefix + "   Remote"
	}
	var sb strings.Builder
	sb.WriteString(prefix)
	fmt.Fprintf(&sb, "    Data     %d    ", f.Len)
	for _, b := range f.Payload() {
		fmt.Fprintf(&sb, "0x%02X ", b)
	}
	return sb.String()
}

// Printer writes frame reports to W, preceded once by the header.
// It is safe for concurrent use.
type Printer struct {
	W io.Writer

	headerDone bool
	lock       sync.Mutex
}

// NewPrinter creates a Printer.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{W: w}
}

// PrintFrame prints one frame.
func (p *Printer) PrintFrame(f can.Frame) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if !p.headerDone {
		if _, err := io.WriteString(p.W, header); err != nil {
			return err
		}
		p.headerDone = true
	}
	_, err := fmt.Fprintln(p.W, FormatFrame(f))
	return err
}

// Write implements io.Writer so other reports share the lock.
func (p *Printer) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.W.Write(b)
}

// ResetHeader makes the next PrintFrame print the header again.
func (p *Printer) ResetHeader() {
	p.lock.Lock()
	p.headerDone = false
	p.lock.Unlock()
}
