package sh

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/cantester/pkg/capture"
	"github.com/robotalks/cantester/pkg/schedule"
)

func openSchedule(c *ishell.Context) (io.Reader, func(), error) {
	if len(c.Args) > 0 && c.Args[0] != "-" {
		f, err := os.Open(c.Args[0])
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	if !ShellFrom(c).Interactive {
		return os.Stdin, func() {}, nil
	}
	c.Println("Enter schedule lines, end with !")
	text := c.ReadMultiLinesFunc(func(line string) bool {
		return strings.TrimSpace(line) != "!"
	})
	return strings.NewReader(text + "\n"), func() {}, nil
}

var (
	// LoadCmd loads a schedule.
	LoadCmd = ishell.Cmd{
		Name:    "load",
		Aliases: []string{"l"},
		Help:    "[FILE|-]",
		Func: func(c *ishell.Context) {
			r, closer, err := openSchedule(c)
			if err != nil {
				c.Err(err)
				return
			}
			defer closer()
			res, err := ShellFrom(c).Tester.Load(r)
			if res == nil {
				c.Err(err)
				return
			}
			for _, merr := range res.Malformed {
				c.Printf("skipped %v\n", merr)
			}
			if res.Full {
				c.Printf("schedule full, only %d frames loaded\n", len(res.Schedule))
			}
			if err == schedule.ErrTruncatedInput {
				c.Printf("no terminator, %d frames loaded\n", len(res.Schedule))
			} else if err != nil {
				c.Err(err)
			}
		},
	}

	// ShowCmd prints the loaded schedule.
	ShowCmd = ishell.Cmd{
		Name:    "show",
		Aliases: []string{"s"},
		Help:    "",
		Func: func(c *ishell.Context) {
			sch := ShellFrom(c).Tester.Schedule()
			if sch == nil {
				c.Println("No schedule loaded")
				return
			}
			var b strings.Builder
			sch.WriteTo(&b)
			c.Print(b.String())
		},
	}

	// RunCmd broadcasts the loaded schedule.
	RunCmd = ishell.Cmd{
		Name:    "run",
		Aliases: []string{"r", "broadcast"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if _, err := s.Tester.Broadcast(s.ctx); err != nil {
				c.Err(err)
			}
		},
	}

	// DrainCmd prints captured frames.
	DrainCmd = ishell.Cmd{
		Name:    "drain",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			n := ShellFrom(c).Tester.Drain()
			c.Printf("%d frames drained\n", n)
		},
	}

	// StatsCmd prints statistics of the last broadcast and the receiver.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			t := ShellFrom(c).Tester
			if stats, ok := t.Stats(); ok {
				c.Println(stats)
			} else {
				c.Println("No broadcast yet")
			}
			hw := t.Hardware
			c.Printf("rx ring %d/%d, %d overruns\n", hw.Ring.Len(), hw.Ring.Cap(), hw.Ring.Overruns())
		},
	}

	// CaptureCmd writes drained frames to a file.
	CaptureCmd = ishell.Cmd{
		Name: "capture",
		Help: "FILE|off",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			t := ShellFrom(c).Tester
			var w *capture.Writer
			if c.Args[0] != "off" {
				var err error
				if w, err = capture.Create(c.Args[0]); err != nil {
					c.Err(err)
					return
				}
			}
			var prev io.Closer
			if w != nil {
				prev, _ = t.Capture(w).(io.Closer)
			} else {
				prev, _ = t.Capture(nil).(io.Closer)
			}
			if prev != nil {
				if err := prev.Close(); err != nil {
					c.Err(err)
				}
			}
		},
	}

	// ReplayCmd loads a capture as the schedule.
	ReplayCmd = ishell.Cmd{
		Name: "replay",
		Help: "FILE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			frames, err := capture.Load(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).Tester.LoadFrames(frames)
		},
	}
)
