package tester

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/robotalks/cantester/pkg/bus/remote"
	"github.com/robotalks/cantester/pkg/bus/sim"
	"github.com/robotalks/cantester/pkg/can"
	"github.com/robotalks/cantester/pkg/capture"
	"github.com/robotalks/cantester/pkg/clock"
	"github.com/robotalks/cantester/pkg/rx"
	"github.com/robotalks/cantester/pkg/schedule"
	"github.com/robotalks/cantester/pkg/tx"
)

// Bus kinds.
const (
	BusSim    = "sim"
	BusRemote = "remote"
)

// Config provides the options to set up a tester.
type Config struct {
	// Bus selects the controller: sim or remote.
	Bus string
	// RemoteURL locates the adapter of a remote bus,
	// e.g. tcp://host:port, ws://host:port/can, mqtt://host:port/prefix/
	RemoteURL string
	// Name identifies the adapter on shared transports (MQTT topics).
	Name string

	Slots      int
	Capacity   int
	RingSize   int
	TickPeriod time.Duration

	SimLatency time.Duration
	SimEcho    bool

	Filter   uint
	Mask     uint
	Extended bool

	CaptureFile string
}

var defaultConfig = Config{
	Bus:        BusSim,
	RemoteURL:  "tcp://localhost:2917",
	Name:       "cantester",
	Slots:      tx.DefaultSlots,
	Capacity:   schedule.DefaultCapacity,
	RingSize:   rx.DefaultCapacity,
	TickPeriod: clock.DefaultPeriod,
	SimLatency: 100 * time.Microsecond,
	SimEcho:    true,
}

func init() {
	if val := os.Getenv("CANTESTER_BUS"); val != "" {
		defaultConfig.Bus = val
	}
	if val := os.Getenv("CANTESTER_REMOTE_URL"); val != "" {
		defaultConfig.RemoteURL = val
	}
	if val := os.Getenv("CANTESTER_NAME"); val != "" {
		defaultConfig.Name = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Bus, "bus", defaultConfig.Bus, "CAN controller: sim or remote.")
	flag.StringVar(&defaultConfig.RemoteURL, "remote", defaultConfig.RemoteURL, "Remote adapter URL (tcp://, ws://, mqtt://, serial://).")
	flag.StringVar(&defaultConfig.Name, "name", defaultConfig.Name, "Adapter name on shared transports.")
	flag.IntVar(&defaultConfig.Slots, "slots", defaultConfig.Slots, "Number of transmit message objects.")
	flag.IntVar(&defaultConfig.Capacity, "capacity", defaultConfig.Capacity, "Maximum frames in a schedule.")
	flag.IntVar(&defaultConfig.RingSize, "ring", defaultConfig.RingSize, "Receive ring capacity, a power of 2 up to 128.")
	flag.DurationVar(&defaultConfig.TickPeriod, "tick", defaultConfig.TickPeriod, "Clock tick period.")
	flag.DurationVar(&defaultConfig.SimLatency, "sim-latency", defaultConfig.SimLatency, "Transmit latency of the simulated bus.")
	flag.BoolVar(&defaultConfig.SimEcho, "sim-echo", defaultConfig.SimEcho, "Simulated bus loops transmitted frames back.")
	flag.UintVar(&defaultConfig.Filter, "rx-filter", defaultConfig.Filter, "Receive acceptance filter id.")
	flag.UintVar(&defaultConfig.Mask, "rx-mask", defaultConfig.Mask, "Receive acceptance mask, 0 accepts everything.")
	flag.BoolVar(&defaultConfig.Extended, "rx-ext", defaultConfig.Extended, "Receive extended (29-bit) identifiers.")
	flag.StringVar(&defaultConfig.CaptureFile, "capture", defaultConfig.CaptureFile, "Append received frames to this CBOR file.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the values which would otherwise fail late.
func (c *Config) Validate() error {
	if c.RingSize < 0 || c.RingSize > 128 || c.RingSize&(c.RingSize-1) != 0 {
		return fmt.Errorf("ring capacity %d is not a power of 2 up to 128", c.RingSize)
	}
	if c.Bus == BusSim && c.Slots > sim.RxMob {
		return fmt.Errorf("simulated bus has %d transmit slots", sim.RxMob)
	}
	switch c.Bus {
	case BusSim, BusRemote:
	default:
		return fmt.Errorf("unknown bus %q", c.Bus)
	}
	return nil
}

// IDType returns the identifier type of the receiver.
func (c *Config) IDType() can.IDType {
	if c.Extended {
		return can.Extended
	}
	return can.Standard
}

// NewBus creates the controller driver and the Runnable which must run
// for the driver to make progress.
func (c *Config) NewBus() (can.Driver, Runnable, error) {
	switch c.Bus {
	case BusSim:
		bus := sim.New()
		bus.TxLatency, bus.Echo = c.SimLatency, c.SimEcho
		return bus, bus, nil
	case BusRemote:
		rw, err := remote.Dial(c.RemoteURL, c.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", c.RemoteURL, err)
		}
		bus := remote.New(rw)
		return bus, bus, nil
	default:
		return nil, nil, fmt.Errorf("unknown bus %q", c.Bus)
	}
}

// NewSession creates a Session on drv using current config.
func (c *Config) NewSession(drv can.Driver, out io.Writer) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	hw := NewHardware(drv, c.Slots, c.RingSize)
	hw.Ticker.Period = c.TickPeriod
	s := NewSession(hw, out)
	s.Capacity = c.Capacity
	if c.CaptureFile != "" {
		w, err := capture.Create(c.CaptureFile)
		if err != nil {
			return nil, err
		}
		s.Capture(w)
	}
	return s, nil
}

// Tester is a configured Session with its bus.
type Tester struct {
	*Session
	Bus Runnable
}

// NewTester creates the bus and the session, and starts listening.
func (c *Config) NewTester(out io.Writer) (*Tester, error) {
	drv, bus, err := c.NewBus()
	if err != nil {
		return nil, err
	}
	s, err := c.NewSession(drv, out)
	if err != nil {
		return nil, err
	}
	if err := s.Listen(uint32(c.Filter), uint32(c.Mask), c.IDType()); err != nil {
		return nil, err
	}
	return &Tester{Session: s, Bus: bus}, nil
}

// MustNewTester creates a Tester and fails on error.
func (c *Config) MustNewTester(out io.Writer) *Tester {
	t, err := c.NewTester(out)
	if err != nil {
		log.Fatalln(err)
	}
	return t
}

// Name implements Named.
func (t *Tester) Name() string {
	return "tester"
}

// Run implements Runnable. It runs the bus and the session, a bus
// failure stops the session and aborts any broadcast.
func (t *Tester) Run(ctx context.Context) error {
	return NewRunnerWith(ctx).Go(t.Bus, t.Session).Wait()
}

// Close flushes the capture file, if any, and closes the bus.
func (t *Tester) Close() error {
	var errs AggregatedError
	if closer, ok := t.Capture(nil).(io.Closer); ok {
		errs.Add(closer.Close())
	}
	if closer, ok := t.Bus.(io.Closer); ok {
		errs.Add(closer.Close())
	}
	return errs.Aggregate()
}
