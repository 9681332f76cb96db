// Package sh provides the tester console.
package sh

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/cantester/pkg/tester"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool

	Shell  *ishell.Shell
	Tester *tester.Tester

	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan error
}

const (
	shellKey = "$shell"
	prompt   = "can > "
)

var (
	evalOnly bool

	commands = []*ishell.Cmd{
		&LoadCmd,
		&ShowCmd,
		&RunCmd,
		&DrainCmd,
		&StatsCmd,
		&CaptureCmd,
		&ReplayCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// New creates a new shell and starts the tester in background.
func New(t *tester.Tester) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Tester:      t,
		doneCh:      make(chan error, 1),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	go func() {
		s.doneCh <- t.Run(s.ctx)
	}()
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Close stops the tester.
func (s *Shell) Close() error {
	s.cancel()
	err := <-s.doneCh
	if cerr := s.Tester.Close(); err == nil {
		err = cerr
	}
	return err
}

// Batch loads a schedule from stdin, broadcasts it and prints
// statistics. It's the behavior without a console.
func (s *Shell) Batch() error {
	res, err := s.Tester.Load(os.Stdin)
	if err != nil && res == nil {
		return err
	}
	if err != nil {
		glog.Warningf("%v, broadcasting %d frames", err, len(res.Schedule))
	}
	if _, err := s.Tester.Broadcast(s.ctx); err != nil {
		return err
	}
	s.Tester.Drain()
	if stats, ok := s.Tester.Stats(); ok {
		fmt.Println(stats)
	}
	return nil
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer func() {
		if err := s.Close(); err != nil {
			glog.Errorf("tester stopped: %v", err)
		}
	}()
	select {
	case <-s.Tester.Ready():
	case err := <-s.doneCh:
		// Close picks it up again.
		s.doneCh <- err
		return
	}
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Printf("CAN tester on %s bus, type help for commands.\n", tester.Default().Bus)
		s.Shell.Run()
		return
	}
	if err := s.Batch(); err != nil {
		log.Fatalln(err)
	}
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(tester.Default().MustNewTester(os.Stdout)).Run(flag.Args()...)
}
