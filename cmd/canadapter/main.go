package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/robotalks/cantester/pkg/bus/remote"
	"github.com/robotalks/cantester/pkg/bus/sim"
	"github.com/robotalks/cantester/pkg/tester"
)

var (
	listenURL = "tcp://:2917"
	name      = "cantester"
	latency   = 100 * time.Microsecond
	echo      = true
)

func init() {
	flag.StringVar(&listenURL, "listen", listenURL, "Serve testers on URL (tcp://, ws://, mqtt://).")
	flag.StringVar(&name, "name", name, "Adapter name on shared transports.")
	flag.DurationVar(&latency, "latency", latency, "Transmit latency of the simulated bus.")
	flag.BoolVar(&echo, "echo", echo, "Loop transmitted frames back to the receiver.")
}

func main() {
	flag.Parse()

	bus := sim.New()
	bus.TxLatency, bus.Echo = latency, echo
	serve := tester.RunFunc(func(ctx context.Context) error {
		return remote.Serve(ctx, listenURL, name, bus)
	})
	if err := tester.NewRunner().HandleSignals().Go(bus, serve).Wait(); err != nil {
		log.Fatalln(err)
	}
}
