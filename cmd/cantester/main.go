package main

import (
	"github.com/robotalks/cantester/pkg/cli/sh"
	"github.com/robotalks/cantester/pkg/tester"
)

//go-build: CGO_ENABLED=0

func init() {
	tester.SetupFlags()
}

func main() {
	sh.Main()
}
