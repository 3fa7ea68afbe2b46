// Command mpsim drives the host-side simulator: it boots a scenario
// fixture through package mp against package simhal and reports what
// happened, or stresses the signal channel with concurrent senders.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

func main() {
	cmdr := subcommands.NewCommander(flag.CommandLine, "mpsim")
	cmdr.Register(cmdr.HelpCommand(), "")
	cmdr.Register(&bootCommand{}, "")
	cmdr.Register(&signalStressCommand{}, "")

	flag.Parse()
	os.Exit(int(cmdr.Execute(context.Background())))
}

func fatalf(format string, args ...interface{}) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
