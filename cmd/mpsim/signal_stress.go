package main

import (
	"context"
	"flag"
	"fmt"
	"sync"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"github.com/hyglvy/project-azalea/signal"
	"github.com/hyglvy/project-azalea/simhal"
)

// signalStressCommand drives N concurrent senders at one target and
// prints the dispatch order the target observed. Its in-flight counter
// counts overlapping handler dispatches; those all run on the single
// polling goroutine, so the counter does not observe two senders posting
// on the same slot.
type signalStressCommand struct {
	senders int
}

func (*signalStressCommand) Name() string { return "signal-stress" }
func (*signalStressCommand) Synopsis() string {
	return "hammer one target's signal slot with concurrent senders"
}
func (*signalStressCommand) Usage() string {
	return "signal-stress -senders <n>\n"
}

func (c *signalStressCommand) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.senders, "senders", 4, "number of concurrent senders targeting the same processor")
}

func (c *signalStressCommand) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.senders < 1 {
		return fatalf("signal-stress: -senders must be >= 1")
	}

	var mu sync.Mutex
	var dispatched []signal.Message
	var inFlight int

	ic := simhal.NewController(0, simhal.Scenario{BSP: simhal.Processor{HWID: 0}})
	ch := signal.New(ic, []uint32{0}, func(msg signal.Message) {
		mu.Lock()
		inFlight++
		if inFlight > 1 {
			fmt.Println("VIOLATION: more than one message in flight")
		}
		dispatched = append(dispatched, msg)
		mu.Unlock()

		mu.Lock()
		inFlight--
		mu.Unlock()
	})

	msgs := []signal.Message{signal.MsgSuspend, signal.MsgResume, signal.MsgReloadTLB}

	// The target's NMI handler runs concurrently with the senders, the
	// way a real target processor's NMI dispatcher would react to each
	// IPI as it lands — here modeled as a busy-polling goroutine since
	// there is only one OS-level target in this simulation.
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				ch.OnReceived(0)
			}
		}
	}()

	var g errgroup.Group
	for i := 0; i < c.senders; i++ {
		msg := msgs[i%len(msgs)]
		g.Go(func() error {
			ch.Signal(0, msg)
			return nil
		})
	}
	err := g.Wait()
	close(done)
	if err != nil {
		return fatalf("signal-stress: %v", err)
	}

	fmt.Printf("dispatch order: %v\n", dispatched)
	return subcommands.ExitSuccess
}
