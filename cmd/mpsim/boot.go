package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/hyglvy/project-azalea/bootcfg"
	"github.com/hyglvy/project-azalea/mp"
	"github.com/hyglvy/project-azalea/simhal"
)

// bootCommand runs one bring-up scenario fixture to completion (or until
// it fatals) and prints what the simulated interrupt controller saw.
type bootCommand struct {
	scenario string
}

func (*bootCommand) Name() string     { return "boot" }
func (*bootCommand) Synopsis() string { return "bring up a simulated processor set from a scenario fixture" }
func (*bootCommand) Usage() string {
	return "boot -scenario <path.toml>\n"
}

func (c *bootCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.scenario, "scenario", "", "path to a TOML scenario fixture (see simhal/testdata)")
}

func (c *bootCommand) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.scenario == "" {
		return fatalf("boot: -scenario is required")
	}
	s, err := simhal.LoadScenario(c.scenario)
	if err != nil {
		return fatalf("boot: %v", err)
	}

	ic := simhal.NewController(s.BSP.HWID, s)
	cfg := bootcfg.Default()
	if s.JoinTimeout > 0 {
		cfg.APJoinTimeout = s.JoinTimeout
	}

	core := mp.MPInit(mp.Deps{
		MADT:            simhal.NewMADT(s),
		IC:              ic,
		Timer:           &simhal.Timer{},
		Mem:             simhal.NewMemory(),
		CPU:             simhal.CPU{},
		Sched:           simhal.Scheduler{},
		Cfg:             cfg,
		OnTopologyReady: ic.Attach,
	})

	fmt.Printf("processors: %d\n", core.ProcessorCount())
	for i := 0; i < core.ProcessorCount(); i++ {
		r := core.Table().Get(i)
		fmt.Printf("  kernel_id=%d hw_id=%#x running=%v\n", r.KernelID, r.HWID, r.Running())
	}
	fmt.Printf("IPIs sent:\n")
	for _, snd := range ic.Sends() {
		fmt.Printf("  %s\n", snd)
	}
	return subcommands.ExitSuccess
}
