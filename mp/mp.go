// Package mp is the top-level multi-processor bring-up and signalling
// core. It owns the processor table, signal channel, and trampoline
// staging as a single constructed value rather than ambient globals,
// wiring every bring-up component behind the handful of entry points the
// rest of the kernel calls.
package mp

import (
	"github.com/hyglvy/project-azalea/bootcfg"
	"github.com/hyglvy/project-azalea/bootlog"
	"github.com/hyglvy/project-azalea/bootseq"
	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/onboard"
	"github.com/hyglvy/project-azalea/proctable"
	"github.com/hyglvy/project-azalea/selfid"
	"github.com/hyglvy/project-azalea/signal"
	"github.com/hyglvy/project-azalea/topology"
	"github.com/hyglvy/project-azalea/trampoline"
)

// Deps collects every external collaborator the core needs. It never
// reaches for a global; every dependency is threaded in here.
type Deps struct {
	MADT    hal.MADTIterator
	IC      hal.InterruptController
	Timer   hal.Timer
	Mem     hal.PhysicalMemory
	CPU     hal.CPUBringup
	Sched   hal.SchedulerHandoff
	Cfg     bootcfg.Config
	Handler signal.Handler

	// ZeroPerCPUState, EnableInterrupts and EnterSchedulerWait let a
	// caller plug in the narrow per-architecture steps onboard.Onboarder
	// does not own (zeroing the per-CPU pointer, enabling interrupts,
	// waiting for the scheduler). Optional; nil hooks are skipped.
	ZeroPerCPUState    func(kernelID int)
	EnableInterrupts   func()
	EnterSchedulerWait func()

	// OnTopologyReady fires once, right after enumeration, with the
	// now-fixed processor table — before any AP is started. A host
	// simulator uses this to learn the table so its mock interrupt
	// controller can react to a STARTUP IPI by running AP Onboarding
	// concurrently with the Boot Sequencer's poll, the way a real AP
	// would run on a different core while the BSP busy-waits.
	OnTopologyReady func(table *proctable.Table)
}

// Core is the one-shot-initialised, process-wide owner of the processor
// table, signal channel, and onboarding/sequencing components.
type Core struct {
	table    *proctable.Table
	channel  *signal.Channel
	resolver *selfid.Resolver
	onboard  *onboard.Onboarder
	deps     Deps
}

// MPInit is the one-shot BSP entry point. It enumerates the processor
// topology, stages the AP trampoline, and drives every AP to running
// before returning. Deps.Cfg defaults to bootcfg.Default() if left zero.
func MPInit(d Deps) *Core {
	if d.Cfg == (bootcfg.Config{}) {
		d.Cfg = bootcfg.Default()
	}

	table := topology.Enumerate(d.MADT)
	if d.OnTopologyReady != nil {
		d.OnTopologyReady(table)
	}

	hwIDs := make([]uint32, table.Count())
	for i := 0; i < table.Count(); i++ {
		hwIDs[i] = table.Get(i).HWID
	}
	channel := signal.New(d.IC, hwIDs, d.Handler)

	c := &Core{
		table:    table,
		channel:  channel,
		resolver: &selfid.Resolver{Table: table, IC: d.IC},
		onboard: &onboard.Onboarder{
			Table:              table,
			CPU:                d.CPU,
			IC:                 d.IC,
			Sched:              d.Sched,
			Cfg:                d.Cfg,
			ZeroPerCPUState:    d.ZeroPerCPUState,
			EnableInterrupts:   d.EnableInterrupts,
			EnterSchedulerWait: d.EnterSchedulerWait,
		},
		deps: d,
	}

	if table.Count() > 1 {
		trampoline.Load(d.Mem)
	}

	seq := &bootseq.Sequencer{
		Table:         table,
		IC:            d.IC,
		Timer:         d.Timer,
		Cfg:           d.Cfg,
		StartupVector: trampoline.Vector(),
	}
	seq.Run(d.IC.LocalHardwareID())

	bootlog.Milestone("mp_init complete", map[string]interface{}{"processors": table.Count()})
	return c
}

// APEntry is the entry point the trampoline's long-mode stub jumps into
// for a given AP. It runs the onboarding sequence and returns only if
// onboarding somehow completes without the AP ever blocking in
// EnterSchedulerWait (normally it does not return at all).
func (c *Core) APEntry(kernelID int) {
	c.onboard.Run(kernelID)
}

// ThisProcessorID returns the kernel_id of the executing processor.
func (c *Core) ThisProcessorID() int {
	return c.resolver.ThisProcessorID()
}

// ProcessorCount returns N, the fixed number of discovered processors.
func (c *Core) ProcessorCount() int {
	return c.table.Count()
}

// Signal delivers msg to kernelID and blocks until acknowledged.
func (c *Core) Signal(kernelID int, msg signal.Message) {
	c.channel.Signal(kernelID, msg)
}

// OnSignalReceived is the NMI-handler hook for this processor's signal
// slot. kernelID is this processor's own kernel_id.
func (c *Core) OnSignalReceived(kernelID int) bool {
	return c.channel.OnReceived(kernelID)
}

// Table exposes the processor table for read-only inspection (package A's
// count/get contract), e.g. by a post-boot topology report.
func (c *Core) Table() *proctable.Table {
	return c.table
}
