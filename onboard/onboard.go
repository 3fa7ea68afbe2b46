// Package onboard drives the per-AP code path the trampoline's long-mode
// stub jumps into: complete CPU-local init, then publish running=true.
// Each step is an explicit call against a narrow collaborator interface
// rather than code this package owns outright.
package onboard

import (
	"github.com/hyglvy/project-azalea/bootcfg"
	"github.com/hyglvy/project-azalea/bootlog"
	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/proctable"
)

// Onboarder runs the full bring-up sequence for one AP.
type Onboarder struct {
	Table *proctable.Table
	CPU   hal.CPUBringup
	IC    hal.InterruptController
	Sched hal.SchedulerHandoff
	Cfg   bootcfg.Config
	// ZeroPerCPUState clears the per-CPU kernel state pointer so an
	// early exception cannot mistake this AP for a running thread. It
	// is a separate hook because it must run before
	// InstallDescriptorTables, and the subsystem that owns this
	// pointer is out of this package's scope.
	ZeroPerCPUState func(kernelID int)
	// EnableInterrupts and EnterSchedulerWait are invoked strictly
	// after running is published; they model "enable interrupts and
	// wait for scheduling to take over" without this package owning
	// either the interrupt-enable flag or the scheduler.
	EnableInterrupts   func()
	EnterSchedulerWait func()
}

// Run executes the bring-up sequence for the processor identified by
// kernelID. It publishes running, then enables interrupts, waits for the
// scheduler handoff, and calls EnterSchedulerWait; it returns only after
// all of those have returned. A missing scheduler arrival within
// Cfg.AwaitSchedulerTimeout is fatal.
func (o *Onboarder) Run(kernelID int) {
	if o.ZeroPerCPUState != nil {
		o.ZeroPerCPUState(kernelID)
	}

	o.CPU.InstallDescriptorTables(kernelID)
	o.CPU.InitCPULocalFeatures(kernelID)
	o.IC.InitLocalController()

	// This store must be ordered after every preceding init store so
	// that the boot sequencer's successful poll implies full
	// initialization. proctable.MarkRunning is itself the release
	// operation; no additional fence is needed because Go's memory
	// model gives atomic.Bool.Store release semantics and every store
	// above is sequenced-before it in program order on this goroutine.
	o.Table.MarkRunning(kernelID)
	bootlog.Milestone("AP onboarded", map[string]interface{}{"kernel_id": kernelID})

	if o.EnableInterrupts != nil {
		o.EnableInterrupts()
	}
	if o.Sched != nil {
		if !o.Sched.AwaitReady(o.Cfg.AwaitSchedulerTimeout) {
			bootlog.Fatalf("onboard: kernel_id %d got no scheduler within %s", kernelID, o.Cfg.AwaitSchedulerTimeout)
		}
	}
	if o.EnterSchedulerWait != nil {
		o.EnterSchedulerWait()
	}
}
