// Package bootseq drives the INIT/STARTUP IPI handshake for each AP in
// table order and waits for each one to publish running, or fails. Each
// AP gets its own bounded join window, so a single wedged AP is
// attributable instead of sharing a timeout across the whole set.
package bootseq

import (
	"github.com/hyglvy/project-azalea/bootcfg"
	"github.com/hyglvy/project-azalea/bootlog"
	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/proctable"
)

// Sequencer brings every non-BSP processor in a Table to running, one at
// a time.
type Sequencer struct {
	Table *proctable.Table
	IC    hal.InterruptController
	Timer hal.Timer
	Cfg   bootcfg.Config

	// StartupVector is the trampoline's entry page, Vector() from
	// package trampoline.
	StartupVector uint8
}

// Run executes the per-AP protocol in table order. localHWID is the
// hw_id of the processor calling Run (the BSP). Run panics if any AP's
// running flag never flips within Cfg.APJoinTimeout.
func (s *Sequencer) Run(localHWID uint32) {
	n := s.Table.Count()
	s.IC.InitGlobalControllers(n)

	for i := 0; i < n; i++ {
		rec := s.Table.Get(i)
		if rec.HWID == localHWID {
			// This is the BSP's own entry; it has already completed
			// onboarding by the time it drives the sequencer, so just
			// latch it.
			s.Table.MarkRunning(i)
			continue
		}
		s.startAP(i, rec.HWID)
	}

	bootlog.Milestone("all processors running", map[string]interface{}{"count": n})
}

func (s *Sequencer) startAP(kernelID int, hwID uint32) {
	s.IC.SendIPI(hwID, hal.ShorthandNone, hal.IPIInit, 0, true)
	s.Timer.BusyWait(s.Cfg.InitStartupGap)
	s.IC.SendIPI(hwID, hal.ShorthandNone, hal.IPIStartup, s.StartupVector, true)

	if !s.waitForRunning(kernelID) {
		bootlog.Fatalf("bootseq: kernel_id %d (hw_id %#x) did not start within %s", kernelID, hwID, s.Cfg.APJoinTimeout)
	}
	bootlog.Milestone("AP started", map[string]interface{}{"kernel_id": kernelID, "hw_id": hwID})
}

func (s *Sequencer) waitForRunning(kernelID int) bool {
	deadline := s.Timer.Now() + s.Timer.TicksFor(s.Cfg.APJoinTimeout)
	rec := s.Table.Get(kernelID)
	for s.Timer.Now() < deadline {
		if rec.Running() {
			return true
		}
	}
	return rec.Running()
}

// Report summarises the fixed processor set's package/hyperthread layout
// after bring-up, derived from raw APIC id bits once all APs have
// joined. It does not feed back into any bring-up decision — it is a
// read-only accounting of the set discovered once at boot, not a
// topology the sequencer consults.
type Report struct {
	Packages     int
	Hyperthreads int
	PerPackage   map[uint32]int
}

// PackageShifts tells Summarize how to carve a hw_id into an SMT mask and
// a package id, mirroring the bit shifts a real port reads out of CPUID
// leaf 0x1f/0x0b. Programming that leaf is out of this module's scope;
// Summarize only consumes the masks once supplied.
type PackageShifts struct {
	SMTMask     uint32
	PackageMask uint32
}

// Summarize buckets every processor in tbl by package using shifts and
// counts hyperthread siblings. It is called once, after Run, by whatever
// owns the report — bootseq itself never calls it.
func Summarize(tbl *proctable.Table, shifts PackageShifts) Report {
	r := Report{PerPackage: make(map[uint32]int)}
	for i := 0; i < tbl.Count(); i++ {
		hw := tbl.Get(i).HWID
		pkg := hw & shifts.PackageMask
		r.PerPackage[pkg]++
		if hw&shifts.SMTMask != 0 {
			r.Hyperthreads++
		}
	}
	r.Packages = len(r.PerPackage)
	return r
}
