// Package simhal is a host-process implementation of package hal, used
// by the mpsim CLI and integration tests to exercise bring-up and
// signalling properties without real hardware. It is not part of the
// kernel-facing surface — a real x86-64 port wires package mp to actual
// MADT parsing and LAPIC/IOAPIC drivers instead.
package simhal

import (
	"fmt"
	"sync"
	"time"

	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/onboard"
	"github.com/hyglvy/project-azalea/proctable"
)

// Processor describes one simulated processor in a scenario.
type Processor struct {
	HWID uint32
	// Misbehave, if true, makes this processor never run onboarding
	// when STARTUP-IPI'd — for exercising the boot sequencer's
	// AP-start-timeout path.
	Misbehave bool
	// OnboardDelay artificially slows this processor's onboarding, to
	// probe the Boot Sequencer's timeout window without it being zero.
	OnboardDelay time.Duration
}

// Scenario is the full input to a simulated bring-up run.
type Scenario struct {
	BSP        Processor
	APs        []Processor
	JoinTimeout time.Duration
}

// MADT adapts a Scenario into a hal.MADTIterator, in BSP-then-APs order.
type MADT struct {
	descs []hal.Descriptor
	pos   int
}

// NewMADT builds the iterator package topology walks twice.
func NewMADT(s Scenario) *MADT {
	descs := make([]hal.Descriptor, 0, 1+len(s.APs))
	descs = append(descs, hal.Descriptor{Type: hal.LocalAPIC, ID: s.BSP.HWID})
	for _, ap := range s.APs {
		descs = append(descs, hal.Descriptor{Type: hal.LocalAPIC, ID: ap.HWID})
	}
	return &MADT{descs: descs}
}

func (m *MADT) Rewind() { m.pos = 0 }
func (m *MADT) Next() (hal.Descriptor, bool) {
	if m.pos >= len(m.descs) {
		return hal.Descriptor{}, false
	}
	d := m.descs[m.pos]
	m.pos++
	return d, true
}

// Controller is a simulated interrupt controller. It records every IPI
// sent, for "exactly one INIT and one STARTUP per target" assertions,
// and, on a STARTUP IPI to a well-behaved processor, runs onboarding on a
// goroutine — the host-process stand-in for "the AP executes on its own
// core."
type Controller struct {
	mu       sync.Mutex
	local    uint32
	sends    []Send
	table    *proctable.Table
	byHWID   map[uint32]Processor
}

// Send is one recorded IPI, exposed for assertions.
type Send struct {
	HWID uint32
	Kind hal.IPIKind
	Vec  uint8
}

// NewController builds a Controller for localHWID (the BSP calling
// mp.MPInit), given the scenario's full processor list.
func NewController(localHWID uint32, s Scenario) *Controller {
	byHWID := make(map[uint32]Processor, len(s.APs)+1)
	byHWID[s.BSP.HWID] = s.BSP
	for _, ap := range s.APs {
		byHWID[ap.HWID] = ap
	}
	return &Controller{local: localHWID, byHWID: byHWID}
}

// Attach lets the controller onboard APs against the real processor
// table, via mp.Deps.OnTopologyReady.
func (c *Controller) Attach(table *proctable.Table) {
	c.mu.Lock()
	c.table = table
	c.mu.Unlock()
}

func (c *Controller) InitGlobalControllers(int) {}
func (c *Controller) InitLocalController()      {}
func (c *Controller) LocalHardwareID() uint32   { return c.local }

func (c *Controller) SendIPI(hwID uint32, _ hal.Shorthand, kind hal.IPIKind, vec uint8, _ bool) {
	c.mu.Lock()
	c.sends = append(c.sends, Send{HWID: hwID, Kind: kind, Vec: vec})
	proc, known := c.byHWID[hwID]
	table := c.table
	c.mu.Unlock()

	if kind != hal.IPIStartup || !known || proc.Misbehave || table == nil {
		return
	}
	go func() {
		if proc.OnboardDelay > 0 {
			time.Sleep(proc.OnboardDelay)
		}
		kernelID := table.IndexByHWID(hwID)
		if kernelID < 0 {
			return
		}
		ob := &onboard.Onboarder{
			Table: table,
			CPU:   noopCPU{},
			IC:    c,
			Sched: alwaysReadyScheduler{},
		}
		ob.Run(kernelID)
	}()
}

// Sends returns a copy of every IPI recorded so far, for assertions.
func (c *Controller) Sends() []Send {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Send, len(c.sends))
	copy(out, c.sends)
	return out
}

type noopCPU struct{}

func (noopCPU) InstallDescriptorTables(int) {}
func (noopCPU) InitCPULocalFeatures(int)    {}

type alwaysReadyScheduler struct{}

func (alwaysReadyScheduler) AwaitReady(time.Duration) bool { return true }

// Timer is a deterministic, monotonically-increasing tick source: Now
// advances by one tick per call so a busy-poll loop against a deadline
// always terminates, and BusyWait advances by the requested duration.
type Timer struct {
	mu  sync.Mutex
	now hal.Ticks
}

func (t *Timer) Now() hal.Ticks {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now++
	return t.now
}

func (t *Timer) TicksFor(d time.Duration) hal.Ticks { return hal.Ticks(d) }

func (t *Timer) BusyWait(d time.Duration) {
	t.mu.Lock()
	t.now += hal.Ticks(d)
	t.mu.Unlock()
}

// Memory is an in-process stand-in for the physical frame the trampoline
// is staged to: a plain byte buffer, so tests can assert what was
// written without mapping real physical memory.
type Memory struct {
	mu     sync.Mutex
	writes map[uintptr][]byte
}

func NewMemory() *Memory {
	return &Memory{writes: make(map[uintptr][]byte)}
}

func (m *Memory) Write(paddr uintptr, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.writes[paddr] = cp
	return nil
}

func (m *Memory) At(paddr uintptr) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.writes[paddr]
	return d, ok
}

// CPU is a no-op CPUBringup used by the BSP side of a simulated run (the
// BSP never calls AP Onboarding on itself; this exists for mp.Deps.CPU).
type CPU struct{}

func (CPU) InstallDescriptorTables(int) {}
func (CPU) InitCPULocalFeatures(int)    {}

// Scheduler always reports ready immediately, for mp.Deps.Sched.
type Scheduler struct{}

func (Scheduler) AwaitReady(time.Duration) bool { return true }

func (s Send) String() string {
	kinds := map[hal.IPIKind]string{hal.IPIInit: "INIT", hal.IPIStartup: "STARTUP", hal.IPINMI: "NMI"}
	return fmt.Sprintf("%s->%#x(vec=%#x)", kinds[s.Kind], s.HWID, s.Vec)
}
