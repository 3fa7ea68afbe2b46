// Package hal declares the external collaborators this module consumes:
// the firmware-table reader, the interrupt-controller driver, the timer,
// and the physical-memory guarantee the memory subsystem provides. Their
// implementations (real MADT parsing, real LAPIC/IOAPIC programming) live
// outside this module.
package hal

import "time"

// DescriptorType identifies the kind of a firmware processor-descriptor
// record. Only LocalAPIC is inspected by this module.
type DescriptorType uint8

const (
	LocalAPIC DescriptorType = 0
	IOAPIC    DescriptorType = 1
	Other     DescriptorType = 0xff
)

// Descriptor is one record from the firmware's processor/interrupt-controller
// table. ProcessorID is opaque and unused by this module; ID is the
// hardware-assigned local-APIC id copied into the processor table as hw_id.
type Descriptor struct {
	Type        DescriptorType
	Length      uint8
	ProcessorID uint8
	ID          uint32
}

// MADTIterator walks the firmware's processor-descriptor list. Package
// topology walks it twice, so Rewind must return the cursor to the first
// record; a fresh iterator obtained between passes is also valid.
type MADTIterator interface {
	Rewind()
	Next() (Descriptor, bool)
}

// IPIKind selects the semantics of an inter-processor interrupt.
type IPIKind int

const (
	IPIInit IPIKind = iota
	IPIStartup
	IPINMI
)

// Shorthand mirrors the LAPIC ICR destination-shorthand field: most sends
// in this module address a single hw_id and use ShorthandNone.
type Shorthand int

const (
	ShorthandNone Shorthand = iota
	ShorthandSelf
	ShorthandAll
	ShorthandAllButSelf
)

// InterruptController is the local/global interrupt-controller driver
// consumed from outside this module.
type InterruptController interface {
	// InitGlobalControllers programs the shared interrupt routing for n
	// processors. Called once by the boot sequencer before any AP is
	// started.
	InitGlobalControllers(n int)

	// InitLocalController brings up the calling processor's own local
	// interrupt controller. Called by both the BSP and each AP during
	// onboarding.
	InitLocalController()

	// LocalHardwareID returns the calling processor's hardware id
	// (local-APIC id on x86-64).
	LocalHardwareID() uint32

	// SendIPI delivers an inter-processor interrupt. waitForDelivery
	// blocks until the controller confirms the interrupt was accepted
	// for delivery (not that the target acted on it).
	SendIPI(hwID uint32, shorthand Shorthand, kind IPIKind, vector uint8, waitForDelivery bool)
}

// Ticks is an opaque monotonic tick count, comparable only to other Ticks
// values returned by the same Timer.
type Ticks uint64

// Timer is the narrow timer surface this module consumes: a monotonic
// clock and a busy-wait primitive. The boot sequencer's waits against it
// are bounded busy-polls; the signal channel's wait for an
// acknowledgment is an unbounded spin that does not use the Timer.
type Timer interface {
	Now() Ticks
	TicksFor(d time.Duration) Ticks
	BusyWait(d time.Duration)
}

// PhysicalMemory is the guarantee the memory subsystem makes available to
// the AP Trampoline Loader: that TRAMPOLINE_PADDR is identity-mapped and
// writable. Write must complete before the loader returns.
type PhysicalMemory interface {
	Write(paddr uintptr, data []byte) error
}

// CPUBringup is the narrow init entry point exposed by the GDT/IDT/TSS
// and CPU-local-feature subsystems that AP onboarding drives in order.
// Each is out of scope for this module beyond the call itself.
type CPUBringup interface {
	// InstallDescriptorTables builds and loads the IDT/GDT/TSS for the
	// processor identified by kernelID.
	InstallDescriptorTables(kernelID int)

	// InitCPULocalFeatures programs the page-attribute table,
	// syscall/sysret MSRs, and FP state for the calling processor.
	InitCPULocalFeatures(kernelID int)
}

// SchedulerHandoff lets AP onboarding wait for the scheduler to take over
// an AP after interrupts are enabled. AwaitReady blocks until the
// scheduler subsystem has scheduled work onto the calling processor, or
// timeout elapses.
type SchedulerHandoff interface {
	AwaitReady(timeout time.Duration) bool
}
