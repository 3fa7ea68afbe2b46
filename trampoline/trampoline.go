// Package trampoline stages the 16-bit real-mode AP entry stub at the
// fixed low physical frame the STARTUP IPI vector addresses. The stub is
// assembled out of module and checked in as a prebuilt binary; go:embed
// carries it into the binary instead of a build-time copy step.
package trampoline

import (
	_ "embed"

	"github.com/hyglvy/project-azalea/bootcfg"
	"github.com/hyglvy/project-azalea/bootlog"
	"github.com/hyglvy/project-azalea/hal"
)

// blob is the real-mode entry stub: INIT/STARTUP IPIs land the AP at
// TrampolinePaddr in real mode, and this code walks it into long mode
// before jumping to the kernel-side AP entry.
//
//go:embed mpentry.bin
var blob []byte

// Vector returns the STARTUP IPI vector that encodes the trampoline's
// destination page: vector V ⇒ entry at V × 0x1000.
func Vector() uint8 {
	return uint8(bootcfg.TrampolinePaddr >> 12)
}

// Load copies the trampoline blob verbatim to TrampolinePaddr. It must
// complete before any STARTUP IPI is issued; callers enforce that
// ordering by calling Load once, before the boot sequencer starts.
func Load(mem hal.PhysicalMemory) {
	if len(blob) == 0 {
		bootlog.Fatalf("trampoline: embedded entry blob is empty")
	}
	if err := mem.Write(bootcfg.TrampolinePaddr, blob); err != nil {
		bootlog.Fatalf("trampoline: failed to stage entry blob at %#x: %v", bootcfg.TrampolinePaddr, err)
	}
	bootlog.Milestone("trampoline staged", map[string]interface{}{
		"paddr": bootcfg.TrampolinePaddr,
		"bytes": len(blob),
	})
}

// Len reports the size of the staged blob, for tests and diagnostics.
func Len() int {
	return len(blob)
}
