// Package proctable is the ordered registry of discovered processors: a
// dense kernel id, a hardware id, and a running flag per processor. It is
// sized once by the topology enumerator and never grows or shrinks
// afterward; the only field that mutates after construction is Running,
// and only false→true.
package proctable

import "sync/atomic"

// Record is one processor's entry. KernelID and HWID are immutable after
// New; Running is the only cross-CPU mutable field and is a monotonic
// latch.
type Record struct {
	KernelID int
	HWID     uint32

	// PlatformData is an opaque per-architecture block; this module
	// never inspects it, only stores whatever onboarding or the
	// interrupt-controller driver attaches.
	PlatformData any

	running atomic.Bool
}

// Running reports whether this processor has completed onboarding.
func (r *Record) Running() bool {
	return r.running.Load()
}

// Table is the fixed-length, index-by-kernel-id processor registry.
// Element 0 is always the bootstrap processor.
type Table struct {
	records []*Record
}

// New allocates a table of exactly n records with hw ids from hwIDs, in
// order: kernel id i gets hwIDs[i]. New panics if n is zero or if any
// hw id repeats — a table that can't name its processors uniquely isn't
// usable.
func New(hwIDs []uint32) *Table {
	n := len(hwIDs)
	if n == 0 {
		panic("proctable: a table with zero processors is invalid")
	}
	seen := make(map[uint32]bool, n)
	records := make([]*Record, n)
	for i, hw := range hwIDs {
		if seen[hw] {
			panic("proctable: duplicate hw_id in MADT")
		}
		seen[hw] = true
		records[i] = &Record{KernelID: i, HWID: hw}
	}
	return &Table{records: records}
}

// Count returns N, the fixed length of the table.
func (t *Table) Count() int {
	return len(t.records)
}

// Get returns the record for kernelID. It panics on an out-of-range id;
// every caller in this module derives kernelID from the table itself, so
// an out-of-range value indicates a programming error, not a runtime
// condition to recover from.
func (t *Table) Get(kernelID int) *Record {
	return t.records[kernelID]
}

// MarkRunning flips kernelID's running flag to true. It is a store-release
// so that any processor observing Running() == true afterward also
// observes every store onboarding made before calling MarkRunning.
func (t *Table) MarkRunning(kernelID int) {
	t.records[kernelID].running.Store(true)
}

// IndexByHWID linearly searches for the record whose HWID matches hwID.
// It returns -1 if no record matches.
func (t *Table) IndexByHWID(hwID uint32) int {
	for _, r := range t.records {
		if r.HWID == hwID {
			return r.KernelID
		}
	}
	return -1
}
