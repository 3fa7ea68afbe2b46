// Package topology walks the firmware processor-descriptor list twice to
// size and populate a proctable.Table: a count pass to size the
// allocation exactly once, then a fill pass to populate it, so no index
// ever moves for the life of the kernel.
package topology

import (
	"github.com/hyglvy/project-azalea/bootlog"
	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/proctable"
)

// Enumerate performs the two-pass walk and returns a fully populated
// processor table. A count mismatch between the two passes means the
// firmware table was mutated underneath the kernel — unrecoverable.
func Enumerate(it hal.MADTIterator) *proctable.Table {
	n := countLocalAPICs(it)
	if n == 0 {
		bootlog.Fatalf("topology: MADT has zero LOCAL_APIC descriptors")
	}

	it.Rewind()
	hwIDs := make([]uint32, 0, n)
	for {
		d, ok := it.Next()
		if !ok {
			break
		}
		if d.Type != hal.LocalAPIC {
			continue
		}
		hwIDs = append(hwIDs, d.ID)
	}
	if len(hwIDs) != n {
		bootlog.Fatalf("topology: descriptor count changed between passes (%d then %d)", n, len(hwIDs))
	}

	bootlog.Milestone("topology enumerated", map[string]interface{}{"processors": n})
	return proctable.New(hwIDs)
}

func countLocalAPICs(it hal.MADTIterator) int {
	it.Rewind()
	n := 0
	for {
		d, ok := it.Next()
		if !ok {
			break
		}
		if d.Type == hal.LocalAPIC {
			n++
		}
	}
	return n
}
