// Package selfid resolves the executing processor's hardware id to its
// dense kernel id by looking it up against the full processor table.
package selfid

import (
	"github.com/hyglvy/project-azalea/bootlog"
	"github.com/hyglvy/project-azalea/hal"
	"github.com/hyglvy/project-azalea/proctable"
)

// Resolver answers "what kernel_id am I" for the calling processor.
type Resolver struct {
	Table *proctable.Table
	IC    hal.InterruptController
}

// ThisProcessorID returns the kernel_id of the executing processor. If
// Table is empty (pre-enumeration), it returns 0, defining the BSP
// identity during early init. A hardware id absent from a populated
// table is fatal — it means the table was built wrong or the CPU is not
// one the kernel knows about.
func (r *Resolver) ThisProcessorID() int {
	if r.Table == nil || r.Table.Count() == 0 {
		return 0
	}
	hwID := r.IC.LocalHardwareID()
	id := r.Table.IndexByHWID(hwID)
	if id < 0 {
		bootlog.Fatalf("selfid: hw_id %#x not present in processor table", hwID)
	}
	return id
}
