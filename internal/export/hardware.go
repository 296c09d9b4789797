package export

import (
	"io"
	"time"

	"github.com/example/itamdash/internal/models"
)

// HardwareHeaders are the columns of the hardware inventory report.
var HardwareHeaders = []string{
	"Hostname",
	"MAC Address",
	"Platform",
	"CPU",
	"Physical Cores",
	"Logical Cores",
	"Memory",
	"Storage",
	"Battery",
	"Model",
	"Location",
	"Assigned To",
	"Warranty Expiry",
}

// WriteHardware writes the hardware inventory report, resolving owners
// through idx.
func WriteHardware(w io.Writer, items []models.Hardware, idx models.AssignmentIndex) error {
	if len(items) == 0 {
		return ErrNoRows
	}
	rw := newRowWriter(w)
	rw.row(strs(HardwareHeaders)...)
	for _, h := range items {
		battery := NA
		if h.Battery != nil {
			battery = orNA(h.Battery.Percent) + "%"
		}
		owner := Unassigned
		if u, ok := idx.Owner(h.MAC()); ok {
			owner = orDefault(u.Username, u.ID)
		}
		warranty := NA
		if h.WarrantyExpiry != nil {
			warranty = h.WarrantyExpiry.Format(time.DateOnly)
		}
		rw.row(
			orDefault(h.System.Hostname, models.Unknown),
			orNA(h.MAC()),
			orDefault(h.System.Platform, models.Unknown),
			orDefault(h.CPU.Name, models.Unknown),
			h.CPU.PhysicalCores,
			h.CPU.LogicalCores,
			orNA(h.Memory.Total),
			orNA(h.Storage.TotalCapacity),
			battery,
			orNA(h.Model),
			orNA(h.Location),
			owner,
			warranty,
		)
	}
	return rw.flush()
}
