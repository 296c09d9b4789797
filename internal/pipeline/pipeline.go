// Package pipeline implements the list views of the dashboard: filter, sort,
// paginate and summarize tickets, hardware and software. Every function
// works on copies and leaves its input untouched.
package pipeline

import (
	"strings"
	"time"

	"github.com/example/itamdash/internal/models"
)

// Policy bundles the exclusion and sort rules of one view.
type Policy struct {
	Exclusion ExclusionPolicy
	Sort      SortMode
}

var (
	// AdminPolicy backs the admin ticket list.
	AdminPolicy = Policy{Exclusion: ExcludeTerminalAlways, Sort: SortByPriority}
	// DashboardPolicy backs the user dashboard.
	DashboardPolicy = Policy{Exclusion: ExcludeTerminalWhenFiltered, Sort: SortPartition}
	// ExportPolicy keeps every ticket so exports match the chosen filters
	// exactly.
	ExportPolicy = Policy{Exclusion: ShowAll, Sort: SortByPriority}
)

// PolicyFor maps a view name to its policy.
func PolicyFor(view string) (Policy, bool) {
	switch strings.ToLower(view) {
	case "admin":
		return AdminPolicy, true
	case "dashboard", "":
		return DashboardPolicy, true
	case "export", "all":
		return ExportPolicy, true
	default:
		return Policy{}, false
	}
}

// TicketQuery is one list request.
type TicketQuery struct {
	Filter  TicketFilter
	Page    int
	PerPage int
}

// TicketView is the result of running a ticket query.
type TicketView struct {
	Page  Page[models.Ticket] `json:"page"`
	Stats TicketStats         `json:"stats"`
}

// RunTickets sorts, filters and paginates tickets, and summarizes the
// filtered set.
func RunTickets(tickets []models.Ticket, q TicketQuery, policy Policy, now time.Time) TicketView {
	sorted := SortTickets(tickets, policy.Sort)
	filtered := FilterTickets(sorted, q.Filter, policy.Exclusion, now)
	return TicketView{
		Page:  Paginate(filtered, q.Page, q.PerPage),
		Stats: ComputeTicketStats(filtered, len(tickets)),
	}
}

// AssetQuery is one hardware or software list request.
type AssetQuery struct {
	Filter  AssetFilter
	Page    int
	PerPage int
}

// HardwareView is the result of running a hardware query.
type HardwareView struct {
	Page  Page[models.Hardware] `json:"page"`
	Stats HardwareStats         `json:"stats"`
}

// RunHardware filters and paginates hardware.
func RunHardware(items []models.Hardware, q AssetQuery, idx models.AssignmentIndex) HardwareView {
	filtered := FilterHardware(items, q.Filter, idx)
	return HardwareView{
		Page:  Paginate(filtered, q.Page, q.PerPage),
		Stats: ComputeHardwareStats(filtered, idx),
	}
}

// SoftwareView is the result of running a software query.
type SoftwareView struct {
	Page  Page[models.Software] `json:"page"`
	Stats SoftwareStats         `json:"stats"`
}

// RunSoftware filters and paginates software inventories.
func RunSoftware(items []models.Software, q AssetQuery) SoftwareView {
	filtered := FilterSoftware(items, q.Filter)
	return SoftwareView{
		Page:  Paginate(filtered, q.Page, q.PerPage),
		Stats: ComputeSoftwareStats(filtered),
	}
}
