package pipeline

import (
	"strings"
	"time"

	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/sla"
)

// All is the filter value that disables a predicate.
const All = "all"

// Unassigned matches tickets without an assignee in TicketFilter.AssignedTo.
const Unassigned = "unassigned"

// Date range tokens accepted by TicketFilter.DateRange.
const (
	RangeToday   = "today"
	RangeWeek    = "week"
	RangeMonth   = "month"
	RangeQuarter = "quarter"
)

// ExclusionPolicy decides when terminal tickets are hidden while the status
// filter is "all".
type ExclusionPolicy int

const (
	// ShowAll never hides terminal tickets.
	ShowAll ExclusionPolicy = iota
	// ExcludeTerminalAlways hides Closed and Rejected tickets.
	ExcludeTerminalAlways
	// ExcludeTerminalWhenFiltered hides Closed and Rejected tickets only
	// when some other filter is active.
	ExcludeTerminalWhenFiltered
)

// TicketFilter holds the list filters for tickets. Empty strings behave like
// All.
type TicketFilter struct {
	Status     string    `form:"status" json:"status"`
	Priority   string    `form:"priority" json:"priority"`
	Category   string    `form:"category" json:"category"`
	Search     string    `form:"search" json:"search"`
	DateRange  string    `form:"dateRange" json:"dateRange"`
	AssignedTo string    `form:"assignedTo" json:"assignedTo"`
	SLA        string    `form:"sla" json:"sla,omitempty"`
	StartDate  time.Time `form:"startDate" time_format:"2006-01-02" json:"startDate,omitempty"`
	EndDate    time.Time `form:"endDate" time_format:"2006-01-02" json:"endDate,omitempty"`
}

// IsAll reports whether a filter value leaves its predicate disabled.
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All)
}

// OthersActive reports whether any filter other than status narrows the
// result.
func (f TicketFilter) OthersActive() bool {
	return !IsAll(f.Priority) ||
		!IsAll(f.Category) ||
		strings.TrimSpace(f.Search) != "" ||
		!IsAll(f.DateRange) ||
		!IsAll(f.AssignedTo) ||
		!IsAll(f.SLA) ||
		!f.StartDate.IsZero() ||
		!f.EndDate.IsZero()
}

// RangeStart returns the lower created_at bound for a date range token, and
// false when the token does not constrain dates.
func RangeStart(token string, now time.Time) (time.Time, bool) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case RangeWeek:
		return now.AddDate(0, 0, -7), true
	case RangeMonth:
		return now.AddDate(0, 0, -30), true
	case RangeQuarter:
		return now.AddDate(0, 0, -90), true
	default:
		return time.Time{}, false
	}
}

// FilterTickets returns the tickets matching every predicate of f, in input
// order.
func FilterTickets(tickets []models.Ticket, f TicketFilter, policy ExclusionPolicy, now time.Time) []models.Ticket {
	hideTerminal := false
	if IsAll(f.Status) {
		switch policy {
		case ExcludeTerminalAlways:
			hideTerminal = true
		case ExcludeTerminalWhenFiltered:
			hideTerminal = f.OthersActive()
		}
	}
	rangeStart, hasRange := RangeStart(f.DateRange, now)
	search := strings.ToLower(strings.TrimSpace(f.Search))
	// end date is inclusive of the whole day
	var endBound time.Time
	if !f.EndDate.IsZero() {
		endBound = f.EndDate.AddDate(0, 0, 1)
	}

	out := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if hideTerminal && t.Terminal() {
			continue
		}
		if !IsAll(f.Status) && string(t.Status) != f.Status {
			continue
		}
		if !IsAll(f.Priority) && string(t.Priority) != f.Priority {
			continue
		}
		if !IsAll(f.Category) && t.Category != f.Category {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		if hasRange && t.CreatedAt.Before(rangeStart) {
			continue
		}
		if !matchesAssignee(t, f.AssignedTo) {
			continue
		}
		if !f.StartDate.IsZero() && t.CreatedAt.Before(f.StartDate) {
			continue
		}
		if !endBound.IsZero() && !t.CreatedAt.Before(endBound) {
			continue
		}
		if !matchesSLA(t, f.SLA, now) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t models.Ticket, needle string) bool {
	for _, field := range []string{t.Title, t.Description, t.TicketID, t.CreatedBy, t.AssetHost} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func matchesAssignee(t models.Ticket, assignedTo string) bool {
	switch {
	case IsAll(assignedTo):
		return true
	case strings.EqualFold(assignedTo, Unassigned):
		return !t.Assigned()
	default:
		return t.Assignee == assignedTo
	}
}

func matchesSLA(t models.Ticket, want string, now time.Time) bool {
	switch strings.ToLower(strings.TrimSpace(want)) {
	case "yes":
		return sla.Compliant(t, now)
	case "no":
		return !sla.Compliant(t, now)
	default:
		return true
	}
}
