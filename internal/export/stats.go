package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
	"github.com/example/itamdash/internal/sla"
)

var statusDetails = map[models.TicketStatus]struct{ label, detail string }{
	models.TicketStatusOpen:       {"Open Tickets", "Awaiting resolution"},
	models.TicketStatusInProgress: {"In Progress", "Currently being worked on"},
	models.TicketStatusResolved:   {"Resolved", "Successfully resolved"},
	models.TicketStatusClosed:     {"Closed", "Archived tickets"},
	models.TicketStatusRejected:   {"Rejected", "Declined tickets"},
}

var priorityDetails = map[models.Priority]string{
	models.PriorityCritical: "Highest priority",
	models.PriorityHigh:     "High priority",
	models.PriorityMedium:   "Medium priority",
	models.PriorityLow:      "Lowest priority",
}

func pct(part, whole int) string {
	return fmt.Sprintf("%.1f%%", pipeline.Percent(part, whole))
}

// WriteStats writes the Metric/Count/Percentage/Details summary of the
// tickets: status and priority breakdowns, SLA compliance, mean resolution
// time and per-category counts in first-seen order.
func WriteStats(w io.Writer, tickets []models.Ticket, now time.Time) error {
	total := len(tickets)
	if total == 0 {
		return ErrNoRows
	}
	stats := pipeline.ComputeTicketStats(tickets, total)

	rw := newRowWriter(w)
	rw.row("Metric", "Count", "Percentage", "Details")
	rw.row("Total Tickets", total, "100%", "All tickets in the system")
	for _, st := range models.TicketStatuses {
		d := statusDetails[st]
		rw.row(d.label, stats.ByStatus[st], pct(stats.ByStatus[st], total), d.detail)
	}
	rw.row("", "", "", "")
	for _, p := range models.Priorities {
		n := stats.ByPriority[p]
		rw.row(string(p)+" Priority", n, pct(n, total), priorityDetails[p])
	}
	rw.row("", "", "", "")

	compliant := 0
	var resolvedCount int
	var resolvedSum time.Duration
	for _, t := range tickets {
		if sla.Compliant(t, now) {
			compliant++
		}
		if t.Status == models.TicketStatusResolved || t.Status == models.TicketStatusClosed {
			end := t.UpdatedAt
			if t.ResolvedAt != nil {
				end = *t.ResolvedAt
			}
			resolvedSum += end.Sub(t.CreatedAt)
			resolvedCount++
		}
	}
	avgHours := 0
	if resolvedCount > 0 {
		avgHours = int(math.Round((resolvedSum / time.Duration(resolvedCount)).Hours()))
	}
	rw.row("SLA Compliant", compliant, pct(compliant, total), "Within SLA limits")
	rw.row("SLA Non-Compliant", total-compliant, pct(total-compliant, total), "Exceeded SLA limits")
	rw.row("Average Resolution Time", avgHours, "hours", "Mean time to resolve")
	rw.row("", "", "", "")

	var order []string
	counts := map[string]int{}
	for _, t := range tickets {
		c := orDefault(t.Category, "Uncategorized")
		if _, seen := counts[c]; !seen {
			order = append(order, c)
		}
		counts[c]++
	}
	for _, c := range order {
		rw.row(c+" Category", counts[c], pct(counts[c], total), "Tickets by category")
	}
	return rw.flush()
}
