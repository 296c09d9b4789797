package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
	"github.com/example/itamdash/internal/sla"
)

// TicketHeaders are the columns of the ticket report.
var TicketHeaders = []string{
	"Ticket ID",
	"Title",
	"Description",
	"Status",
	"Priority",
	"Category",
	"Subcategory",
	"Created By",
	"Created Date",
	"Assigned To",
	"Asset ID",
	"Asset Hostname",
	"Asset Model",
	"Asset Location",
	"Resolution",
	"Resolution Notes",
	"Resolved By",
	"Resolved Date",
	"Last Updated",
	"Time to Resolution (Hours)",
	"Time Since Update (Hours)",
	"Ticket Age (Days)",
	"SLA Limit (Hours)",
	"SLA Compliant",
	"Business Impact",
	"Escalation Level",
	"Tags",
	"Related Tickets",
	"Customer Satisfaction",
	"Work Notes",
	"Department",
	"Cost Center",
}

// TicketRow returns the report fields for one ticket, unescaped.
func TicketRow(t models.Ticket, now time.Time) []string {
	m := sla.Measure(t, now)
	resolution := NA
	if m.TimeToResolution != nil {
		resolution = fmt.Sprintf("%dh", sla.Hours(*m.TimeToResolution))
	}
	compliant := "No"
	if m.Compliant {
		compliant = "Yes"
	}
	return []string{
		orNA(t.TicketID),
		orNA(t.Title),
		orNA(t.Description),
		orNA(string(t.Status)),
		orNA(string(t.Priority)),
		orNA(t.Category),
		orNA(t.Subcategory),
		orNA(t.CreatedBy),
		formatDate(t.CreatedAt),
		orDefault(t.Assignee, Unassigned),
		orNA(t.AssetID),
		orNA(t.AssetHost),
		orNA(t.AssetModel),
		orNA(t.AssetSite),
		orNA(t.Resolution),
		orNA(t.ResolveNotes),
		orNA(t.ResolvedBy),
		formatDatePtr(t.ResolvedAt),
		formatDate(t.UpdatedAt),
		resolution,
		fmt.Sprintf("%dh", sla.Hours(m.SinceUpdate)),
		fmt.Sprintf("%dd", sla.Days(m.Age)),
		fmt.Sprintf("%dh", sla.Hours(m.Limit)),
		compliant,
		orDefault(t.BusinessImpact, "Medium"),
		orDefault(t.EscalationLevel, "None"),
		orNA(strings.Join(t.Tags, ", ")),
		orNA(strings.Join(t.RelatedTickets, ", ")),
		orNA(t.Satisfaction),
		orNA(t.WorkNotes),
		orDefault(t.Department, "IT"),
		orNA(t.CostCenter),
	}
}

// WriteTickets writes the ticket report. It returns ErrNoRows for an empty
// list.
func WriteTickets(w io.Writer, tickets []models.Ticket, now time.Time) error {
	if len(tickets) == 0 {
		return ErrNoRows
	}
	rw := newRowWriter(w)
	rw.row(strs(TicketHeaders)...)
	for _, t := range tickets {
		rw.row(strs(TicketRow(t, now))...)
	}
	return rw.flush()
}

// TicketFilename names a ticket export after its active filters in the
// order status, priority, category, start, end, SLA.
func TicketFilename(prefix string, f pipeline.TicketFilter, now time.Time) string {
	var tokens []string
	for _, v := range []string{f.Status, f.Priority, f.Category} {
		if !pipeline.IsAll(v) {
			tokens = append(tokens, v)
		}
	}
	if !f.StartDate.IsZero() {
		tokens = append(tokens, "from", f.StartDate.Format("2006-01-02"))
	}
	if !f.EndDate.IsZero() {
		tokens = append(tokens, "to", f.EndDate.Format("2006-01-02"))
	}
	if !pipeline.IsAll(f.SLA) {
		tokens = append(tokens, "SLA", f.SLA)
	}
	return Filename(prefix, now, tokens...)
}

func strs(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
