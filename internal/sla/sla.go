// Package sla computes ticket service-level metrics: resolution time, age,
// time since last update and compliance against the priority limit table.
package sla

import (
	"math"
	"time"

	"github.com/example/itamdash/internal/models"
)

// DefaultLimit applies to tickets whose priority is not in the table.
const DefaultLimit = 72 * time.Hour

var limits = map[models.Priority]time.Duration{
	models.PriorityCritical: 24 * time.Hour,
	models.PriorityHigh:     48 * time.Hour,
	models.PriorityMedium:   72 * time.Hour,
	models.PriorityLow:      168 * time.Hour,
}

// Limit returns the maximum time allowed to resolve or update a ticket of
// the given priority.
func Limit(p models.Priority) time.Duration {
	if d, ok := limits[p]; ok {
		return d
	}
	return DefaultLimit
}

// Metrics are the time-based figures derived for one ticket.
type Metrics struct {
	// TimeToResolution is nil for tickets that have not been resolved.
	TimeToResolution *time.Duration
	SinceUpdate      time.Duration
	Age              time.Duration
	Limit            time.Duration
	Compliant        bool
}

// Measure derives the ticket's metrics as of now. A resolved ticket is
// compliant when its resolution time is within the limit; an unresolved one
// when its last update is. Both bounds are inclusive.
func Measure(t models.Ticket, now time.Time) Metrics {
	m := Metrics{
		SinceUpdate: nonNegative(now.Sub(lastUpdate(t))),
		Age:         nonNegative(now.Sub(t.CreatedAt)),
		Limit:       Limit(t.Priority),
	}
	if t.ResolvedAt != nil && !t.ResolvedAt.IsZero() {
		d := nonNegative(t.ResolvedAt.Sub(t.CreatedAt))
		m.TimeToResolution = &d
		m.Compliant = d <= m.Limit
	} else {
		m.Compliant = m.SinceUpdate <= m.Limit
	}
	return m
}

// Compliant is shorthand for Measure(t, now).Compliant.
func Compliant(t models.Ticket, now time.Time) bool {
	return Measure(t, now).Compliant
}

// Hours rounds d to whole hours.
func Hours(d time.Duration) int {
	return int(math.Round(d.Hours()))
}

// Days rounds d to whole days.
func Days(d time.Duration) int {
	return int(math.Round(d.Hours() / 24))
}

func lastUpdate(t models.Ticket) time.Time {
	if t.UpdatedAt.IsZero() {
		return t.CreatedAt
	}
	return t.UpdatedAt
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
