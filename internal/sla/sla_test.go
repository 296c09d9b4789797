package sla

import (
	"testing"
	"time"

	"github.com/example/itamdash/internal/models"
)

var created = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func resolvedAfter(p models.Priority, d time.Duration) models.Ticket {
	resolved := created.Add(d)
	return models.Ticket{Priority: p, CreatedAt: created, UpdatedAt: resolved, ResolvedAt: &resolved}
}

func TestCriticalBoundaryIsInclusive(t *testing.T) {
	now := created.Add(30 * 24 * time.Hour)

	if !Compliant(resolvedAfter(models.PriorityCritical, 24*time.Hour), now) {
		t.Fatal("critical ticket resolved in exactly 24h should be compliant")
	}
	if Compliant(resolvedAfter(models.PriorityCritical, 24*time.Hour+time.Minute), now) {
		t.Fatal("critical ticket resolved in 24h1m should not be compliant")
	}
}

func TestLimitTable(t *testing.T) {
	cases := map[models.Priority]time.Duration{
		models.PriorityCritical: 24 * time.Hour,
		models.PriorityHigh:     48 * time.Hour,
		models.PriorityMedium:   72 * time.Hour,
		models.PriorityLow:      168 * time.Hour,
		"Whatever":              72 * time.Hour,
	}
	for p, want := range cases {
		if got := Limit(p); got != want {
			t.Errorf("Limit(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestUnresolvedUsesTimeSinceUpdate(t *testing.T) {
	ticket := models.Ticket{
		Priority:  models.PriorityHigh,
		CreatedAt: created,
		UpdatedAt: created.Add(10 * 24 * time.Hour),
	}
	m := Measure(ticket, created.Add(10*24*time.Hour+47*time.Hour))
	if m.TimeToResolution != nil {
		t.Fatalf("TimeToResolution = %v, want nil", *m.TimeToResolution)
	}
	if !m.Compliant {
		t.Errorf("updated 47h ago with 48h limit should be compliant")
	}
	if Days(m.Age) != 12 {
		t.Errorf("age = %d days, want 12", Days(m.Age))
	}

	m = Measure(ticket, created.Add(10*24*time.Hour+49*time.Hour))
	if m.Compliant {
		t.Errorf("updated 49h ago with 48h limit should not be compliant")
	}
}

func TestZeroUpdatedAtFallsBackToCreated(t *testing.T) {
	ticket := models.Ticket{Priority: models.PriorityLow, CreatedAt: created}
	m := Measure(ticket, created.Add(3*time.Hour))
	if Hours(m.SinceUpdate) != 3 {
		t.Errorf("since update = %dh, want 3h", Hours(m.SinceUpdate))
	}
}
