package pipeline

import (
	"math"

	"github.com/example/itamdash/internal/models"
)

// TicketStats summarizes a filtered ticket list.
type TicketStats struct {
	Total          int                         `json:"total"`
	ByStatus       map[models.TicketStatus]int `json:"byStatus"`
	ByPriority     map[models.Priority]int     `json:"byPriority"`
	Unfiltered     int                         `json:"unfiltered"`
	PercentOfTotal float64                     `json:"percentOfTotal"`
}

// ComputeTicketStats counts filtered tickets per status and priority.
// Every known status and priority is present in the maps, even at zero.
func ComputeTicketStats(filtered []models.Ticket, unfiltered int) TicketStats {
	s := TicketStats{
		Total:      len(filtered),
		ByStatus:   make(map[models.TicketStatus]int, len(models.TicketStatuses)),
		ByPriority: make(map[models.Priority]int, len(models.Priorities)),
		Unfiltered: unfiltered,
	}
	for _, st := range models.TicketStatuses {
		s.ByStatus[st] = 0
	}
	for _, p := range models.Priorities {
		s.ByPriority[p] = 0
	}
	for _, t := range filtered {
		s.ByStatus[t.Status]++
		s.ByPriority[t.Priority]++
	}
	s.PercentOfTotal = Percent(len(filtered), unfiltered)
	return s
}

// Percent returns part/whole*100 rounded to one decimal, or 0 when whole is
// zero.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
