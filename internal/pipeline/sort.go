package pipeline

import (
	"slices"

	"github.com/example/itamdash/internal/models"
)

// SortMode selects how tickets are ordered after the terminal partition.
type SortMode int

const (
	// SortPartition only moves terminal tickets behind active ones.
	SortPartition SortMode = iota
	// SortByPriority additionally orders active tickets by priority rank,
	// then newest first.
	SortByPriority
)

// SortTickets returns a sorted copy of tickets. Terminal tickets always
// follow non-terminal ones and keep their relative input order.
func SortTickets(tickets []models.Ticket, mode SortMode) []models.Ticket {
	out := slices.Clone(tickets)
	slices.SortStableFunc(out, func(a, b models.Ticket) int {
		at, bt := a.Terminal(), b.Terminal()
		switch {
		case at && !bt:
			return 1
		case !at && bt:
			return -1
		case at && bt:
			return 0
		}
		if mode != SortByPriority {
			return 0
		}
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra - rb
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
