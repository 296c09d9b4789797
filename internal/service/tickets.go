package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/cache"
	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/mq"
	"github.com/example/itamdash/internal/pipeline"
)

func (s *DashboardService) tickets(ctx context.Context, viewer models.Viewer) (Result[[]models.Ticket], error) {
	return cached(ctx, s, cacheKey(resTickets, viewer), cache.TicketsTTL,
		func(ctx context.Context) ([]models.Ticket, error) {
			return s.source.Tickets(ctx, viewer)
		})
}

func policyFor(viewer models.Viewer, view string) (pipeline.Policy, error) {
	policy, ok := pipeline.PolicyFor(view)
	if !ok {
		return policy, &ValidationError{Fields: map[string]string{"view": "must be admin or dashboard"}}
	}
	if view == "admin" && !viewer.IsAdmin() {
		return policy, ErrForbidden
	}
	return policy, nil
}

// TicketView returns one page of tickets and the stat cards for the named
// view. The viewer's position is remembered per view: a query without a page
// resumes where the viewer was, and changing the filter or the page size
// goes back to page one.
func (s *DashboardService) TicketView(ctx context.Context, viewer models.Viewer, view string, q pipeline.TicketQuery) (Result[pipeline.TicketView], error) {
	policy, err := policyFor(viewer, view)
	if err != nil {
		return Result[pipeline.TicketView]{}, err
	}
	res, err := s.tickets(ctx, viewer)
	if err != nil {
		return Result[pipeline.TicketView]{}, err
	}

	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()
	key := view + "|" + viewer.UserID
	cur := s.moveCursor(key, q)
	q.Page, q.PerPage = cur.Page, cur.PerPage
	data := pipeline.RunTickets(res.Data, q, policy, s.clock.Now())
	s.cursors[key] = cur.Clamp(data.Page.TotalPages)

	return Result[pipeline.TicketView]{Data: data, Stale: res.Stale, StoredAt: res.StoredAt}, nil
}

// moveCursor applies q to the viewer's stored position. Callers hold
// cursorMu.
func (s *DashboardService) moveCursor(key string, q pipeline.TicketQuery) pipeline.Cursor[pipeline.TicketFilter] {
	prev, ok := s.cursors[key]
	if !ok {
		prev = pipeline.NewCursor[pipeline.TicketFilter](q.PerPage).WithFilter(q.Filter)
	}
	cur := prev.WithFilter(q.Filter).WithPerPage(q.PerPage)
	moved := cur.Filter != prev.Filter || cur.PerPage != prev.PerPage
	if q.Page > 0 && !moved {
		cur = cur.WithPage(q.Page)
	}
	return cur
}

// TicketStats returns only the stat cards of a ticket view. It leaves the
// viewer's position alone.
func (s *DashboardService) TicketStats(ctx context.Context, viewer models.Viewer, view string, f pipeline.TicketFilter) (Result[pipeline.TicketStats], error) {
	policy, err := policyFor(viewer, view)
	if err != nil {
		return Result[pipeline.TicketStats]{}, err
	}
	res, err := s.tickets(ctx, viewer)
	if err != nil {
		return Result[pipeline.TicketStats]{}, err
	}
	data := pipeline.RunTickets(res.Data, pipeline.TicketQuery{Filter: f, Page: 1}, policy, s.clock.Now())
	return Result[pipeline.TicketStats]{Data: data.Stats, Stale: res.Stale, StoredAt: res.StoredAt}, nil
}

// ExportTickets returns every ticket matching f, sorted for export.
// Terminal tickets are kept.
func (s *DashboardService) ExportTickets(ctx context.Context, viewer models.Viewer, f pipeline.TicketFilter) (Result[[]models.Ticket], error) {
	res, err := s.tickets(ctx, viewer)
	if err != nil {
		return res, err
	}
	policy := pipeline.ExportPolicy
	sorted := pipeline.SortTickets(res.Data, policy.Sort)
	res.Data = pipeline.FilterTickets(sorted, f, policy.Exclusion, s.clock.Now())
	return res, nil
}

// ValidateTicket checks a ticket creation form.
func ValidateTicket(in models.TicketInput) error {
	v := validator{}
	title := utf8.RuneCountInString(strings.TrimSpace(in.Title))
	v.check(title > 0, "title", "is required")
	v.check(title >= 5, "title", "must be at least 5 characters")
	v.check(title <= 200, "title", "must be at most 200 characters")

	desc := utf8.RuneCountInString(strings.TrimSpace(in.Description))
	v.check(desc > 0, "description", "is required")
	v.check(desc >= 20, "description", "must be at least 20 characters")
	v.check(desc <= 2000, "description", "must be at most 2000 characters")

	v.check(in.Category != "", "category", "is required")
	v.check(in.Category == "" || validCategory(in.Category), "category", "is not a known category")
	v.check(in.Priority.Valid(), "priority", "must be Low, Medium, High or Critical")
	v.check(strings.TrimSpace(in.AssetID) != "", "asset_id", "is required")
	return v.err()
}

func validCategory(c string) bool {
	for _, known := range models.TicketCategories {
		if c == known {
			return true
		}
	}
	return false
}

// CreateTicket validates and submits a ticket. Users may only raise tickets
// against assets assigned to them.
func (s *DashboardService) CreateTicket(ctx context.Context, viewer models.Viewer, in models.TicketInput) (models.Ticket, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if err := ValidateTicket(in); err != nil {
		return models.Ticket{}, err
	}

	if !viewer.IsAdmin() {
		assets, err := s.UserAssets(ctx, viewer)
		if err != nil {
			return models.Ticket{}, err
		}
		if !ownsAsset(assets.Data, in.AssetID) {
			return models.Ticket{}, &ValidationError{Fields: map[string]string{"asset_id": "is not assigned to you"}}
		}
	}

	t, err := s.backend.CreateTicket(ctx, in)
	if err != nil {
		return models.Ticket{}, errors.Wrap(err, "create ticket")
	}
	s.invalidate(resTickets)
	s.publish(ctx, mq.TicketCreated, t.ID, viewer, map[string]any{
		"ticketId": t.TicketID,
		"title":    in.Title,
		"priority": in.Priority,
		"category": in.Category,
		"assetId":  in.AssetID,
	})
	return t, nil
}

func ownsAsset(assets []models.Hardware, id string) bool {
	for _, h := range assets {
		if h.ID == id || models.SameMAC(h.MAC(), id) {
			return true
		}
	}
	return false
}

// UpdateTicket applies an admin update to ticket id.
func (s *DashboardService) UpdateTicket(ctx context.Context, viewer models.Viewer, id string, upd models.TicketUpdate) (models.Ticket, error) {
	if err := requireAdmin(viewer); err != nil {
		return models.Ticket{}, err
	}
	v := validator{}
	v.check(upd.Status == nil || upd.Status.Valid(), "status", "is not a known status")
	v.check(upd.Priority == nil || upd.Priority.Valid(), "priority", "is not a known priority")
	v.check(upd.Status != nil || upd.Priority != nil || upd.ResolutionNotes != nil || upd.AssignedTo != nil, "body", "no changes")
	if err := v.err(); err != nil {
		return models.Ticket{}, err
	}

	t, err := s.backend.UpdateTicket(ctx, id, upd)
	if err != nil {
		return models.Ticket{}, errors.Wrapf(err, "update ticket %s", id)
	}
	s.invalidate(resTickets)
	data := map[string]any{}
	if upd.Status != nil {
		data["status"] = *upd.Status
	}
	if upd.Priority != nil {
		data["priority"] = *upd.Priority
	}
	if upd.AssignedTo != nil {
		data["assignedTo"] = *upd.AssignedTo
	}
	s.publish(ctx, mq.TicketUpdated, id, viewer, data)
	return t, nil
}
