package itam

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
)

// FullFetchLimit is the page size used when the gateway wants every record.
// Larger sets are walked page by page.
const FullFetchLimit = 1000

// TicketParams select upstream tickets. Zero values are omitted.
type TicketParams struct {
	Page     int
	Limit    int
	Status   string
	Priority string
}

// TicketList is one fetch of tickets.
type TicketList struct {
	Items      []models.Ticket
	Pagination *pipeline.ServerPagination
}

// ListTickets fetches tickets visible to the caller.
func (c *Client) ListTickets(ctx context.Context, p TicketParams) (TicketList, error) {
	q := pageQuery(p.Page, p.Limit)
	if !pipeline.IsAll(p.Status) {
		q.Set("status", p.Status)
	}
	if !pipeline.IsAll(p.Priority) {
		q.Set("priority", p.Priority)
	}
	env, err := c.get(ctx, "/tickets", q)
	if err != nil {
		return TicketList{}, err
	}
	items, err := models.DecodeTickets(env.payload())
	if err != nil {
		return TicketList{}, errors.Wrap(err, "ticket list")
	}
	return TicketList{Items: items, Pagination: env.Pagination.server()}, nil
}

// AllTickets walks every page of the ticket list at FullFetchLimit.
func (c *Client) AllTickets(ctx context.Context) ([]models.Ticket, error) {
	var all []models.Ticket
	for page := 1; ; page++ {
		list, err := c.ListTickets(ctx, TicketParams{Page: page, Limit: FullFetchLimit})
		if err != nil {
			return nil, errors.Wrapf(err, "ticket page %d", page)
		}
		all = append(all, list.Items...)

		p := list.Pagination
		if p == nil || len(list.Items) == 0 || page >= p.TotalPages {
			return all, nil
		}
		if p.CurrentPage != 0 && p.CurrentPage != page {
			return nil, errors.Errorf("ticket list: asked for page %d, got page %d", page, p.CurrentPage)
		}
	}
}

// CreateTicket submits a new ticket and returns the stored record.
func (c *Client) CreateTicket(ctx context.Context, in models.TicketInput) (models.Ticket, error) {
	env, err := c.post(ctx, "/tickets", in)
	if err != nil {
		return models.Ticket{}, err
	}
	return decodeOptionalTicket(env)
}

// UpdateTicket applies an update to ticket id.
func (c *Client) UpdateTicket(ctx context.Context, id string, upd models.TicketUpdate) (models.Ticket, error) {
	env, err := c.do(ctx, http.MethodPut, "/tickets/"+url.PathEscape(id), nil, upd)
	if err != nil {
		return models.Ticket{}, err
	}
	t, err := decodeOptionalTicket(env)
	if err == nil && t.ID == "" {
		t.ID = id
	}
	return t, err
}

// UserAssets returns the hardware assigned to the caller.
func (c *Client) UserAssets(ctx context.Context) ([]models.Hardware, error) {
	env, err := c.get(ctx, "/tickets/user-assets", nil)
	if err != nil {
		return nil, err
	}
	items, err := models.DecodeHardware(env.payload())
	return items, errors.Wrap(err, "user assets")
}

func decodeOptionalTicket(env envelope) (models.Ticket, error) {
	raw := env.payload()
	if raw == nil {
		return models.Ticket{}, nil
	}
	t, err := models.DecodeTicket(raw)
	return t, errors.Wrap(err, "ticket")
}
