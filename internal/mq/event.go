package mq

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Routing keys published by the gateway.
const (
	TicketCreated   = "ticket.created"
	TicketUpdated   = "ticket.updated"
	AssetAssigned   = "asset.assigned"
	AssetUnassigned = "asset.unassigned"
)

// Event is the envelope exchanged on both exchanges.
type Event struct {
	Type       string         `json:"event"`
	Resource   string         `json:"resource"`
	ID         string         `json:"id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// NewEvent builds an event for routingKey. The resource is the key's first
// segment.
func NewEvent(routingKey, id, actor string, data map[string]any) Event {
	return Event{
		Type:       routingKey,
		Resource:   resourceOf(routingKey),
		ID:         id,
		Actor:      actor,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

// DecodeEvent parses a delivery body. Missing type and resource fields are
// taken from the routing key; an empty body is a bare notification.
func DecodeEvent(routingKey string, body []byte) (Event, error) {
	var ev Event
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &ev); err != nil {
			return Event{}, errors.Wrap(err, "decode event")
		}
	}
	if ev.Type == "" {
		ev.Type = routingKey
	}
	if ev.Resource == "" {
		ev.Resource = resourceOf(ev.Type)
	}
	if ev.Resource == "" {
		return Event{}, errors.Errorf("event %q names no resource", routingKey)
	}
	return ev, nil
}

func resourceOf(key string) string {
	resource, _, _ := strings.Cut(key, ".")
	return strings.ToLower(strings.TrimSpace(resource))
}
