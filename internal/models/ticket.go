package models

import (
	"time"
)

// TicketStatus describes the life-cycle state of a support ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
	TicketStatusRejected   TicketStatus = "Rejected"
)

// TicketStatuses lists every known status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
	TicketStatusRejected,
}

// Terminal reports whether the status hides a ticket from default active views.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusRejected
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	for _, known := range TicketStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority is the urgency of a ticket.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Priorities lists every known priority from most to least urgent.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Rank orders priorities for sorting: Critical=1 through Low=4, anything else 5.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	case PriorityLow:
		return 4
	default:
		return 5
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() < 5
}

// TicketCategories are the categories accepted by the ticket creation form.
var TicketCategories = []string{
	"Hardware Issue",
	"Software Issue",
	"Network Issue",
	"Performance Issue",
	"Maintenance Request",
	"Access Request",
	"Other",
}

// Ticket is the strict internal form of a support ticket. Records coming from
// the ITAM API are normalized into this shape once, at the boundary.
type Ticket struct {
	ID           string       `gorm:"primaryKey" json:"id"`
	TicketID     string       `gorm:"column:ticket_id" json:"ticket_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TicketStatus `json:"status"`
	Priority     Priority     `json:"priority"`
	Category     string       `json:"category"`
	Subcategory  string       `json:"subcategory,omitempty"`
	CreatedByID  string       `gorm:"column:created_by" json:"created_by"`
	CreatedBy    string       `gorm:"column:created_by_name" json:"created_by_name"`
	AssigneeID   string       `gorm:"column:assigned_to" json:"assigned_to,omitempty"`
	Assignee     string       `gorm:"column:assigned_to_name" json:"assigned_to_name,omitempty"`
	AssetID      string       `gorm:"column:asset_id" json:"asset_id"`
	AssetHost    string       `gorm:"column:asset_hostname" json:"asset_hostname"`
	AssetModel   string       `gorm:"column:asset_model" json:"asset_model"`
	AssetSite    string       `gorm:"column:asset_location" json:"asset_location,omitempty"`
	Resolution   string       `json:"resolution,omitempty"`
	ResolveNotes string       `gorm:"column:resolution_notes" json:"resolution_notes,omitempty"`
	ResolvedBy   string       `gorm:"column:resolved_by_name" json:"resolved_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	ResolvedAt   *time.Time   `json:"resolved_at,omitempty"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty"`

	BusinessImpact  string   `gorm:"column:business_impact" json:"business_impact,omitempty"`
	EscalationLevel string   `gorm:"column:escalation_level" json:"escalation_level,omitempty"`
	Tags            []string `gorm:"serializer:json" json:"tags,omitempty"`
	RelatedTickets  []string `gorm:"serializer:json" json:"related_tickets,omitempty"`
	Satisfaction    string   `gorm:"column:customer_satisfaction" json:"customer_satisfaction,omitempty"`
	WorkNotes       string   `gorm:"column:work_notes" json:"work_notes,omitempty"`
	Department      string   `json:"department,omitempty"`
	CostCenter      string   `gorm:"column:cost_center" json:"cost_center,omitempty"`
}

// TableName binds the mirror table.
func (Ticket) TableName() string { return "tickets" }

// Terminal reports whether the ticket is Closed or Rejected.
func (t Ticket) Terminal() bool { return t.Status.Terminal() }

// Assigned reports whether the ticket has an assignee.
func (t Ticket) Assigned() bool { return t.Assignee != "" || t.AssigneeID != "" }

// TicketInput is the body accepted by the ticket creation form.
type TicketInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	AssetID     string   `json:"asset_id"`
}

// TicketUpdate carries the mutable fields of the detail view. Nil fields are
// left unchanged.
type TicketUpdate struct {
	Status          *TicketStatus `json:"status,omitempty"`
	Priority        *Priority     `json:"priority,omitempty"`
	ResolutionNotes *string       `json:"resolution_notes,omitempty"`
	AssignedTo      *string       `json:"assigned_to,omitempty"`
}
