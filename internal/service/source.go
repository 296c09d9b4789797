package service

import (
	"context"

	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/repository"
)

// Backend is the part of the ITAM REST API the dashboard calls.
// *itam.Client implements it.
type Backend interface {
	AllTickets(ctx context.Context) ([]models.Ticket, error)
	CreateTicket(ctx context.Context, in models.TicketInput) (models.Ticket, error)
	UpdateTicket(ctx context.Context, id string, upd models.TicketUpdate) (models.Ticket, error)
	UserAssets(ctx context.Context) ([]models.Hardware, error)
	ListHardware(ctx context.Context, p itam.HardwareParams) (itam.HardwareList, error)
	HardwareStats(ctx context.Context) (models.HardwareStats, error)
	ListSoftware(ctx context.Context) ([]models.Software, error)
	Telemetry(ctx context.Context, mac string) (*models.Telemetry, error)
	Users(ctx context.Context) ([]models.User, error)
	AssignAsset(ctx context.Context, userID, mac string) error
	AssignAssets(ctx context.Context, userID string, macs []string) error
	RemoveAsset(ctx context.Context, userID, mac string) error
	BulkAssign(ctx context.Context, assignments []models.Assignment) error
	UnassignedAssets(ctx context.Context) ([]models.Hardware, error)
	AssignmentStats(ctx context.Context) (models.AssignmentStats, error)
	WarrantyAlerts(ctx context.Context, p itam.AlertParams) (itam.AlertList, error)
}

// Source supplies the record sets the list pipeline runs over.
type Source interface {
	Name() string
	Tickets(ctx context.Context, viewer models.Viewer) ([]models.Ticket, error)
	Hardware(ctx context.Context, viewer models.Viewer, p itam.HardwareParams) (itam.HardwareList, error)
	UserAssets(ctx context.Context, viewer models.Viewer) ([]models.Hardware, error)
	Users(ctx context.Context) ([]models.User, error)
}

// APISource reads through the ITAM REST API. Role scoping is done by the
// backend based on the forwarded token.
type APISource struct {
	backend Backend
}

// NewAPISource wraps backend.
func NewAPISource(backend Backend) *APISource {
	return &APISource{backend: backend}
}

func (s *APISource) Name() string { return "api" }

func (s *APISource) Tickets(ctx context.Context, _ models.Viewer) ([]models.Ticket, error) {
	return s.backend.AllTickets(ctx)
}

func (s *APISource) Hardware(ctx context.Context, _ models.Viewer, p itam.HardwareParams) (itam.HardwareList, error) {
	return s.backend.ListHardware(ctx, p)
}

func (s *APISource) UserAssets(ctx context.Context, _ models.Viewer) ([]models.Hardware, error) {
	return s.backend.UserAssets(ctx)
}

func (s *APISource) Users(ctx context.Context) ([]models.User, error) {
	return s.backend.Users(ctx)
}

// MirrorSource reads from the read-only Postgres mirror. It always returns
// full lists, so the pipeline paginates locally.
type MirrorSource struct {
	repo *repository.MirrorRepository
}

// NewMirrorSource wraps repo.
func NewMirrorSource(repo *repository.MirrorRepository) *MirrorSource {
	return &MirrorSource{repo: repo}
}

func (s *MirrorSource) Name() string { return "mirror" }

func (s *MirrorSource) Tickets(ctx context.Context, viewer models.Viewer) ([]models.Ticket, error) {
	return s.repo.Tickets(ctx, viewer)
}

func (s *MirrorSource) Hardware(ctx context.Context, viewer models.Viewer, _ itam.HardwareParams) (itam.HardwareList, error) {
	items, err := s.repo.Hardware(ctx, viewer)
	if err != nil {
		return itam.HardwareList{}, err
	}
	return itam.HardwareList{Items: items}, nil
}

func (s *MirrorSource) UserAssets(ctx context.Context, viewer models.Viewer) ([]models.Hardware, error) {
	viewer.Role = models.RoleUser
	return s.repo.Hardware(ctx, viewer)
}

func (s *MirrorSource) Users(ctx context.Context) ([]models.User, error) {
	return s.repo.Users(ctx)
}
