package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/itamdash/internal/models"
)

// MaxRows caps every mirror query.
const MaxRows = 5000

// MirrorRepository reads tickets, hardware and assignments from the
// backend's Postgres mirror. It never writes.
type MirrorRepository struct {
	db *gorm.DB
}

// NewMirrorRepository constructs a repository using the provided gorm DB.
func NewMirrorRepository(db *gorm.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

// Tickets returns the tickets visible to the viewer, newest first. Regular
// users only see tickets they created.
func (r *MirrorRepository) Tickets(ctx context.Context, viewer models.Viewer) ([]models.Ticket, error) {
	q := r.db.WithContext(ctx).Order("created_at desc").Limit(MaxRows)
	if !viewer.IsAdmin() {
		q = q.Where("created_by = ?", viewer.UserID)
	}
	var tickets []models.Ticket
	err := q.Find(&tickets).Error
	return tickets, errors.WithStack(err)
}

// Hardware returns hardware visible to the viewer. Regular users only see
// assets assigned to them.
func (r *MirrorRepository) Hardware(ctx context.Context, viewer models.Viewer) ([]models.Hardware, error) {
	q := r.db.WithContext(ctx).Order("system_hostname asc").Limit(MaxRows)
	if !viewer.IsAdmin() {
		sub := r.db.Model(&models.AssetAssignment{}).Select("mac_address").Where("user_id = ?", viewer.UserID)
		q = q.Where("system_mac_address IN (?)", sub)
	}
	var items []models.Hardware
	err := q.Find(&items).Error
	return items, errors.WithStack(err)
}

// Users returns every active and inactive user with AssignedAssets filled
// from the assignment table.
func (r *MirrorRepository) Users(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("username asc").Limit(MaxRows).Find(&users).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	var assignments []models.AssetAssignment
	if err := r.db.WithContext(ctx).Order("assigned_at asc").Find(&assignments).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	return attachAssignments(users, assignments), nil
}

// attachAssignments fills each user's AssignedAssets in assignment order.
func attachAssignments(users []models.User, assignments []models.AssetAssignment) []models.User {
	byUser := make(map[string][]string, len(users))
	for _, a := range assignments {
		byUser[a.UserID] = append(byUser[a.UserID], a.MACAddress)
	}
	for i := range users {
		users[i].AssignedAssets = byUser[users[i].ID]
		if users[i].AssignedAssets == nil {
			users[i].AssignedAssets = []string{}
		}
	}
	return users
}
