package itam

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/models"
)

// Users lists every account. Admin only upstream.
func (c *Client) Users(ctx context.Context) ([]models.User, error) {
	env, err := c.get(ctx, "/auth/users", nil)
	if err != nil {
		return nil, err
	}
	users, err := models.DecodeUsers(env.payload())
	return users, errors.Wrap(err, "users")
}

// AssignAsset gives one asset to a user.
func (c *Client) AssignAsset(ctx context.Context, userID, mac string) error {
	_, err := c.post(ctx, "/auth/assign-asset", map[string]any{"userId": userID, "macAddress": mac})
	return err
}

// AssignAssets gives several assets to one user.
func (c *Client) AssignAssets(ctx context.Context, userID string, macs []string) error {
	_, err := c.post(ctx, "/auth/assign-asset", map[string]any{"userId": userID, "macAddresses": macs})
	return err
}

// RemoveAsset takes an asset away from a user.
func (c *Client) RemoveAsset(ctx context.Context, userID, mac string) error {
	_, err := c.post(ctx, "/auth/remove-asset", map[string]any{"userId": userID, "macAddress": mac})
	return err
}

// BulkAssign applies many user/asset pairs in one request.
func (c *Client) BulkAssign(ctx context.Context, assignments []models.Assignment) error {
	_, err := c.post(ctx, "/auth/bulk-assign", map[string]any{"assignments": assignments})
	return err
}

// UnassignedAssets lists hardware nobody holds.
func (c *Client) UnassignedAssets(ctx context.Context) ([]models.Hardware, error) {
	env, err := c.get(ctx, "/auth/unassigned-assets", nil)
	if err != nil {
		return nil, err
	}
	items, err := models.DecodeHardware(env.payload())
	return items, errors.Wrap(err, "unassigned assets")
}

// AssignmentStats fetches assignment totals.
func (c *Client) AssignmentStats(ctx context.Context) (models.AssignmentStats, error) {
	var stats models.AssignmentStats
	env, err := c.get(ctx, "/auth/assignment-stats", nil)
	if err != nil {
		return stats, err
	}
	if raw := env.payload(); raw != nil {
		if err := json.Unmarshal(raw, &stats); err != nil {
			return stats, errors.Wrap(err, "assignment stats")
		}
	}
	return stats, nil
}
