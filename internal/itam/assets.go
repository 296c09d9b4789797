package itam

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
)

// HardwareParams select one upstream hardware page.
type HardwareParams struct {
	Page   int
	Limit  int
	Search string
	Filter string
}

// HardwareList is one page of hardware. Pagination is nil when the backend
// returned the full list.
type HardwareList struct {
	Items      []models.Hardware
	Pagination *pipeline.ServerPagination
}

// ListHardware fetches hardware assets visible to the caller.
func (c *Client) ListHardware(ctx context.Context, p HardwareParams) (HardwareList, error) {
	q := pageQuery(p.Page, p.Limit)
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Filter != "" && p.Filter != pipeline.All {
		q.Set("filter", p.Filter)
	}
	env, err := c.get(ctx, "/hardware", q)
	if err != nil {
		return HardwareList{}, err
	}
	items, err := models.DecodeHardware(env.payload())
	if err != nil {
		return HardwareList{}, errors.Wrap(err, "hardware list")
	}
	return HardwareList{Items: items, Pagination: env.Pagination.server()}, nil
}

// HardwareStats fetches the backend's inventory statistics.
func (c *Client) HardwareStats(ctx context.Context) (models.HardwareStats, error) {
	var stats models.HardwareStats
	env, err := c.get(ctx, "/hardware/stats", nil)
	if err != nil {
		return stats, err
	}
	if raw := env.payload(); raw != nil {
		if err := json.Unmarshal(raw, &stats); err != nil {
			return stats, errors.Wrap(err, "hardware stats")
		}
	}
	return stats, nil
}

// ListSoftware fetches the software inventories visible to the caller.
func (c *Client) ListSoftware(ctx context.Context) ([]models.Software, error) {
	env, err := c.get(ctx, "/software", nil)
	if err != nil {
		return nil, err
	}
	items, err := models.DecodeSoftware(env.payload())
	return items, errors.Wrap(err, "software list")
}

// Telemetry returns the latest telemetry for a machine, or nil when the
// backend has none.
func (c *Client) Telemetry(ctx context.Context, mac string) (*models.Telemetry, error) {
	env, err := c.get(ctx, "/telemetry/"+url.PathEscape(mac), nil)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw := env.payload()
	if len(raw) > 0 && raw[0] == '{' {
		raw = append(append([]byte{'['}, raw...), ']')
	}
	samples, err := models.DecodeTelemetry(raw)
	if err != nil {
		return nil, errors.Wrap(err, "telemetry")
	}
	if len(samples) == 0 {
		return nil, nil
	}
	latest := samples[0]
	for _, s := range samples[1:] {
		if s.LastUpdated.After(latest.LastUpdated) {
			latest = s
		}
	}
	if latest.MACAddress == "" {
		latest.MACAddress = mac
	}
	return &latest, nil
}
