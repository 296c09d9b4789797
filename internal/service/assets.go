package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/cache"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/mq"
	"github.com/example/itamdash/internal/pipeline"
)

// HardwareView returns one page of hardware with its stat cards. When the
// source paginates on the server the page is adopted as is; otherwise the
// full list is filtered and paginated locally.
func (s *DashboardService) HardwareView(ctx context.Context, viewer models.Viewer, q pipeline.AssetQuery) (Result[pipeline.HardwareView], error) {
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = pipeline.DefaultPerPage
	}
	params := itam.HardwareParams{Page: max(q.Page, 1), Limit: perPage, Search: q.Filter.Search, Filter: q.Filter.Filter}
	key := cacheKey(resHardware, viewer,
		"page="+strconv.Itoa(params.Page), "limit="+strconv.Itoa(params.Limit),
		"search="+strings.ToLower(params.Search), "filter="+params.Filter)

	res, err := cached(ctx, s, key, cache.DefaultTTL,
		func(ctx context.Context) (itam.HardwareList, error) {
			return s.source.Hardware(ctx, viewer, params)
		})
	if err != nil {
		return Result[pipeline.HardwareView]{}, err
	}

	idx := s.assignmentIndex(ctx, viewer, res.Data.Items)
	out := Result[pipeline.HardwareView]{Stale: res.Stale, StoredAt: res.StoredAt}
	if sp := res.Data.Pagination; sp != nil {
		stats := pipeline.ComputeHardwareStats(res.Data.Items, idx)
		stats.Total = sp.TotalItems
		out.Data = pipeline.HardwareView{Page: pipeline.AdoptServerPage(res.Data.Items, *sp), Stats: stats}
		return out, nil
	}
	out.Data = pipeline.RunHardware(res.Data.Items, pipeline.AssetQuery{Filter: q.Filter, Page: q.Page, PerPage: perPage}, idx)
	return out, nil
}

// ExportHardware returns every hardware record matching f with the index
// used to resolve owners.
func (s *DashboardService) ExportHardware(ctx context.Context, viewer models.Viewer, f pipeline.AssetFilter) (Result[[]models.Hardware], models.AssignmentIndex, error) {
	params := itam.HardwareParams{Page: 1, Limit: itam.FullFetchLimit}
	res, err := cached(ctx, s, cacheKey(resHardware, viewer, "full"), cache.DefaultTTL,
		func(ctx context.Context) ([]models.Hardware, error) {
			list, err := s.source.Hardware(ctx, viewer, params)
			return list.Items, err
		})
	if err != nil {
		return res, nil, err
	}
	idx := s.assignmentIndex(ctx, viewer, res.Data)
	res.Data = pipeline.FilterHardware(res.Data, f, idx)
	return res, idx, nil
}

// InventoryStats returns the backend's own hardware statistics.
func (s *DashboardService) InventoryStats(ctx context.Context, viewer models.Viewer) (Result[models.HardwareStats], error) {
	return cached(ctx, s, cacheKey(resHardware, viewer, "stats"), cache.DefaultTTL,
		func(ctx context.Context) (models.HardwareStats, error) {
			return s.backend.HardwareStats(ctx)
		})
}

// assignmentIndex resolves asset owners. Admins get the full user list;
// everything a user can see is assigned to that user.
func (s *DashboardService) assignmentIndex(ctx context.Context, viewer models.Viewer, items []models.Hardware) models.AssignmentIndex {
	if !viewer.IsAdmin() {
		self := models.User{ID: viewer.UserID, Username: viewer.Username, Role: viewer.Role}
		for _, h := range items {
			if mac := h.MAC(); mac != "" {
				self.AssignedAssets = append(self.AssignedAssets, mac)
			}
		}
		return models.IndexAssignments([]models.User{self})
	}
	users, err := s.Users(ctx, viewer, "")
	if err != nil {
		s.log.Warn().Err(err).Msg("assignment index unavailable")
		return models.AssignmentIndex{}
	}
	return models.IndexAssignments(users.Data)
}

// SoftwareView returns one page of software inventories with stat cards.
func (s *DashboardService) SoftwareView(ctx context.Context, viewer models.Viewer, q pipeline.AssetQuery) (Result[pipeline.SoftwareView], error) {
	res, err := cached(ctx, s, cacheKey(resSoftware, viewer), cache.DefaultTTL,
		func(ctx context.Context) ([]models.Software, error) {
			return s.backend.ListSoftware(ctx)
		})
	if err != nil {
		return Result[pipeline.SoftwareView]{}, err
	}
	return Result[pipeline.SoftwareView]{
		Data:     pipeline.RunSoftware(res.Data, q),
		Stale:    res.Stale,
		StoredAt: res.StoredAt,
	}, nil
}

// Users lists accounts matching search. Admin only.
func (s *DashboardService) Users(ctx context.Context, viewer models.Viewer, search string) (Result[[]models.User], error) {
	if err := requireAdmin(viewer); err != nil {
		return Result[[]models.User]{}, err
	}
	res, err := cached(ctx, s, cacheKey(resUsers, viewer), cache.UsersTTL,
		func(ctx context.Context) ([]models.User, error) {
			return s.source.Users(ctx)
		})
	if err != nil {
		return res, err
	}
	res.Data = pipeline.FilterUsers(res.Data, search)
	return res, nil
}

// UserAssets returns the hardware assigned to the viewer.
func (s *DashboardService) UserAssets(ctx context.Context, viewer models.Viewer) (Result[[]models.Hardware], error) {
	key := resUserAssets + "|" + string(viewer.Role) + "|" + viewer.UserID + "|"
	return cached(ctx, s, key, cache.UserAssetsTTL,
		func(ctx context.Context) ([]models.Hardware, error) {
			return s.source.UserAssets(ctx, viewer)
		})
}

// UnassignedAssets lists hardware no user holds. Admin only.
func (s *DashboardService) UnassignedAssets(ctx context.Context, viewer models.Viewer) (Result[[]models.Hardware], error) {
	if err := requireAdmin(viewer); err != nil {
		return Result[[]models.Hardware]{}, err
	}
	return cached(ctx, s, cacheKey(resAssignments, viewer, "unassigned"), cache.DefaultTTL,
		func(ctx context.Context) ([]models.Hardware, error) {
			return s.backend.UnassignedAssets(ctx)
		})
}

// AssignmentStats returns the backend's assignment statistics. Admin only.
func (s *DashboardService) AssignmentStats(ctx context.Context, viewer models.Viewer) (Result[models.AssignmentStats], error) {
	if err := requireAdmin(viewer); err != nil {
		return Result[models.AssignmentStats]{}, err
	}
	return cached(ctx, s, cacheKey(resAssignments, viewer, "stats"), cache.DefaultTTL,
		func(ctx context.Context) (models.AssignmentStats, error) {
			return s.backend.AssignmentStats(ctx)
		})
}

// Assign gives one or more assets to a user. Admin only.
func (s *DashboardService) Assign(ctx context.Context, viewer models.Viewer, userID string, macs []string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	v := validator{}
	v.check(userID != "", "userId", "is required")
	v.check(len(macs) > 0, "macAddresses", "at least one asset is required")
	if err := v.err(); err != nil {
		return err
	}

	var err error
	if len(macs) == 1 {
		err = s.backend.AssignAsset(ctx, userID, macs[0])
	} else {
		err = s.backend.AssignAssets(ctx, userID, macs)
	}
	if err != nil {
		return errors.Wrapf(err, "assign assets to %s", userID)
	}
	s.Invalidate("asset")
	s.publish(ctx, mq.AssetAssigned, userID, viewer, map[string]any{"userId": userID, "macAddresses": macs})
	return nil
}

// Remove takes an asset away from a user. Admin only.
func (s *DashboardService) Remove(ctx context.Context, viewer models.Viewer, userID, mac string) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	v := validator{}
	v.check(userID != "", "userId", "is required")
	v.check(mac != "", "macAddress", "is required")
	if err := v.err(); err != nil {
		return err
	}
	if err := s.backend.RemoveAsset(ctx, userID, mac); err != nil {
		return errors.Wrapf(err, "remove asset %s from %s", mac, userID)
	}
	s.Invalidate("asset")
	s.publish(ctx, mq.AssetUnassigned, userID, viewer, map[string]any{"userId": userID, "macAddress": mac})
	return nil
}

// BulkAssign applies many user/asset pairs at once. Admin only.
func (s *DashboardService) BulkAssign(ctx context.Context, viewer models.Viewer, assignments []models.Assignment) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	v := validator{}
	v.check(len(assignments) > 0, "assignments", "at least one assignment is required")
	for i, a := range assignments {
		v.check(a.UserID != "" && a.MACAddress != "", "assignments["+strconv.Itoa(i)+"]", "userId and macAddress are required")
	}
	if err := v.err(); err != nil {
		return err
	}
	if err := s.backend.BulkAssign(ctx, assignments); err != nil {
		return errors.Wrap(err, "bulk assign")
	}
	s.Invalidate("asset")
	s.publish(ctx, mq.AssetAssigned, "", viewer, map[string]any{"count": len(assignments)})
	return nil
}

// WarrantyAlerts returns one page of warranty alerts with the summary.
func (s *DashboardService) WarrantyAlerts(ctx context.Context, viewer models.Viewer, p itam.AlertParams) (Result[itam.AlertList], error) {
	key := cacheKey(resAlerts, viewer,
		"days="+strconv.Itoa(p.Days), "page="+strconv.Itoa(p.Page),
		"limit="+strconv.Itoa(p.Limit), "severity="+string(p.Severity))
	return cached(ctx, s, key, cache.DefaultTTL,
		func(ctx context.Context) (itam.AlertList, error) {
			return s.backend.WarrantyAlerts(ctx, p)
		})
}

// Telemetry returns the latest health sample of a machine, or nil when the
// machine never reported. Users may only read their own machines.
func (s *DashboardService) Telemetry(ctx context.Context, viewer models.Viewer, mac string) (Result[*models.Telemetry], error) {
	if mac == "" {
		return Result[*models.Telemetry]{}, &ValidationError{Fields: map[string]string{"mac": "is required"}}
	}
	if !viewer.IsAdmin() {
		assets, err := s.UserAssets(ctx, viewer)
		if err != nil {
			return Result[*models.Telemetry]{}, err
		}
		if !ownsAsset(assets.Data, mac) {
			return Result[*models.Telemetry]{}, ErrForbidden
		}
	}
	return cached(ctx, s, cacheKey(resTelemetry, viewer, models.NormalizeMAC(mac)), cache.TelemetryTTL,
		func(ctx context.Context) (*models.Telemetry, error) {
			return s.backend.Telemetry(ctx, mac)
		})
}
