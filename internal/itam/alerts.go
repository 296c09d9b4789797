package itam

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/pipeline"
)

// AlertParams select warranty alerts expiring within Days.
type AlertParams struct {
	Days     int
	Page     int
	Limit    int
	Severity string
}

// AlertList is one fetch of warranty alerts.
type AlertList struct {
	Alerts     []models.WarrantyAlert
	Summary    models.AlertSummary
	Pagination *pipeline.ServerPagination
}

// WarrantyAlerts fetches warranty alerts. A missing summary is computed
// from the alerts.
func (c *Client) WarrantyAlerts(ctx context.Context, p AlertParams) (AlertList, error) {
	if p.Days <= 0 {
		p.Days = 30
	}
	q := pageQuery(p.Page, p.Limit)
	q.Set("days", fmt.Sprint(p.Days))
	severity := p.Severity
	if severity == "" {
		severity = pipeline.All
	}
	q.Set("filter", severity)

	env, err := c.get(ctx, "/alerts/warranty", q)
	if err != nil {
		return AlertList{}, err
	}
	alerts, err := models.DecodeAlerts(env.payload())
	if err != nil {
		return AlertList{}, errors.Wrap(err, "warranty alerts")
	}
	out := AlertList{Alerts: alerts, Pagination: env.Pagination.server()}
	if len(env.Summary) > 0 && json.Unmarshal(env.Summary, &out.Summary) == nil && out.Summary.Total > 0 {
		return out, nil
	}
	out.Summary = Summarize(alerts)
	return out, nil
}

// Summarize counts alerts per severity.
func Summarize(alerts []models.WarrantyAlert) models.AlertSummary {
	s := models.AlertSummary{Total: len(alerts)}
	for _, a := range alerts {
		switch a.Severity {
		case models.SeverityCritical:
			s.Critical++
		case models.SeverityHigh:
			s.High++
		case models.SeverityMedium:
			s.Medium++
		case models.SeverityLow:
			s.Low++
		}
	}
	return s
}
