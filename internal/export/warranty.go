package export

import (
	"io"
	"time"

	"github.com/example/itamdash/internal/models"
)

// RiskLevel grades how soon a warranty lapses.
type RiskLevel string

const (
	RiskCritical  RiskLevel = "Critical"
	RiskHigh      RiskLevel = "High"
	RiskMedium    RiskLevel = "Medium"
	RiskLowMedium RiskLevel = "Low-Medium"
	RiskLow       RiskLevel = "Low"
)

// Risk is the classification of one warranty alert.
type Risk struct {
	Level  RiskLevel `json:"riskLevel"`
	Score  int       `json:"riskScore"`
	Action string    `json:"actionRequired"`
}

var riskBands = []struct {
	maxDays int
	risk    Risk
}{
	{7, Risk{RiskCritical, 5, "Urgent: renew warranty or plan replacement immediately"}},
	{14, Risk{RiskHigh, 4, "Schedule warranty renewal within the week"}},
	{30, Risk{RiskMedium, 3, "Plan warranty renewal this month"}},
	{60, Risk{RiskLowMedium, 2, "Review renewal options with the vendor"}},
}

var lowRisk = Risk{RiskLow, 1, "Monitor; no action required yet"}

// AssessRisk classifies a warranty by the days left before it expires.
// Expired warranties (negative days) are Critical.
func AssessRisk(daysUntilExpiry int) Risk {
	for _, b := range riskBands {
		if daysUntilExpiry <= b.maxDays {
			return b.risk
		}
	}
	return lowRisk
}

// WarrantyHeaders are the columns of the warranty risk report.
var WarrantyHeaders = []string{
	"Alert ID",
	"Asset ID",
	"Hostname",
	"MAC Address",
	"Component",
	"Severity",
	"Expiry Date",
	"Days Until Expiry",
	"Risk Level",
	"Risk Score",
	"Action Required",
	"Message",
}

// WriteWarranty writes the warranty risk report. It returns ErrNoRows for
// an empty list.
func WriteWarranty(w io.Writer, alerts []models.WarrantyAlert) error {
	if len(alerts) == 0 {
		return ErrNoRows
	}
	rw := newRowWriter(w)
	rw.row(strs(WarrantyHeaders)...)
	for _, a := range alerts {
		risk := AssessRisk(a.DaysUntilExpiry)
		expiry := NA
		if !a.ExpiryDate.IsZero() {
			expiry = a.ExpiryDate.Format(time.DateOnly)
		}
		rw.row(
			orNA(a.ID),
			orNA(a.AssetID),
			orDefault(a.Hostname, models.Unknown),
			orNA(a.MACAddress),
			orNA(a.Component),
			orNA(string(a.Severity)),
			expiry,
			a.DaysUntilExpiry,
			string(risk.Level),
			risk.Score,
			risk.Action,
			orNA(a.Message),
		)
	}
	return rw.flush()
}
