package models

import "time"

// Severity of a warranty alert as reported by the ITAM API.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// WarrantyAlert flags an asset or component whose warranty is about to lapse.
type WarrantyAlert struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Severity        Severity  `json:"severity"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	AssetID         string    `json:"assetId"`
	MACAddress      string    `json:"macAddress"`
	Hostname        string    `json:"hostname"`
	Component       string    `json:"component,omitempty"`
	ExpiryDate      time.Time `json:"expiryDate"`
	DaysUntilExpiry int       `json:"daysUntilExpiry"`
}

// AlertSummary counts alerts per severity.
type AlertSummary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Telemetry is the latest health sample reported for a machine.
type Telemetry struct {
	MACAddress      string    `json:"mac_address"`
	CPUPercent      float64   `json:"cpu_percent"`
	RAMPercent      float64   `json:"ram_percent"`
	StoragePercent  float64   `json:"storage_percent"`
	Temperature     float64   `json:"temperature,omitempty"`
	HealthStatus    string    `json:"health_status"`
	HealthScore     float64   `json:"health_score"`
	Recommendations []string  `json:"recommendations,omitempty"`
	SampledAt       time.Time `json:"timestamp"`
	LastUpdated     time.Time `json:"last_updated"`
}

// HardwareStats mirrors the upstream hardware statistics payload.
type HardwareStats struct {
	TotalAssets int            `json:"totalAssets"`
	ByPlatform  map[string]int `json:"byPlatform,omitempty"`
}
