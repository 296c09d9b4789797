package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Unknown is the placeholder for missing descriptive fields.
const Unknown = "Unknown"

// looseString accepts a JSON string, number, bool or null.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		*s = ""
		return nil
	}
	*s = looseString(data)
	return nil
}

// looseInt accepts a JSON number, numeric string or null.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = looseInt(f)
	return nil
}

// looseFloat accepts a JSON number, numeric string or null.
type looseFloat float64

func (n *looseFloat) UnmarshalJSON(data []byte) error {
	var s looseString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		f = 0
	}
	*n = looseFloat(f)
	return nil
}

// userRef is a user reference that the API sends either as a bare id or as a
// populated document.
type userRef struct {
	ID       string
	Username string
}

func (r *userRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var doc struct {
		MongoID  looseString `json:"_id"`
		ID       looseString `json:"id"`
		Username looseString `json:"username"`
		Name     looseString `json:"name"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	r.ID = firstNonEmpty(string(doc.MongoID), string(doc.ID))
	r.Username = firstNonEmpty(string(doc.Username), string(doc.Name))
	return nil
}

type rawTicket struct {
	MongoID         looseString `json:"_id"`
	ID              looseString `json:"id"`
	TicketID        looseString `json:"ticket_id"`
	Title           looseString `json:"title"`
	Description     looseString `json:"description"`
	Status          looseString `json:"status"`
	Priority        looseString `json:"priority"`
	Category        looseString `json:"category"`
	Subcategory     looseString `json:"subcategory"`
	CreatedBy       userRef     `json:"created_by"`
	CreatedByName   looseString `json:"created_by_name"`
	AssignedTo      userRef     `json:"assigned_to"`
	AssignedToName  looseString `json:"assigned_to_name"`
	AssetID         looseString `json:"asset_id"`
	AssetHostname   looseString `json:"asset_hostname"`
	AssetModel      looseString `json:"asset_model"`
	AssetLocation   looseString `json:"asset_location"`
	Resolution      looseString `json:"resolution"`
	ResolutionNotes looseString `json:"resolution_notes"`
	ResolvedBy      userRef     `json:"resolved_by"`
	ResolvedByName  looseString `json:"resolved_by_name"`
	CreatedAt       looseString `json:"created_at"`
	CreatedAtCamel  looseString `json:"createdAt"`
	UpdatedAt       looseString `json:"updated_at"`
	UpdatedAtCamel  looseString `json:"updatedAt"`
	ResolvedAt      looseString `json:"resolved_at"`
	ClosedAt        looseString `json:"closed_at"`
	BusinessImpact  looseString `json:"business_impact"`
	EscalationLevel looseString `json:"escalation_level"`
	Tags            []string    `json:"tags"`
	RelatedTickets  []string    `json:"related_tickets"`
	Satisfaction    looseString `json:"customer_satisfaction"`
	WorkNotes       looseString `json:"work_notes"`
	Department      looseString `json:"department"`
	CostCenter      looseString `json:"cost_center"`
}

func (r rawTicket) normalize() Ticket {
	t := Ticket{
		ID:              firstNonEmpty(string(r.MongoID), string(r.ID)),
		TicketID:        strings.TrimSpace(string(r.TicketID)),
		Title:           strings.TrimSpace(string(r.Title)),
		Description:     strings.TrimSpace(string(r.Description)),
		Status:          TicketStatus(firstNonEmpty(string(r.Status), string(TicketStatusOpen))),
		Priority:        Priority(firstNonEmpty(string(r.Priority), string(PriorityMedium))),
		Category:        string(r.Category),
		Subcategory:     string(r.Subcategory),
		CreatedByID:     r.CreatedBy.ID,
		CreatedBy:       firstNonEmpty(string(r.CreatedByName), r.CreatedBy.Username),
		AssigneeID:      r.AssignedTo.ID,
		Assignee:        firstNonEmpty(r.AssignedTo.Username, string(r.AssignedToName)),
		AssetID:         string(r.AssetID),
		AssetHost:       firstNonEmpty(string(r.AssetHostname), Unknown),
		AssetModel:      firstNonEmpty(string(r.AssetModel), Unknown),
		AssetSite:       string(r.AssetLocation),
		Resolution:      string(r.Resolution),
		ResolveNotes:    string(r.ResolutionNotes),
		ResolvedBy:      firstNonEmpty(r.ResolvedBy.Username, string(r.ResolvedByName)),
		CreatedAt:       ParseTime(firstNonEmpty(string(r.CreatedAt), string(r.CreatedAtCamel))),
		UpdatedAt:       ParseTime(firstNonEmpty(string(r.UpdatedAt), string(r.UpdatedAtCamel))),
		ResolvedAt:      parseTimePtr(string(r.ResolvedAt)),
		ClosedAt:        parseTimePtr(string(r.ClosedAt)),
		BusinessImpact:  string(r.BusinessImpact),
		EscalationLevel: string(r.EscalationLevel),
		Tags:            r.Tags,
		RelatedTickets:  r.RelatedTickets,
		Satisfaction:    string(r.Satisfaction),
		WorkNotes:       string(r.WorkNotes),
		Department:      string(r.Department),
		CostCenter:      string(r.CostCenter),
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	return t
}

type rawHardware struct {
	MongoID looseString `json:"_id"`
	ID      looseString `json:"id"`
	System  struct {
		Hostname   looseString `json:"hostname"`
		MACAddress looseString `json:"mac_address"`
		Platform   looseString `json:"platform"`
	} `json:"system"`
	CPU struct {
		Name          looseString `json:"name"`
		PhysicalCores looseInt    `json:"physical_cores"`
		LogicalCores  looseInt    `json:"logical_cores"`
	} `json:"cpu"`
	Memory struct {
		Total looseString `json:"total"`
	} `json:"memory"`
	Storage struct {
		TotalCapacity looseString `json:"total_capacity"`
	} `json:"storage"`
	PowerThermal struct {
		Battery *struct {
			Percent      looseString `json:"percent"`
			PowerPlugged bool        `json:"power_plugged"`
		} `json:"battery"`
	} `json:"power_thermal"`
	AssetInfo struct {
		WarrantyExpiry looseString `json:"warranty_expiry"`
		Model          looseString `json:"model"`
		Location       looseString `json:"location"`
	} `json:"asset_info"`
	UpdatedAt looseString `json:"updatedAt"`
}

func (r rawHardware) normalize() Hardware {
	h := Hardware{
		ID: firstNonEmpty(string(r.MongoID), string(r.ID), string(r.System.MACAddress)),
		System: SystemInfo{
			Hostname:   firstNonEmpty(string(r.System.Hostname), Unknown),
			MACAddress: NormalizeMAC(string(r.System.MACAddress)),
			Platform:   firstNonEmpty(string(r.System.Platform), Unknown),
		},
		CPU: CPUInfo{
			Name:          firstNonEmpty(string(r.CPU.Name), Unknown),
			PhysicalCores: int(r.CPU.PhysicalCores),
			LogicalCores:  int(r.CPU.LogicalCores),
		},
		Memory:         MemoryInfo{Total: firstNonEmpty(string(r.Memory.Total), "0 GB")},
		Storage:        StorageInfo{TotalCapacity: firstNonEmpty(string(r.Storage.TotalCapacity), "0 GB")},
		Model:          string(r.AssetInfo.Model),
		Location:       string(r.AssetInfo.Location),
		WarrantyExpiry: parseTimePtr(string(r.AssetInfo.WarrantyExpiry)),
		UpdatedAt:      ParseTime(string(r.UpdatedAt)),
	}
	if b := r.PowerThermal.Battery; b != nil {
		h.Battery = &BatteryInfo{Percent: string(b.Percent), PowerPlugged: b.PowerPlugged}
	}
	return h
}

type rawSoftware struct {
	MongoID looseString `json:"_id"`
	ID      looseString `json:"id"`
	System  struct {
		Hostname   looseString `json:"hostname"`
		MACAddress looseString `json:"mac_address"`
		Platform   looseString `json:"platform"`
	} `json:"system"`
	InstalledSoftware []struct {
		Name      looseString `json:"name"`
		Version   looseString `json:"version"`
		Publisher looseString `json:"publisher"`
	} `json:"installed_software"`
	Services []struct {
		Name   looseString `json:"name"`
		Status looseString `json:"status"`
	} `json:"services"`
	StartupPrograms []struct {
		Name    looseString `json:"name"`
		Command looseString `json:"command"`
	} `json:"startup_programs"`
	ScanMetadata struct {
		TotalSoftwareCount looseInt    `json:"total_software_count"`
		ScanTimestamp      looseString `json:"scan_timestamp"`
	} `json:"scan_metadata"`
}

func (r rawSoftware) normalize() Software {
	s := Software{
		ID: firstNonEmpty(string(r.MongoID), string(r.ID), string(r.System.MACAddress)),
		System: SystemInfo{
			Hostname:   firstNonEmpty(string(r.System.Hostname), Unknown),
			MACAddress: NormalizeMAC(string(r.System.MACAddress)),
			Platform:   firstNonEmpty(string(r.System.Platform), Unknown),
		},
		InstalledSW:     make([]SoftwareItem, 0, len(r.InstalledSoftware)),
		Services:        make([]ServiceItem, 0, len(r.Services)),
		StartupPrograms: make([]StartupProgram, 0, len(r.StartupPrograms)),
		ScanMetadata: ScanMetadata{
			TotalSoftwareCount: int(r.ScanMetadata.TotalSoftwareCount),
			ScannedAt:          ParseTime(string(r.ScanMetadata.ScanTimestamp)),
		},
	}
	for _, item := range r.InstalledSoftware {
		s.InstalledSW = append(s.InstalledSW, SoftwareItem{
			Name:      string(item.Name),
			Version:   firstNonEmpty(string(item.Version), Unknown),
			Publisher: string(item.Publisher),
		})
	}
	for _, svc := range r.Services {
		s.Services = append(s.Services, ServiceItem{Name: string(svc.Name), Status: string(svc.Status)})
	}
	for _, prog := range r.StartupPrograms {
		s.StartupPrograms = append(s.StartupPrograms, StartupProgram{Name: string(prog.Name), Command: string(prog.Command)})
	}
	return s
}

type rawUser struct {
	MongoID        looseString `json:"_id"`
	ID             looseString `json:"id"`
	Username       looseString `json:"username"`
	Email          looseString `json:"email"`
	Role           looseString `json:"role"`
	Department     looseString `json:"department"`
	AssignedAssets []string    `json:"assignedAssets"`
	IsActive       *bool       `json:"isActive"`
}

func (r rawUser) normalize() User {
	u := User{
		ID:             firstNonEmpty(string(r.MongoID), string(r.ID)),
		Username:       string(r.Username),
		Email:          string(r.Email),
		Role:           Role(firstNonEmpty(string(r.Role), string(RoleUser))),
		Department:     string(r.Department),
		AssignedAssets: make([]string, 0, len(r.AssignedAssets)),
		IsActive:       r.IsActive == nil || *r.IsActive,
	}
	for _, mac := range r.AssignedAssets {
		u.AssignedAssets = append(u.AssignedAssets, NormalizeMAC(mac))
	}
	return u
}

type rawAlert struct {
	ID              looseString `json:"id"`
	Type            looseString `json:"type"`
	Severity        looseString `json:"severity"`
	Title           looseString `json:"title"`
	Message         looseString `json:"message"`
	AssetID         looseString `json:"assetId"`
	MACAddress      looseString `json:"macAddress"`
	Hostname        looseString `json:"hostname"`
	Component       looseString `json:"component"`
	ExpiryDate      looseString `json:"expiryDate"`
	DaysUntilExpiry looseInt    `json:"daysUntilExpiry"`
}

func (r rawAlert) normalize() WarrantyAlert {
	return WarrantyAlert{
		ID:              string(r.ID),
		Type:            string(r.Type),
		Severity:        Severity(strings.ToLower(string(r.Severity))),
		Title:           string(r.Title),
		Message:         string(r.Message),
		AssetID:         string(r.AssetID),
		MACAddress:      NormalizeMAC(string(r.MACAddress)),
		Hostname:        firstNonEmpty(string(r.Hostname), Unknown),
		Component:       string(r.Component),
		ExpiryDate:      ParseTime(string(r.ExpiryDate)),
		DaysUntilExpiry: int(r.DaysUntilExpiry),
	}
}

type rawTelemetrySample struct {
	Timestamp      looseString `json:"timestamp"`
	CPUPercent     looseFloat  `json:"cpu_percent"`
	RAMPercent     looseFloat  `json:"ram_percent"`
	StoragePercent looseFloat  `json:"storage_percent"`
	Temperature    looseFloat  `json:"temperature"`
}

type rawTelemetry struct {
	MACAddress     looseString          `json:"mac_address"`
	Current        *rawTelemetrySample  `json:"current_data"`
	Historical     []rawTelemetrySample `json:"historical_data"`
	HealthAnalysis struct {
		Score           looseFloat  `json:"overall_health_score"`
		Status          looseString `json:"health_status"`
		Recommendations []string    `json:"recommendations"`
	} `json:"health_analysis"`
	LastUpdated looseString `json:"last_updated"`
}

func (r rawTelemetry) normalize() Telemetry {
	sample := r.Current
	if sample == nil && len(r.Historical) > 0 {
		sample = &r.Historical[len(r.Historical)-1]
	}
	t := Telemetry{
		MACAddress:      NormalizeMAC(string(r.MACAddress)),
		HealthStatus:    firstNonEmpty(string(r.HealthAnalysis.Status), Unknown),
		HealthScore:     float64(r.HealthAnalysis.Score),
		Recommendations: r.HealthAnalysis.Recommendations,
		LastUpdated:     ParseTime(string(r.LastUpdated)),
	}
	if sample != nil {
		t.CPUPercent = float64(sample.CPUPercent)
		t.RAMPercent = float64(sample.RAMPercent)
		t.StoragePercent = float64(sample.StoragePercent)
		t.Temperature = float64(sample.Temperature)
		t.SampledAt = ParseTime(string(sample.Timestamp))
	}
	if t.LastUpdated.IsZero() {
		t.LastUpdated = t.SampledAt
	}
	return t
}

// DecodeTickets normalizes a JSON array of ticket documents. A null or empty
// payload decodes to an empty slice.
func DecodeTickets(data []byte) ([]Ticket, error) {
	return decodeList(data, rawTicket.normalize)
}

// DecodeTicket normalizes a single ticket document.
func DecodeTicket(data []byte) (Ticket, error) {
	var raw rawTicket
	if err := json.Unmarshal(data, &raw); err != nil {
		return Ticket{}, errors.Wrap(err, "decode ticket")
	}
	return raw.normalize(), nil
}

// DecodeHardware normalizes a JSON array of hardware documents.
func DecodeHardware(data []byte) ([]Hardware, error) {
	return decodeList(data, rawHardware.normalize)
}

// DecodeSoftware normalizes a JSON array of software inventory documents.
func DecodeSoftware(data []byte) ([]Software, error) {
	return decodeList(data, rawSoftware.normalize)
}

// DecodeUsers normalizes a JSON array of user documents.
func DecodeUsers(data []byte) ([]User, error) {
	return decodeList(data, rawUser.normalize)
}

// DecodeAlerts normalizes a JSON array of warranty alerts.
func DecodeAlerts(data []byte) ([]WarrantyAlert, error) {
	return decodeList(data, rawAlert.normalize)
}

// DecodeTelemetry normalizes a JSON array of telemetry documents.
func DecodeTelemetry(data []byte) ([]Telemetry, error) {
	return decodeList(data, rawTelemetry.normalize)
}

func decodeList[R any, T any](data []byte, normalize func(R) T) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}, nil
	}
	var raws []R
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errors.Wrap(err, "decode list")
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalize(raw))
	}
	return out, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats the ITAM API emits. Unparseable or
// empty input yields the zero time.
func ParseTime(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

func parseTimePtr(v string) *time.Time {
	t := ParseTime(v)
	if t.IsZero() {
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
