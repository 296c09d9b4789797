package models

import "time"

// SystemInfo identifies the machine an asset record was scanned from.
type SystemInfo struct {
	Hostname   string `json:"hostname"`
	MACAddress string `gorm:"column:mac_address" json:"mac_address"`
	Platform   string `json:"platform"`
}

// CPUInfo is the processor section of a hardware scan.
type CPUInfo struct {
	Name          string `json:"name"`
	PhysicalCores int    `json:"physical_cores"`
	LogicalCores  int    `json:"logical_cores"`
}

// MemoryInfo is the memory section of a hardware scan.
type MemoryInfo struct {
	Total string `json:"total"`
}

// StorageInfo is the storage section of a hardware scan.
type StorageInfo struct {
	TotalCapacity string `json:"total_capacity"`
}

// BatteryInfo is present only on machines that report a battery.
type BatteryInfo struct {
	Percent      string `json:"percent"`
	PowerPlugged bool   `json:"power_plugged"`
}

// Hardware is a scanned or manually entered hardware asset.
type Hardware struct {
	ID             string       `gorm:"primaryKey" json:"id"`
	System         SystemInfo   `gorm:"embedded;embeddedPrefix:system_" json:"system"`
	CPU            CPUInfo      `gorm:"embedded;embeddedPrefix:cpu_" json:"cpu"`
	Memory         MemoryInfo   `gorm:"embedded;embeddedPrefix:memory_" json:"memory"`
	Storage        StorageInfo  `gorm:"embedded;embeddedPrefix:storage_" json:"storage"`
	Battery        *BatteryInfo `gorm:"serializer:json" json:"battery,omitempty"`
	Model          string       `json:"model,omitempty"`
	Location       string       `json:"location,omitempty"`
	WarrantyExpiry *time.Time   `gorm:"column:warranty_expiry" json:"warranty_expiry,omitempty"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName binds the mirror table.
func (Hardware) TableName() string { return "hardware_assets" }

// MAC returns the identifying MAC address of the asset.
func (h Hardware) MAC() string { return h.System.MACAddress }

// SoftwareItem is one installed package.
type SoftwareItem struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Publisher string `json:"publisher,omitempty"`
}

// ServiceItem is one OS service.
type ServiceItem struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// StartupProgram is one program launched at boot.
type StartupProgram struct {
	Name    string `json:"name"`
	Command string `json:"command,omitempty"`
}

// ScanMetadata summarizes a software scan.
type ScanMetadata struct {
	TotalSoftwareCount int       `json:"total_software_count"`
	ScannedAt          time.Time `json:"scanned_at"`
}

// Software is the software inventory of one machine.
type Software struct {
	ID              string           `json:"id"`
	System          SystemInfo       `json:"system"`
	InstalledSW     []SoftwareItem   `json:"installed_software"`
	Services        []ServiceItem    `json:"services"`
	StartupPrograms []StartupProgram `json:"startup_programs"`
	ScanMetadata    ScanMetadata     `json:"scan_metadata"`
}

// AssetAssignment links a hardware asset to a user in the mirror database.
type AssetAssignment struct {
	MACAddress string    `gorm:"primaryKey;column:mac_address" json:"mac_address"`
	UserID     string    `gorm:"column:user_id;index" json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// TableName binds the mirror table.
func (AssetAssignment) TableName() string { return "asset_assignments" }

// Assignment is one user/asset pair in a bulk assignment request.
type Assignment struct {
	UserID     string `json:"userId"`
	MACAddress string `json:"macAddress"`
}

// AssignmentStats mirrors the upstream assignment statistics payload.
type AssignmentStats struct {
	TotalAssets      int `json:"totalAssets"`
	AssignedAssets   int `json:"assignedAssets"`
	UnassignedAssets int `json:"unassignedAssets"`
	TotalUsers       int `json:"totalUsers"`
	UsersWithAssets  int `json:"usersWithAssets"`
}
