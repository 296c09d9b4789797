package pipeline

import (
	"strings"

	"github.com/example/itamdash/internal/models"
)

// Asset filter tokens. Any other value is matched as a platform substring.
const (
	AssetsAssigned   = "assigned"
	AssetsUnassigned = "unassigned"
	AssetsDesktop    = "desktop"
	AssetsLaptop     = "laptop"
	AssetsServer     = "server"
)

// AssetFilter holds the list filters for hardware and software.
type AssetFilter struct {
	Search string `form:"search" json:"search"`
	Filter string `form:"filter" json:"filter"`
}

// HardwareStats summarizes a filtered hardware list.
type HardwareStats struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
	Desktop    int `json:"desktop"`
	Laptop     int `json:"laptop"`
	Server     int `json:"server"`
}

// SoftwareStats summarizes a filtered software inventory list.
type SoftwareStats struct {
	Total           int `json:"total"`
	Packages        int `json:"packages"`
	Services        int `json:"services"`
	StartupPrograms int `json:"startupPrograms"`
}

func isDesktop(h models.Hardware) bool {
	return strings.Contains(strings.ToLower(h.System.Platform), "windows")
}

func isLaptop(h models.Hardware) bool { return h.Battery != nil }

func isServer(h models.Hardware) bool {
	return strings.Contains(strings.ToLower(h.System.Platform), "linux")
}

// FilterHardware applies the search and filter token. Assignment tokens are
// resolved against idx.
func FilterHardware(items []models.Hardware, f AssetFilter, idx models.AssignmentIndex) []models.Hardware {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	token := strings.ToLower(strings.TrimSpace(f.Filter))

	out := make([]models.Hardware, 0, len(items))
	for _, h := range items {
		if search != "" && !containsAny(search, h.System.Hostname, h.MAC(), h.CPU.Name) {
			continue
		}
		if !matchesHardwareToken(h, token, idx) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func matchesHardwareToken(h models.Hardware, token string, idx models.AssignmentIndex) bool {
	switch token {
	case "", All:
		return true
	case AssetsAssigned:
		return idx.Assigned(h.MAC())
	case AssetsUnassigned:
		return !idx.Assigned(h.MAC())
	case AssetsDesktop:
		return isDesktop(h)
	case AssetsLaptop:
		return isLaptop(h)
	case AssetsServer:
		return isServer(h)
	default:
		return strings.Contains(strings.ToLower(h.System.Platform), token)
	}
}

// ComputeHardwareStats counts the filtered hardware by assignment and form
// factor.
func ComputeHardwareStats(items []models.Hardware, idx models.AssignmentIndex) HardwareStats {
	s := HardwareStats{Total: len(items)}
	for _, h := range items {
		if idx.Assigned(h.MAC()) {
			s.Assigned++
		} else {
			s.Unassigned++
		}
		if isDesktop(h) {
			s.Desktop++
		}
		if isLaptop(h) {
			s.Laptop++
		}
		if isServer(h) {
			s.Server++
		}
	}
	return s
}

// FilterSoftware applies the search over hostname and MAC address.
func FilterSoftware(items []models.Software, f AssetFilter) []models.Software {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	token := strings.ToLower(strings.TrimSpace(f.Filter))
	out := make([]models.Software, 0, len(items))
	for _, s := range items {
		if search != "" && !containsAny(search, s.System.Hostname, s.System.MACAddress) {
			continue
		}
		if token != "" && token != All && !strings.Contains(strings.ToLower(s.System.Platform), token) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ComputeSoftwareStats totals packages, services and startup programs.
func ComputeSoftwareStats(items []models.Software) SoftwareStats {
	s := SoftwareStats{Total: len(items)}
	for _, sw := range items {
		if n := sw.ScanMetadata.TotalSoftwareCount; n > 0 {
			s.Packages += n
		} else {
			s.Packages += len(sw.InstalledSW)
		}
		s.Services += len(sw.Services)
		s.StartupPrograms += len(sw.StartupPrograms)
	}
	return s
}

// FilterUsers matches username or email case-insensitively.
func FilterUsers(users []models.User, search string) []models.User {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return users
	}
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if containsAny(search, u.Username, u.Email) {
			out = append(out, u)
		}
	}
	return out
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
