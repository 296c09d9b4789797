package models

import "strings"

// Role is the authorization role of a dashboard user.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// User is an ITAM account. Assigned assets are referenced by MAC address.
type User struct {
	ID             string   `gorm:"primaryKey" json:"id"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	Role           Role     `json:"role"`
	Department     string   `json:"department"`
	AssignedAssets []string `gorm:"-" json:"assignedAssets"`
	IsActive       bool     `gorm:"column:is_active" json:"isActive"`
}

// TableName binds the mirror table.
func (User) TableName() string { return "users" }

// NormalizeMAC returns the canonical form of a MAC address: trimmed,
// upper case and colon separated. Every MAC comparison goes through it.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(mac), "-", ":"))
}

// SameMAC reports whether a and b name the same non-empty MAC address.
func SameMAC(a, b string) bool {
	a = NormalizeMAC(a)
	return a != "" && a == NormalizeMAC(b)
}

// Owns reports whether the MAC address is among the user's assigned assets.
func (u User) Owns(mac string) bool {
	for _, assigned := range u.AssignedAssets {
		if SameMAC(assigned, mac) {
			return true
		}
	}
	return false
}

// AssignmentIndex maps normalized MAC address to owning user for O(1)
// membership checks.
type AssignmentIndex map[string]User

// IndexAssignments builds an AssignmentIndex from the user list. When a MAC
// is listed by several users the first one wins.
func IndexAssignments(users []User) AssignmentIndex {
	idx := make(AssignmentIndex)
	for _, u := range users {
		for _, mac := range u.AssignedAssets {
			mac = NormalizeMAC(mac)
			if _, taken := idx[mac]; mac != "" && !taken {
				idx[mac] = u
			}
		}
	}
	return idx
}

// Owner returns the user holding the MAC address.
func (idx AssignmentIndex) Owner(mac string) (User, bool) {
	mac = NormalizeMAC(mac)
	if mac == "" {
		return User{}, false
	}
	u, ok := idx[mac]
	return u, ok
}

// Assigned reports whether any user holds the MAC address.
func (idx AssignmentIndex) Assigned(mac string) bool {
	_, ok := idx.Owner(mac)
	return ok
}
