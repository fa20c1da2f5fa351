package model

import (
	"fmt"
	"time"
)

// User represents an account. Role and branch code together determine
// which locations the user manages.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	BranchCode   string     `json:"branch_code,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin            = "admin"
	RoleWarehouseManager = "warehouse_manager"
	RoleBranchManager    = "branch_manager"
	RoleMammalEmployee   = "mammal_employee"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleWarehouseManager, RoleBranchManager, RoleMammalEmployee:
		return true
	}
	return false
}

// ManagesLocation reports whether the user has unilateral authority over
// stock at the given location. A manager's outbound transfers skip the
// source confirmation step; everyone else's start as pending_source.
func (u *User) ManagesLocation(locationID string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleWarehouseManager:
		return locationID == LocationWarehouse || locationID == LocationMammal
	case RoleBranchManager:
		return u.BranchCode != "" && locationID == BranchID(u.BranchCode)
	}
	return false
}

// HomeLocation returns the location a user operates in by default.
// Admins get the global view and must pick a location explicitly.
func (u *User) HomeLocation() string {
	switch u.Role {
	case RoleWarehouseManager:
		return LocationWarehouse
	case RoleMammalEmployee:
		return LocationMammal
	case RoleBranchManager:
		if u.BranchCode != "" {
			return BranchID(u.BranchCode)
		}
	}
	return LocationGlobal
}

// ValidatePassword checks password requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
