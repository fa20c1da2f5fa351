package model

import "time"

// Location is a place that holds stock: the central warehouse, the
// production unit, or a branch. Branch locations are provisioned when a
// branch manager account is created; locations are never deleted.
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NameAr      string    `json:"name_ar,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Type        string    `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

// Static location IDs. LocationGlobal is a virtual view over all
// locations, not a stored row.
const (
	LocationWarehouse = "warehouse"
	LocationMammal    = "mammal"
	LocationGlobal    = "global"
)

// Location types.
const (
	LocationTypeCentral = "central"
	LocationTypeBranch  = "branch"
	LocationTypeGlobal  = "global"
)

// BranchID returns the location ID for a branch code.
func BranchID(code string) string {
	return "branch-" + code
}
