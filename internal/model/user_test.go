package model

import "testing"

func TestManagesLocation(t *testing.T) {
	branch := BranchID("downtown")

	tests := []struct {
		name     string
		user     User
		location string
		expected bool
	}{
		{"admin manages warehouse", User{Role: RoleAdmin}, LocationWarehouse, true},
		{"admin manages branch", User{Role: RoleAdmin}, branch, true},
		{"warehouse manager manages warehouse", User{Role: RoleWarehouseManager}, LocationWarehouse, true},
		{"warehouse manager manages mammal", User{Role: RoleWarehouseManager}, LocationMammal, true},
		{"warehouse manager does not manage branch", User{Role: RoleWarehouseManager}, branch, false},
		{"branch manager manages own branch", User{Role: RoleBranchManager, BranchCode: "downtown"}, branch, true},
		{"branch manager does not manage other branch", User{Role: RoleBranchManager, BranchCode: "harbor"}, branch, false},
		{"branch manager without code manages nothing", User{Role: RoleBranchManager}, branch, false},
		{"mammal employee does not manage mammal", User{Role: RoleMammalEmployee}, LocationMammal, false},
		{"mammal employee does not manage branch", User{Role: RoleMammalEmployee}, branch, false},
		// Unknown roles fail-closed.
		{"unknown role", User{Role: "intern"}, LocationWarehouse, false},
	}

	for _, tt := range tests {
		if got := tt.user.ManagesLocation(tt.location); got != tt.expected {
			t.Errorf("%s: ManagesLocation(%q) = %v, want %v", tt.name, tt.location, got, tt.expected)
		}
	}
}

func TestHomeLocation(t *testing.T) {
	tests := []struct {
		user     User
		expected string
	}{
		{User{Role: RoleAdmin}, LocationGlobal},
		{User{Role: RoleWarehouseManager}, LocationWarehouse},
		{User{Role: RoleMammalEmployee}, LocationMammal},
		{User{Role: RoleBranchManager, BranchCode: "downtown"}, BranchID("downtown")},
		{User{Role: RoleBranchManager}, LocationGlobal},
	}

	for _, tt := range tests {
		if got := tt.user.HomeLocation(); got != tt.expected {
			t.Errorf("HomeLocation() for %s = %q, want %q", tt.user.Role, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestLowStock(t *testing.T) {
	tests := []struct {
		item     Item
		expected bool
	}{
		{Item{Quantity: 5, MinThreshold: 10}, true},
		{Item{Quantity: 10, MinThreshold: 10}, true},
		{Item{Quantity: 11, MinThreshold: 10}, false},
		{Item{Quantity: 0, MinThreshold: 0}, false},
	}

	for _, tt := range tests {
		if got := tt.item.LowStock(); got != tt.expected {
			t.Errorf("LowStock() with qty=%g threshold=%g = %v, want %v",
				tt.item.Quantity, tt.item.MinThreshold, got, tt.expected)
		}
	}
}
