package store

import (
	"context"
	"testing"

	"github.com/nadimkh/mouneh/internal/db"
	"github.com/nadimkh/mouneh/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "hamra", "hash", "Hamra Manager", model.RoleBranchManager, "hamra")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Role != model.RoleBranchManager || user.BranchCode != "hamra" {
		t.Errorf("unexpected user: %+v", user)
	}

	byName, err := GetUserByUsername(ctx, database, "hamra")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName == nil || byName.ID != user.ID {
		t.Errorf("expected same user by username, got %+v", byName)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, database, "admin", "hash", "Admin", model.RoleAdmin, ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := CreateUser(ctx, database, "admin", "hash", "Admin Again", model.RoleAdmin, ""); err == nil {
		t.Error("expected duplicate username to be rejected")
	}
}

func TestSoftDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "temp", "hash", "Temp", model.RoleMammalEmployee, "")
	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 listed users after delete, got %d", len(users))
	}

	// Still fetchable by ID, flagged deleted.
	got, _ := GetUser(ctx, database, user.ID)
	if got == nil {
		t.Fatal("expected soft-deleted user to be fetchable by ID")
	}
	if got.DeletedAt == nil {
		t.Error("expected deleted_at to be set")
	}

	// The username is free for reuse after the soft delete.
	if _, err := CreateUser(ctx, database, "temp", "hash", "Temp Again", model.RoleMammalEmployee, ""); err != nil {
		t.Errorf("expected username reusable after delete: %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "worker", "hash", "Worker", model.RoleMammalEmployee, "")

	err := UpdateUser(ctx, database, user.ID, "Promoted Worker", model.RoleBranchManager, "verdun")
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.Name != "Promoted Worker" || got.Role != model.RoleBranchManager || got.BranchCode != "verdun" {
		t.Errorf("unexpected user after update: %+v", got)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "worker", "old-hash", "Worker", model.RoleMammalEmployee, "")

	if err := UpdateUserPassword(ctx, database, user.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "new-hash" {
		t.Errorf("expected new hash, got %q", got.PasswordHash)
	}
}
