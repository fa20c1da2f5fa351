package auth

import (
	"testing"

	"github.com/nadimkh/mouneh/internal/model"
)

const testSecret = "test-secret"

func testUser() *model.User {
	return &model.User{
		ID:         42,
		Username:   "maha",
		Name:       "Maha",
		Role:       model.RoleBranchManager,
		BranchCode: "downtown",
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(testSecret, testUser())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("expected user ID 42, got %d", claims.UserID)
	}
	if claims.Role != model.RoleBranchManager {
		t.Errorf("expected role %q, got %q", model.RoleBranchManager, claims.Role)
	}
	if claims.BranchCode != "downtown" {
		t.Errorf("expected branch code downtown, got %q", claims.BranchCode)
	}
	if claims.ID == "" {
		t.Error("expected non-empty JTI")
	}

	actor := claims.Actor()
	if !actor.ManagesLocation(model.BranchID("downtown")) {
		t.Error("expected actor rebuilt from claims to manage their branch")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testSecret, testUser())
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ValidateToken("other-secret", token); err == nil {
		t.Error("expected error validating with wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := ValidateToken(testSecret, "not-a-token"); err == nil {
		t.Error("expected error validating garbage token")
	}
}

func TestTokensHaveUniqueJTI(t *testing.T) {
	t1, _ := GenerateToken(testSecret, testUser())
	t2, _ := GenerateToken(testSecret, testUser())

	c1, _ := ValidateToken(testSecret, t1)
	c2, _ := ValidateToken(testSecret, t2)
	if c1.ID == c2.ID {
		t.Error("expected unique JTIs for separate tokens")
	}
}
