package utils

import (
	"testing"
	"time"

	"github.com/xelth-com/iditgo/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "1234"

	// Test Hashing
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}
	if len(hash) == 0 {
		t.Error("Hash should not be empty")
	}

	// Test Comparison (Success)
	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}

	// Test Comparison (Failure)
	if CheckPasswordHash("4321", hash) {
		t.Error("Wrong password should not match hash")
	}
	if CheckPasswordHash(password, "") {
		t.Error("Empty hash should never match")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"
	user := &models.User{
		ID:   "uuid-1234",
		Name: "Anna",
		Role: models.RoleAdmin,
	}

	// Test Generation
	now := time.Now()
	token, expiresAt, err := GenerateToken(user, secret, time.Hour, now)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if token == "" {
		t.Error("Token should not be empty")
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("Expected expiry %v, got %v", now.Add(time.Hour), expiresAt)
	}

	// Test Validation (Success)
	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if ClaimString(claims, "id") != user.ID {
		t.Errorf("Expected user ID %s, got %v", user.ID, claims["id"])
	}
	if ClaimString(claims, "role") != models.RoleAdmin {
		t.Errorf("Expected role %s, got %v", models.RoleAdmin, claims["role"])
	}

	// Test Validation (Failure - Wrong Key)
	if _, err = ValidateToken(token, "wrong-key"); err == nil {
		t.Error("Validation should fail with wrong key")
	}

	// Test Validation (Failure - Expired)
	expired, _, err := GenerateToken(user, secret, time.Hour, now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	if _, err = ValidateToken(expired, secret); err == nil {
		t.Error("Validation should fail for an expired token")
	}
}
