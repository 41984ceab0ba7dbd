package models

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordCost(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	if cost != passwordHashCost {
		t.Errorf("hash cost = %d, want %d", cost, passwordHashCost)
	}

	if !CheckPasswordHash("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if CheckPasswordHash("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}

func TestCreateUserDefaults(t *testing.T) {
	u, err := CreateUser("Jo", "jo@example.com", "correct horse battery staple")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if u.Status != STATUS_ACTIVE {
		t.Errorf("status = %q, want %q", u.Status, STATUS_ACTIVE)
	}
	if u.AvatarURL == "" {
		t.Error("expected a default avatar URL")
	}
	if u.Password == "correct horse battery staple" {
		t.Error("password stored in plain text")
	}
	if !u.CheckPassword("correct horse battery staple") {
		t.Error("stored hash does not verify the original password")
	}
}
