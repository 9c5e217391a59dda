package auth

import (
	"strings"
	"testing"
)

func TestGenerateAndValidateUserToken(t *testing.T) {
	token, err := GenerateUserToken("user-1", "dev@gramvaani.in")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q", claims.UserID)
	}
	if claims.Email != "dev@gramvaani.in" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.ExpiresAt == nil {
		t.Error("token must carry an expiry")
	}
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	token, err := GenerateUserToken("user-1", "dev@gramvaani.in")
	if err != nil {
		t.Fatal(err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", token)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if _, err := ValidateToken(tampered); err == nil {
		t.Error("tampered signature must be rejected")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Error("garbage input must be rejected")
	}
}
