package auth

import (
	"testing"
	"time"

	"github.com/spec-kit/hackdesk/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)

	token, expiresAt, err := tm.GenerateToken("mentor-1", domain.ParticipantHelper, []string{"backend", "devops"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry %v is not in the future", expiresAt)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Identity != "mentor-1" {
		t.Errorf("identity = %q, want mentor-1", claims.Identity)
	}
	if claims.Kind != domain.ParticipantHelper {
		t.Errorf("kind = %q, want HELPER", claims.Kind)
	}
	if len(claims.Specialties) != 2 {
		t.Errorf("specialties = %v, want two entries", claims.Specialties)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 60).GenerateToken("alice", domain.ParticipantRequester, nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("secret-b", 60).ParseToken(token); err == nil {
		t.Fatal("expected verification failure with a different secret")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	if _, err := NewTokenManager("secret", 60).ParseToken("not.a.jwt"); err == nil {
		t.Fatal("expected parse failure")
	}
}

func TestProvisionKeyRoundTrip(t *testing.T) {
	hash, err := HashProvisionKey("hunter2", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyProvisionKey(hash, "hunter2"); err != nil {
		t.Errorf("verify correct key: %v", err)
	}
	if err := VerifyProvisionKey(hash, "wrong"); err == nil {
		t.Error("expected verification failure for wrong key")
	}
}
