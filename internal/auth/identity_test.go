package auth

import (
	"errors"
	"testing"
	"time"
)

func testConfig() *JWTConfig {
	return &JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "liveclass",
		Audience: "liveclass-server",
		TTL:      time.Hour,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	want := Identity{UserID: "u-1", DisplayName: "Alice", Role: RoleStudent}

	token, err := GenerateToken(cfg, want)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	got, err := NewVerifier(cfg).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if *got != want {
		t.Fatalf("identity = %+v, want %+v", got, want)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateToken(cfg, Identity{UserID: "u-1", Role: RoleStudent})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := testConfig()
	other.Secret = []byte("different-secret")
	if _, err := NewVerifier(other).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsIssuerMismatch(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateToken(cfg, Identity{UserID: "u-1", Role: RoleTeacher})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := testConfig()
	other.Issuer = "someone-else"
	if _, err := NewVerifier(other).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsAudienceMismatch(t *testing.T) {
	cfg := testConfig()
	token, err := GenerateToken(cfg, Identity{UserID: "u-1", Role: RoleTeacher})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := testConfig()
	other.Audience = "another-service"
	if _, err := NewVerifier(other).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = -time.Minute
	token, err := GenerateToken(cfg, Identity{UserID: "u-1", Role: RoleStudent})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewVerifier(testConfig()).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := NewVerifier(testConfig()).Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
