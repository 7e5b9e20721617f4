package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestTokenService() *TokenService {
	return NewTokenService([]byte("test-secret-key-32bytes-long!!"), 15*time.Minute, 7*24*time.Hour)
}

func newTestUser() *User {
	return &User{ID: "user-123", Username: "alice", Role: RoleAdmin}
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	ts := newTestTokenService()
	user := newTestUser()

	token, err := ts.IssueAccessToken(user)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	claims, err := ts.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.UserID != user.ID || claims.Username != user.Username {
		t.Errorf("claims = %+v, want user %+v", claims, user)
	}
	if claims.Issuer != "axiom" || claims.Subject != user.ID {
		t.Errorf("Issuer/Subject = %q/%q", claims.Issuer, claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "axiom-api" {
		t.Errorf("Audience = %v, want [axiom-api]", claims.Audience)
	}

	again, _ := ts.IssueAccessToken(user)
	second, _ := ts.ValidateAccessToken(again)
	if claims.ID == "" || claims.ID == second.ID {
		t.Errorf("token IDs %q and %q should be unique", claims.ID, second.ID)
	}
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	ts := newTestTokenService()

	other := NewTokenService([]byte("secret-two-is-32-bytes-long!!!!"), 15*time.Minute, time.Hour)
	wrongSecret, _ := other.IssueAccessToken(newTestUser())

	expired, _ := NewTokenService([]byte("test-secret-key-32bytes-long!!"), -time.Minute, time.Hour).
		IssueAccessToken(newTestUser())

	sign := func(c jwt.RegisteredClaims) string {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
		tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: c,
			UserID:           "user-123",
		}).SignedString([]byte("test-secret-key-32bytes-long!!"))
		return tok
	}
	aud := jwt.ClaimStrings{"axiom-api"}
	foreign := sign(jwt.RegisteredClaims{Issuer: "someone-else", Subject: "user-123", Audience: aud})
	wrongAudience := sign(jwt.RegisteredClaims{Issuer: "axiom", Subject: "user-123", Audience: jwt.ClaimStrings{"other"}})
	mismatched := sign(jwt.RegisteredClaims{Issuer: "axiom", Subject: "user-999", Audience: aud})

	for name, token := range map[string]string{
		"wrong secret":     wrongSecret,
		"expired":          expired,
		"foreign issuer":   foreign,
		"wrong audience":   wrongAudience,
		"subject mismatch": mismatched,
		"garbage":          "not.a.jwt",
		"empty":            "",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ts.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	ts := newTestTokenService()

	raw1, hash1, exp, err := ts.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	raw2, _, _, _ := ts.GenerateRefreshToken()

	if len(raw1) != 64 {
		t.Errorf("raw token length = %d, want 64 hex chars", len(raw1))
	}
	if raw1 == raw2 {
		t.Error("two refresh tokens are identical")
	}
	if hash1 != HashToken(raw1) || hash1 == raw1 {
		t.Error("hash must be the sha256 of the raw token")
	}
	if d := time.Until(exp); d < 6*24*time.Hour || d > 7*24*time.Hour {
		t.Errorf("expiry in %v, want about 7 days", d)
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateSecret()
	if len(a) != 64 || a == b {
		t.Errorf("secrets %q, %q: want distinct 64-char hex", a, b)
	}
}
