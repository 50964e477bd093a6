package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testCodec(t *testing.T, accessTTL, refreshTTL time.Duration) *Codec {
	t.Helper()

	c, err := NewCodec(Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Issuer:        "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return c
}

func TestSignAndVerifyAccess(t *testing.T) {
	c := testCodec(t, time.Hour, 7*24*time.Hour)

	tok, err := c.SignAccess("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	claims, err := c.VerifyAccess(tok)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "alice@x.com" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Fatal("expected iat and exp claims")
	}
}

func TestIssuedTokensAreUnique(t *testing.T) {
	c := testCodec(t, time.Hour, 7*24*time.Hour)

	// Signed back to back within the same second: iat/exp have second
	// granularity, so only the jti keeps these apart.
	first, err := c.SignRefresh("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}
	second, err := c.SignRefresh("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}
	if first == second {
		t.Fatal("two tokens issued for the same identity must never collide")
	}

	claims, err := c.VerifyRefresh(first)
	if err != nil {
		t.Fatalf("VerifyRefresh failed: %v", err)
	}
	if claims.ID == "" {
		t.Fatal("expected a token id claim")
	}
}

func TestAccessAndRefreshAreNotInterchangeable(t *testing.T) {
	c := testCodec(t, time.Hour, 7*24*time.Hour)

	access, err := c.SignAccess("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}
	refresh, err := c.SignRefresh("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}
	if access == refresh {
		t.Fatal("expected distinct access and refresh tokens")
	}

	if _, err := c.VerifyAccess(refresh); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature failure verifying refresh as access, got %v", err)
	}
	if _, err := c.VerifyRefresh(access); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected signature failure verifying access as refresh, got %v", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	c := testCodec(t, time.Hour, 7*24*time.Hour)

	claims := Claims{
		Email: "alice@x.com",
		Role:  "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			Issuer:    "authcore-test",
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret-for-tests"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := c.VerifyAccess(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	c := testCodec(t, time.Hour, 7*24*time.Hour)

	tok, err := c.SignAccess("user-1", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := c.VerifyAccess(tampered); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	c := testCodec(t, time.Hour, 7*24*time.Hour)

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := c.VerifyAccess(tok); !errors.Is(err, ErrMalformed) {
			t.Errorf("token %q: expected ErrMalformed, got %v", tok, err)
		}
	}
}

func TestDecodeUnverified(t *testing.T) {
	c := testCodec(t, time.Hour, 7*24*time.Hour)

	tok, err := c.SignRefresh("user-7", "bob@x.com", "admin")
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	claims, err := c.DecodeUnverified(tok)
	if err != nil {
		t.Fatalf("DecodeUnverified failed: %v", err)
	}
	if claims.Subject != "user-7" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}

	if _, err := c.DecodeUnverified("not-a-token"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestNewCodecValidation(t *testing.T) {
	base := Config{
		AccessSecret:  []byte("a-secret"),
		RefreshSecret: []byte("r-secret"),
		AccessTTL:     time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
	}

	broken := base
	broken.AccessSecret = nil
	if _, err := NewCodec(broken); err == nil {
		t.Fatal("expected error for missing access secret")
	}

	broken = base
	broken.RefreshSecret = base.AccessSecret
	if _, err := NewCodec(broken); err == nil {
		t.Fatal("expected error for identical secrets")
	}

	broken = base
	broken.AccessTTL = 0
	if _, err := NewCodec(broken); err == nil {
		t.Fatal("expected error for zero access TTL")
	}

	broken = base
	broken.Leeway = 10 * time.Minute
	if _, err := NewCodec(broken); err == nil {
		t.Fatal("expected error for excessive leeway")
	}
}
