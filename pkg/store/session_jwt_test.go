package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/mayank-dotcom/career-bot/pkg/domain"
)

const testSecret = "test-secret-0123456789"

func newTestSessionStore(t *testing.T, revoker TokenRevoker, opts JWTOptions) *JWTSessionStore {
	t.Helper()
	s, err := NewJWTSessionStore(testSecret, time.Hour, revoker, opts)
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	return s
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := newTestSessionStore(t, NewMemoryTokenRevoker(), JWTOptions{})
	token, err := s.NewSession(domain.User{ID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	claims, err := s.ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenID == "" {
		t.Fatalf("expected jti")
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt); d != time.Hour {
		t.Fatalf("expected 1h lifetime, got %v", d)
	}
}

func TestJWTSessionStoreDefaultsToSevenDays(t *testing.T) {
	s, err := NewJWTSessionStore(testSecret, 0, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	claims, err := s.ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if d := claims.ExpiresAt.Sub(claims.IssuedAt); d != 7*24*time.Hour {
		t.Fatalf("expected 7d lifetime, got %v", d)
	}
}

func TestJWTSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Hour, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestJWTSessionStoreRejectsForeignSecretAndIssuer(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	other, err := NewJWTSessionStore("another-secret-abcdefgh", time.Hour, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new other store: %v", err)
	}
	token, err := other.NewSession(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := s.ParseSession(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for foreign secret, got %v", err)
	}

	issuerB := newTestSessionStore(t, nil, JWTOptions{Issuer: "someone-else"})
	token, err = issuerB.NewSession(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := s.ParseSession(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected issuer mismatch to fail, got %v", err)
	}
}

func TestJWTSessionStoreRejectsExpiredAndNoneAlg(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{Leeway: time.Second})
	past := time.Now().Add(-time.Hour)
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    defaultJWTIssuer,
			IssuedAt:  jwt.NewNumericDate(past.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(past),
			ID:        "jti",
		},
	})
	signed, err := expired.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.ParseSession(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    defaultJWTIssuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			ID:        "jti",
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := s.ParseSession(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected alg none to fail, got %v", err)
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s := newTestSessionStore(t, nil, JWTOptions{})
	for _, token := range []string{"", "   ", "not-a-jwt", strings.Repeat("a.", 3)} {
		if _, err := s.ParseSession(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("ParseSession(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestJWTSessionStoreRevokesByJTI(t *testing.T) {
	s := newTestSessionStore(t, NewMemoryTokenRevoker(), JWTOptions{})
	token, err := s.NewSession(domain.User{ID: "user-revoke"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	other, err := s.NewSession(domain.User{ID: "user-revoke"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := s.ParseSession(token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	if _, err := s.ParseSession(other); err != nil {
		t.Fatalf("expected sibling token to remain valid, got %v", err)
	}
	if err := s.DeleteSession("garbage"); err != nil {
		t.Fatalf("expected garbage delete to be ignored, got %v", err)
	}
}
