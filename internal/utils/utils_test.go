package utils

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	tok, err := NewAccessToken("secret", "admin-1", "superadmin", 15*time.Minute, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseAccessToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "admin-1" || claims.Role != "superadmin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAccessTokenRejected(t *testing.T) {
	now := time.Now()
	good, _ := NewAccessToken("secret", "admin-1", "admin", 15*time.Minute, now)
	expired, _ := NewAccessToken("secret", "admin-1", "admin", time.Minute, now.Add(-time.Hour))

	cases := []struct {
		name, secret, raw string
	}{
		{"wrong secret", "other", good.Token},
		{"expired", "secret", expired.Token},
		{"garbage", "secret", "not.a.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseAccessToken(tc.secret, tc.raw); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestRefreshTokenHash(t *testing.T) {
	rt, err := NewRefreshToken(24*time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length = %d, want 96", len(rt.Raw))
	}
	h := HashRefreshRaw(rt.Raw)
	if len(h) != 64 || h != HashRefreshRaw(rt.Raw) {
		t.Fatalf("hash not stable: %s", h)
	}
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyPassword(h, "correct horse") {
		t.Fatal("password should verify")
	}
	if VerifyPassword(h, "wrong") {
		t.Fatal("wrong password verified")
	}
}
