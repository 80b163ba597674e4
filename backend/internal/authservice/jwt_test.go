package authservice

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, _, err := SignAccessToken(42, "bob", time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken() error = %v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "bob" || claims.Type != "access" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, _, err := SignAccessToken(42, "bob", -time.Minute)
	if err != nil {
		t.Fatalf("SignAccessToken() error = %v", err)
	}
	if _, err := ParseToken(token); err == nil {
		t.Fatal("ParseToken(expired) error = nil, want error")
	}
}

func TestRefreshTokenType(t *testing.T) {
	token, _, err := SignRefreshToken(7, "alice", time.Hour)
	if err != nil {
		t.Fatalf("SignRefreshToken() error = %v", err)
	}
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Type != "refresh" {
		t.Fatalf("claims.Type = %q, want refresh", claims.Type)
	}
}
