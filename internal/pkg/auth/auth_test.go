package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/parksafe/parksafe/internal/pkg/auth"
)

func TestSignAndParse(t *testing.T) {
	m := auth.New("test-secret", time.Hour)

	token, err := m.Sign("user-42")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.UserID != "user-42" {
		t.Errorf("user id = %q, want user-42", claims.UserID)
	}
	if !claims.ExpiresAt.After(time.Now()) {
		t.Errorf("token already expired: %v", claims.ExpiresAt)
	}
}

func TestParseExpiredToken(t *testing.T) {
	m := auth.New("test-secret", -time.Minute)

	token, err := m.Sign("user-42")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := m.Parse(token); !errors.Is(err, auth.ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, err := auth.New("secret-a", time.Hour).Sign("user-42")
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.New("secret-b", time.Hour).Parse(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseGarbage(t *testing.T) {
	m := auth.New("test-secret", time.Hour)
	if _, err := m.Parse("not.a.token"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestBearerToken(t *testing.T) {
	tok, err := auth.BearerToken("Bearer abc123")
	if err != nil || tok != "abc123" {
		t.Errorf("got (%q, %v), want (abc123, nil)", tok, err)
	}

	for _, header := range []string{"", "abc123", "Basic abc123", "Bearer "} {
		if _, err := auth.BearerToken(header); err == nil {
			t.Errorf("header %q: expected error", header)
		}
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("password stored in the clear")
	}
	if !auth.CheckPassword("correct horse battery staple", hash) {
		t.Error("correct password rejected")
	}
	if auth.CheckPassword("wrong password", hash) {
		t.Error("wrong password accepted")
	}
}
