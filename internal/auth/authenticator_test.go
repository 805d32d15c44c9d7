package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3nha-forte"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	a, err := NewAuthenticator("admin@seleto.com.br", string(hash))
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}
	return a
}

func TestNewAuthenticator_Validation(t *testing.T) {
	tests := []struct {
		name  string
		email string
		hash  string
	}{
		{"empty email", "", "$2a$10$abcdefghijklmnopqrstuu5Yb3cSx8k6KbPz9pBsqY9pC8G0tQGa"},
		{"empty hash", "admin@seleto.com.br", ""},
		{"plain text hash", "admin@seleto.com.br", "s3nha-forte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAuthenticator(tt.email, tt.hash); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	a := newTestAuthenticator(t)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"valid", "admin@seleto.com.br", "s3nha-forte", false},
		{"wrong password", "admin@seleto.com.br", "errada", true},
		{"wrong email", "outro@seleto.com.br", "s3nha-forte", true},
		{"email case differs", "Admin@seleto.com.br", "s3nha-forte", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := a.Authenticate(tt.email, tt.password)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCredentials) {
					t.Errorf("Authenticate() error = %v, want ErrInvalidCredentials", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if identity != "admin@seleto.com.br" {
				t.Errorf("identity = %q, want admin@seleto.com.br", identity)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("nova-senha")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("nova-senha")); err != nil {
		t.Errorf("hash does not match password: %v", err)
	}

	if _, err := HashPassword(""); err == nil {
		t.Error("expected error for empty password")
	}
}
