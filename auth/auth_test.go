// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"

	"github.com/danielhkuo/tskr/cliparse"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
			// Verify it's valid hex
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	// Test randomness - two IDs should be different
	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	// Should be URL-safe (no padding)
	if strings.Contains(token, "=") {
		t.Error("GenerateToken() contains padding characters")
	}

	// 32 bytes encoded
	if len(token) != 43 {
		t.Errorf("GenerateToken() length = %d, want 43", len(token))
	}

	other, _ := GenerateToken()
	if token == other {
		t.Error("GenerateToken() produced duplicate tokens")
	}
}

func TestVerifySignedToken(t *testing.T) {
	secret := "test-secret"
	token, _ := GenerateToken()
	signed := SignToken(token, secret)

	tests := []struct {
		name    string
		signed  string
		secret  string
		want    string
		wantErr error
	}{
		{"valid", signed, secret, token, nil},
		{"wrong secret", signed, "other-secret", "", ErrInvalidSignature},
		{"tampered token", "x" + signed, secret, "", ErrInvalidSignature},
		{"no separator", token, secret, "", ErrInvalidToken},
		{"empty signature", token + ".", secret, "", ErrInvalidToken},
		{"empty", "", secret, "", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifySignedToken(tt.signed, tt.secret)
			if err != tt.wantErr {
				t.Fatalf("VerifySignedToken() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VerifySignedToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	if len(h) != 64 {
		t.Errorf("HashToken() length = %d, want 64", len(h))
	}
	if h != HashToken("abc") {
		t.Error("HashToken() is not deterministic")
	}
	if h == HashToken("abd") {
		t.Error("HashToken() collided for different tokens")
	}
}

func TestBcrypt(t *testing.T) {
	b := NewBcrypt()
	b.Init(cliparse.Config{BcryptCost: 4})
	if b.Cost() != 4 {
		t.Fatalf("Cost() = %d, want 4", b.Cost())
	}

	hash, err := b.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("Hash() returned the password")
	}
	if !b.Compare(hash, "correct horse") {
		t.Error("Compare() rejected the right password")
	}
	if b.Compare(hash, "battery staple") {
		t.Error("Compare() accepted a wrong password")
	}
	if b.Compare("not-a-hash", "correct horse") {
		t.Error("Compare() accepted a malformed hash")
	}
}

func TestBcryptInitOutOfRange(t *testing.T) {
	b := NewBcrypt()
	b.Init(cliparse.Config{BcryptCost: 99})
	if b.Cost() != 10 {
		t.Errorf("Cost() = %d, want default 10", b.Cost())
	}
}
