package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(bcrypt.MinCost)

	digest, err := hasher.Hash("Sup3r$ecret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if digest == "Sup3r$ecret" {
		t.Fatalf("digest must not equal plaintext")
	}
	if !hasher.Verify("Sup3r$ecret", digest) {
		t.Fatalf("Verify rejected the original password")
	}
	if hasher.Verify("wrong-password", digest) {
		t.Fatalf("Verify accepted a wrong password")
	}
}

func TestHasher_TokenLongerThanBcryptLimit(t *testing.T) {
	t.Parallel()

	hasher := NewHasher(bcrypt.MinCost)

	// JWTs are far longer than bcrypt's 72-byte input limit.
	token := strings.Repeat("eyJhbGciOiJIUzI1NiJ9.", 20)

	digest, err := hasher.HashToken(token)
	if err != nil {
		t.Fatalf("HashToken error: %v", err)
	}
	if !hasher.VerifyToken(token, digest) {
		t.Fatalf("VerifyToken rejected the original token")
	}
	if hasher.VerifyToken(token+"x", digest) {
		t.Fatalf("VerifyToken accepted a tampered token")
	}
}

func TestNewHasher_CostFallback(t *testing.T) {
	t.Parallel()

	if got := NewHasher(0).cost; got != bcrypt.DefaultCost {
		t.Fatalf("zero cost: got %d want %d", got, bcrypt.DefaultCost)
	}
	if got := NewHasher(100).cost; got != bcrypt.DefaultCost {
		t.Fatalf("out-of-range cost: got %d want %d", got, bcrypt.DefaultCost)
	}
	if got := NewHasher(bcrypt.MinCost).cost; got != bcrypt.MinCost {
		t.Fatalf("valid cost: got %d want %d", got, bcrypt.MinCost)
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Aa1!aaaa", false},
		{"valid with other symbols", "Str0ng&Pass", false},
		{"too short", "Aa1!a", true},
		{"too long", strings.Repeat("Aa1!", 9), true},
		{"missing uppercase", "aa1!aaaa", true},
		{"missing lowercase", "AA1!AAAA", true},
		{"missing digit", "Aaa!aaaa", true},
		{"missing symbol", "Aa1aaaaa", true},
		{"symbol outside allowed set", "Aa1#aaaa", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q, got nil", tt.password)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.password, err)
			}
		})
	}
}
