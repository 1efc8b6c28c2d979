package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Password policy bounds for new passwords.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 32
)

// passwordSymbols is the fixed set of symbols accepted by the password
// policy.
const passwordSymbols = "@$!%*?&"

// Hasher produces and verifies one-way salted hashes using bcrypt with
// a configurable work factor.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher. A zero or out-of-range cost falls back
// to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. bcrypt's comparison
// does not leak timing on mismatch position.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// HashToken hashes a refresh token for storage. Tokens exceed bcrypt's
// 72-byte input limit, so they are digested with SHA-256 first.
func (h *Hasher) HashToken(token string) (string, error) {
	return h.Hash(digestToken(token))
}

// VerifyToken reports whether token matches a digest produced by
// HashToken.
func (h *Hasher) VerifyToken(token, digest string) bool {
	return h.Verify(digestToken(token), digest)
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ValidatePassword checks a new password against the policy: 8-32
// characters with at least one lowercase letter, one uppercase letter,
// one digit, and one symbol from the allowed set.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLength {
		return errors.New("password must not exceed 32 characters")
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit || !hasSymbol {
		return errors.New("password must contain uppercase, lowercase, number and special character")
	}
	return nil
}
