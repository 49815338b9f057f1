package security

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher struct {
	cost int
}

// NewPasswordHasher builds a bcrypt hasher with the given cost factor.
// Out-of-range values fall back to bcrypt.DefaultCost rather than failing,
// so a misconfigured deployment degrades to a safe default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(plaintext)), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether candidate matches the stored hash. Incidental
// whitespace around the candidate is trimmed before comparison; the
// comparison itself is bcrypt's constant-time check.
func (h *PasswordHasher) Verify(candidate, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(candidate))) == nil
}
