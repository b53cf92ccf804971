package authcore

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes passwords with bcrypt after appending a server-wide
// pepper, so a leaked hash table cannot be brute-forced without also knowing
// the pepper. The per-password salt is embedded in the bcrypt output.
type PasswordHasher struct {
	pepper string
	cost   int
}

func NewPasswordHasher(pepper string, cost int) *PasswordHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{pepper: pepper, cost: cost}
}

// Hash returns the bcrypt hash of password+pepper.
func (h *PasswordHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password+h.pepper), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(out), nil
}

// Verify reports whether password+pepper matches hash. bcrypt's comparison
// is constant-time over the digest.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+h.pepper)) == nil
}
