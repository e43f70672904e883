package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies credentials with bcrypt.
type PasswordHasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordHasher returns a hasher using cost, falling back to bcrypt.DefaultCost
// when cost is outside bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{Cost: cost}
}

// Hash returns a salted bcrypt digest of plain.
// Passwords longer than 72 bytes fail with bcrypt.ErrPasswordTooLong.
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches digest. A malformed digest never matches.
func (h *PasswordHasher) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

// VerifyMissing runs a full bcrypt comparison against a throwaway digest at
// the hasher's cost and always reports false. Logins for unknown accounts call
// it so they take as long as a wrong password does.
func (h *PasswordHasher) VerifyMissing(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummyDigest(), []byte(plain))
	return false
}

func (h *PasswordHasher) dummyDigest() []byte {
	h.dummyOnce.Do(func() {
		d, err := bcrypt.GenerateFromPassword([]byte("no-such-account"), h.Cost)
		if err != nil {
			// Only reachable with an invalid cost; DefaultCost always succeeds.
			d, _ = bcrypt.GenerateFromPassword([]byte("no-such-account"), bcrypt.DefaultCost)
		}
		h.dummy = d
	})
	return h.dummy
}
