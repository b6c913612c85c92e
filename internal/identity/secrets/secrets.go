// Package secrets hashes and verifies account passwords with bcrypt.
package secrets

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "bloodbank/pkg/domain-errors"
)

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("password mismatch")

// Hasher wraps bcrypt at a fixed cost. Tests use bcrypt.MinCost.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     string
}

// dummyPassword backs DummyHash. Nothing ever registers with it.
const dummyPassword = "bloodbank-no-such-account"

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

func (h *Hasher) Verify(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify password: %w", err)
	}
	return nil
}

// DummyHash is a bcrypt hash at the hasher's cost that no submitted password
// is expected to match. Login verifies against it when the username is
// unknown so both failure paths pay for one comparison.
func (h *Hasher) DummyHash() string {
	h.dummyOnce.Do(func() {
		// cost is clamped and the password is short, so only the random
		// source can fail here; Verify then reports a malformed hash
		hashed, _ := bcrypt.GenerateFromPassword([]byte(dummyPassword), h.cost)
		h.dummy = string(hashed)
	})
	return h.dummy
}
