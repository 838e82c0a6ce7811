package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password does not match")

// Hasher wraps bcrypt with a configurable cost. The zero value uses
// bcrypt.DefaultCost.
type Hasher struct {
	cost int
	// dummy is compared against when there is no stored hash, so a lookup
	// miss costs the same as a wrong password.
	dummy []byte
}

func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, bcrypt.InvalidCostError(cost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("prefab-store-dummy-password"), cost)
	if err != nil {
		return nil, err
	}

	return &Hasher{cost: cost, dummy: dummy}, nil
}

// HashPassword hashes a plain text password with bcrypt.
func (h *Hasher) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password. An empty
// hash is compared against the dummy and always fails.
func (h *Hasher) CheckPassword(hash, plain string) error {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
		return ErrPasswordMismatch
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
