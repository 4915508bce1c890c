package pileapi

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for stored credentials
const DefaultBcryptCost = 10

// BcryptHasher hashes and verifies passwords with a fixed cost
type BcryptHasher struct {
	cost      int
	dummyHash []byte
}

var _ PasswordAuthenticator = (*BcryptHasher)(nil)

// NewBcryptHasher creates a hasher. A cost outside bcrypt's range falls back
// to DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	h := &BcryptHasher{cost: cost}
	h.dummyHash = []byte(h.randomPasswordHash())
	return h
}

// Cost returns the configured work factor
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// HashPassword will generate a password hash
func (h *BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(b), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func (h *BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// VerifyPassword reports whether password matches hash. Malformed hashes
// verify as false.
func (h *BcryptHasher) VerifyPassword(password, hash string) bool {
	return h.ComparePasswordAndHash(password, hash) == nil
}

// burn runs a comparison against a throwaway hash so unknown emails take as
// long as wrong passwords.
func (h *BcryptHasher) burn(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

func (h *BcryptHasher) randomPasswordHash() string {
	b, err := h.HashPassword(uuid.New().String())
	if err != nil {
		return h.randomPasswordHash()
	}
	return b
}
