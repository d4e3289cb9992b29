// Package security holds the password, token and network-address checks the
// auth service is built on. Nothing in here performs I/O.
package security

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxPasswordBytes = 72

	// bcrypt digest layout: $2a$10$<22 salt chars><31 hash chars>
	digestLen      = 60
	encodedSaltLen = 22
	costHeadroom   = 4
	bcryptAlphabet = "./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var bcryptEncoding = base64.NewEncoding(bcryptAlphabet).WithPadding(base64.NoPadding).Strict()

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash returns a salted digest; two calls with the same password differ.
	Hash(password string) (string, error)

	// Verify returns (true, nil) on match and (false, nil) on mismatch. A
	// stored value that is not a well-formed digest yields ErrHashing.
	Verify(password, stored string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost    int
	maxCost int
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range", ErrMisconfigured, cost)
	}
	return &BcryptHasher{
		cost:    cost,
		maxCost: min(cost+costHeadroom, bcrypt.MaxCost),
	}, nil
}

func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, stored string) (bool, error) {
	if err := h.checkDigest(stored); err != nil {
		return false, err
	}
	// A password bcrypt would refuse to hash can never have produced a digest.
	if len(password) > maxPasswordBytes {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrHashing, err)
	}
}

// checkDigest rejects anything that is not a canonical bcrypt digest before
// bcrypt sees it. The bcrypt decoder ignores the spare bits of the last salt
// character, so a corrupted record could otherwise still verify. The cost
// ceiling keeps a corrupted cost field from pinning a CPU.
func (h *BcryptHasher) checkDigest(stored string) error {
	if len(stored) != digestLen || stored[0] != '$' || stored[1] != '2' || stored[3] != '$' || stored[6] != '$' {
		return ErrMalformedDigest
	}
	switch stored[2] {
	case 'a', 'b', 'y':
	default:
		return ErrMalformedDigest
	}

	if !isDigit(stored[4]) || !isDigit(stored[5]) {
		return ErrMalformedDigest
	}
	cost := int(stored[4]-'0')*10 + int(stored[5]-'0')
	if cost < bcrypt.MinCost || cost > h.maxCost {
		return fmt.Errorf("%w: cost %d outside [%d, %d]", ErrMalformedDigest, cost, bcrypt.MinCost, h.maxCost)
	}

	body := stored[7:]
	if _, err := bcryptEncoding.DecodeString(body[:encodedSaltLen]); err != nil {
		return ErrMalformedDigest
	}
	if _, err := bcryptEncoding.DecodeString(body[encodedSaltLen:]); err != nil {
		return ErrMalformedDigest
	}
	return nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
