// Package auth hashes and verifies user and admin credentials.
package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when callers do not configure a bcrypt cost.
const DefaultCost = bcrypt.DefaultCost

// HashPassword hashes the plain-text password with bcrypt.
// Out-of-range costs fall back to DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares a bcrypt hash with the candidate password.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ErrPasswordTooLong is returned for inputs bcrypt would silently truncate.
var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

// Validate rejects passwords that cannot be hashed faithfully.
func Validate(password string) error {
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

// EqualConstantTime compares two plain strings without leaking timing.
func EqualConstantTime(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
