package personnel

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPIN is returned when hashing a blank PIN.
var ErrEmptyPIN = errors.New("pin is empty")

// HashPIN returns the bcrypt hash of pin. A cost of 0 uses bcrypt.DefaultCost.
func HashPIN(pin string, cost int) (string, error) {
	if strings.TrimSpace(pin) == "" {
		return "", ErrEmptyPIN
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}

	return string(hash), nil
}

// ComparePIN reports whether pin matches the bcrypt hash.
func ComparePIN(hash, pin string) bool {
	if hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
