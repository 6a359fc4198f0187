// Package hash protects the editor passphrase with bcrypt.
package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost          = 12
	MinPassphraseLength = 8
)

func Hash(passphrase string) (string, error) {
	if len(passphrase) < MinPassphraseLength {
		return "", fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %w", err)
	}

	return string(hashedBytes), nil
}

func Compare(hashedPassphrase, passphrase string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassphrase), []byte(passphrase))
}
