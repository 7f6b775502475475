package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrCredentialTooShort = errors.New("credential must be at least 16 characters")

const (
	bcryptCost          = 12
	minCredentialLength = 16
)

// HashCredential hashes the owner credential for storage in configuration.
func HashCredential(credential string) (string, error) {
	if len(credential) < minCredentialLength {
		return "", ErrCredentialTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckCredential compares a presented credential with its stored hash.
func CheckCredential(credential, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential))
	return err == nil
}
