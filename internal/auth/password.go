package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// dummyHash is compared against when no account matches a login email.
var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("dealflow-unknown-account")
	if err != nil {
		panic(err)
	}
	return hash
})

// RejectUnknownUser spends the same bcrypt work as CheckPassword and always
// fails.
func RejectUnknownUser(password string) error {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(password))
	return ErrInvalidCredentials
}
