// Package authutil holds password rules and hashing for StudyHub accounts.
package authutil

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is bcrypt's input limit in bytes.
	MaxPasswordLength = 72
)

var (
	ErrPasswordTooShort = errors.New("password is too short")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordCommon   = errors.New("password is too common")
)

var commonPasswords = map[string]bool{
	"12345678":   true,
	"123456789":  true,
	"password":   true,
	"password1":  true,
	"qwertyuiop": true,
	"iloveyou":   true,
	"football":   true,
	"baseball":   true,
	"sunshine":   true,
	"princess":   true,
	"letmein1":   true,
	"welcome1":   true,
	"studyhub":   true,
}

// ValidatePassword checks length and rejects well-known passwords.
func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(pw) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	if commonPasswords[strings.ToLower(pw)] {
		return ErrPasswordCommon
	}
	return nil
}

// PasswordRules describes ValidatePassword for error messages.
func PasswordRules() string {
	return fmt.Sprintf("Passwords must be %d to %d characters and not a common password.",
		MinPasswordLength, MaxPasswordLength)
}

// HashPassword hashes pw with bcrypt's default cost.
func HashPassword(pw string) (string, error) {
	return HashPasswordCost(pw, bcrypt.DefaultCost)
}

// HashPasswordCost hashes pw with the given bcrypt cost.
func HashPasswordCost(pw string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether pw matches hash.
func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
