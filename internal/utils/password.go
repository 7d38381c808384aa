package utils

import (
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9@]{3,30}$`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10}$`)
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// ValidPassword reports whether plain is 3-30 letters, digits or '@'.
func ValidPassword(plain string) bool { return passwordPattern.MatchString(plain) }

// ValidPhone reports whether phone is exactly ten digits.
func ValidPhone(phone string) bool { return phonePattern.MatchString(phone) }
