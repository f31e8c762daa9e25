package utils

import (
	"crypto/rand"
	"encoding/base32"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

var (
	randRead             = rand.Read
	generatePasswordHash = bcrypt.GenerateFromPassword
)

// GenerateOTP returns a six digit one-time code derived from a throwaway TOTP secret.
func GenerateOTP() (string, error) {
	secret := make([]byte, 20)
	if _, err := randRead(secret); err != nil {
		return "", err
	}
	return totp.GenerateCode(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret), time.Now())
}

// HashPassword bcrypts a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := generatePasswordHash([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
