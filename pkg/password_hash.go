package pkg

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

const (
	PasswordHashIterations = 150_000
	passwordHashKeyLen     = 32
	passwordSaltLen        = 16
)

// HashPassword derives a hex encoded PBKDF2-SHA256 key from password and salt.
// When salt is empty a fresh random one is generated; the salt used is returned
// together with the hash.
func HashPassword(password, salt string) (hash string, usedSalt string, err error) {
	if salt == "" {
		salt, err = GenerateRandomHex(passwordSaltLen)
		if err != nil {
			return "", "", err
		}
	}
	return derivePassword(password, salt, PasswordHashIterations), salt, nil
}

// CheckPasswordHash reports whether password, derived with salt, matches hash.
func CheckPasswordHash(password, salt, hash string) bool {
	derived := derivePassword(password, salt, PasswordHashIterations)
	return subtle.ConstantTimeCompare([]byte(derived), []byte(hash)) == 1
}

func derivePassword(password, salt string, iterations int) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, passwordHashKeyLen, sha256.New)
	return hex.EncodeToString(key)
}
