package service

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// Password hashing parameters. The iteration count is part of the stored
// format contract with existing deployments; changing it invalidates every
// stored hash.
const (
	kdfIterations = 1000
	kdfKeyLen     = 64
	saltBytes     = 16
)

// NewSalt returns a fresh random per-user salt, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, saltBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPassword derives a PBKDF2-SHA512 key from the password and the hex
// salt string. The salt's hex text itself is the KDF salt input.
func HashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), kdfIterations, kdfKeyLen, sha512.New)
	return hex.EncodeToString(key)
}

// VerifyPassword recomputes the hash with the stored salt and compares in
// constant time.
func VerifyPassword(password, salt, wantHash string) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(wantHash)) == 1
}
