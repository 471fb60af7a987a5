// Package creds hashes replacement passwords for the credential
// rotation flow. Hashes are sha512-crypt ($6$), which every login
// stack this tool targets accepts; yescrypt hosts still verify $6$
// through libcrypt compatibility.
package creds

import (
	"errors"

	"github.com/GehirnInc/crypt/sha512_crypt"
)

var ErrEmptyPassword = errors.New("empty password")

// HashPassword produces a sha512-crypt shadow hash with a fresh random
// salt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	c := sha512_crypt.New()
	return c.Generate([]byte(password), nil)
}

// Verify reports whether password matches a sha512-crypt hash. Used by
// tests and by the rotation flow's read-back check.
func Verify(hash, password string) bool {
	c := sha512_crypt.New()
	return c.Verify(hash, []byte(password)) == nil
}
