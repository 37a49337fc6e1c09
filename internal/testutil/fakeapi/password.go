package fakeapi

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory is kept low; these hashes only live for a test.
const (
	argonTime    = 1
	argonMemory  = 8 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	saltLen      = 16
)

type passwordHash struct {
	salt []byte
	key  []byte
}

func deriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

func hashPassword(password string) passwordHash {
	salt := make([]byte, saltLen)
	_, _ = rand.Read(salt)
	return passwordHash{salt: salt, key: deriveKey([]byte(password), salt)}
}

func (h passwordHash) matches(password string) bool {
	if len(h.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(h.key, deriveKey([]byte(password), h.salt)) == 1
}
