package auth

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltLength = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// NewSalt returns SaltLength random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltLength)
}

func HashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// CheckPassword compares in constant time.
func CheckPassword(password string, salt []byte, hash []byte) bool {
	candidate := HashPassword(password, salt)
	defer common.WipeByteArray(candidate)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}
