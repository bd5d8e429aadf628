package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes encoded as hex (2*size chars).
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns n cryptographically random bytes.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// WipeByteArray zeroes b in place. Nil-safe.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
