package common

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandByteArray returns n cryptographically secure random bytes.
// It panics if the platform CSPRNG is unavailable, which is unrecoverable.
func GenerateRandByteArray(n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return buf
}

// MakeRandHexString returns a hex string encoding n random bytes
// (the result is 2*n characters long).
func MakeRandHexString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// WipeByteArray overwrites the buffer with zeros. Used to scrub key
// material from memory before releasing it. Safe on nil.
func WipeByteArray(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
