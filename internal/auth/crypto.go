package auth

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for API key hashing
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024
	argon2Threads = 1
	argon2KeyLen  = 32
	// Default salt for API key hashing (should be overridden via config in production)
	defaultAPIKeySalt = "auth-gateway-api-key-salt-v1"
)

// ConstantTimeCompareHashes compares two strings in constant time with
// respect to their content. Strings of different length never match.
func ConstantTimeCompareHashes(a, b string) bool {
	return ConstantTimeCompareBytes([]byte(a), []byte(b))
}

// ConstantTimeCompareBytes compares two byte slices in constant time.
func ConstantTimeCompareBytes(a, b []byte) bool {
	if len(a) != len(b) {
		// still touch every byte of the longer input
		padded := make([]byte, max(len(a), len(b)))
		if len(a) < len(b) {
			subtle.ConstantTimeCompare(padded, b)
		} else {
			subtle.ConstantTimeCompare(a, padded)
		}
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// HashKeySecureWithSalt hashes a key using Argon2id with a custom salt.
func HashKeySecureWithSalt(key string, salt []byte) string {
	hash := argon2.IDKey([]byte(key), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return hex.EncodeToString(hash)
}
