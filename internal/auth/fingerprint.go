package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint hashes the request metadata a token is bound to.
func Fingerprint(userAgent, ip string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + ip))
	return hex.EncodeToString(sum[:])
}

// MatchFingerprint recomputes the fingerprint for the current request and
// compares it with the one carried by the token.
func MatchFingerprint(expected, userAgent, ip string) bool {
	return ConstantTimeCompareHashes(expected, Fingerprint(userAgent, ip))
}
