package auth

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

const tokenRefLength = 12

// TokenRef returns a short stable fingerprint of a token for audit records.
// The raw token is never recoverable from it.
func TokenRef(token string) string {
	if token == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:tokenRefLength]
}
