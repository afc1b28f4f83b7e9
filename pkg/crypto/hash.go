// Package crypto provides the hashing helpers used for identifier
// derivation and token revocation keys.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hash generates a BLAKE2b-256 hash.
func Hash(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// HashString generates a BLAKE2b-256 hash and returns it hex-encoded.
func HashString(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// GenerateNonce generates size random bytes.
func GenerateNonce(size int) ([]byte, error) {
	nonce := make([]byte, size)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}

// ShortID derives a short hex identifier from the given parts plus a
// random nonce. Used for game session ids.
func ShortID(parts ...string) string {
	nonce, err := GenerateNonce(8)
	if err != nil {
		nonce = []byte(strings.Join(parts, "|"))
	}
	input := append([]byte(strings.Join(parts, "|")+"|"), nonce...)
	return HashString(input)[:8]
}
