package htlc

import (
	"bytes"
	"crypto/sha256"
)

const (
	// PreimageSize is the required preimage length in bytes.
	PreimageSize = 32
	// HashLockSize is the sha256 digest length in bytes.
	HashLockSize = sha256.Size
)

// Digest maps a preimage to its hash lock value. It is the one and only
// lock function of the registry: sha256 over the raw preimage bytes.
func Digest(preimage []byte) []byte {
	h := sha256.Sum256(preimage)
	return h[:]
}

// MatchesLock reports whether the preimage digests to the given hash lock.
func MatchesLock(preimage, hashLock []byte) bool {
	return bytes.Equal(Digest(preimage), hashLock)
}
