package htlc

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	// sha256 of 32 zero bytes.
	want, err := hex.DecodeString("66687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925")
	require.NoError(t, err)

	preimage := make([]byte, PreimageSize)
	got := Digest(preimage)
	require.Equal(t, want, got)
	require.Len(t, got, HashLockSize)
}

func TestMatchesLock(t *testing.T) {
	preimage := []byte("00000000000000000000000000000001")
	lock := Digest(preimage)

	require.True(t, MatchesLock(preimage, lock))

	other := []byte("00000000000000000000000000000002")
	require.False(t, MatchesLock(other, lock))
	require.False(t, MatchesLock(preimage, Digest(other)))
	require.False(t, MatchesLock(nil, lock))
}
