package base58

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase58_RoundTrip(t *testing.T) {
	const systemProgram = "11111111111111111111111111111111"
	addr, err := DecodeFromString(systemProgram)
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, addr)
	assert.Equal(t, systemProgram, Encode(addr[:]))
}

func TestBase58_WrongLength(t *testing.T) {
	_, err := DecodeFromString("3mJr7AoUXx2Wqd")
	assert.Error(t, err)
	assert.Panics(t, func() { MustDecodeFromString("not-base58-0OIl") })
}
