package solana

import (
	"bytes"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPda_FindProgramAddress_MatchesSolanaGo(t *testing.T) {
	programId := sol.NewWallet().PublicKey()
	mint := sol.NewWallet().PublicKey()

	seeds := [][]byte{[]byte("state"), mint[:]}

	addr, bump, err := FindProgramAddress(seeds, programId)
	require.NoError(t, err)

	expectedAddr, expectedBump, err := sol.FindProgramAddress(seeds, programId)
	require.NoError(t, err)

	assert.Equal(t, [32]byte(expectedAddr), addr)
	assert.Equal(t, expectedBump, bump)
	assert.False(t, IsOnCurve(addr[:]))
}

func TestPda_Deterministic(t *testing.T) {
	programId := sol.NewWallet().PublicKey()
	seeds := [][]byte{[]byte("blacklist"), bytes.Repeat([]byte{7}, 32)}

	a1, b1, err := FindProgramAddress(seeds, programId)
	require.NoError(t, err)
	a2, b2, err := FindProgramAddress(seeds, programId)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)

	recreated, err := CreateProgramAddress(append(seeds, []byte{b1}), programId)
	require.NoError(t, err)
	assert.Equal(t, a1, recreated)
}

func TestPda_SeedLimits(t *testing.T) {
	programId := sol.NewWallet().PublicKey()

	_, err := CreateProgramAddressBytes([][]byte{bytes.Repeat([]byte{1}, MaxSeedLen+1)}, programId[:])
	assert.ErrorIs(t, err, ErrSeedLength)

	tooMany := make([][]byte, MaxSeeds+1)
	_, err = CreateProgramAddressBytes(tooMany, programId[:])
	assert.ErrorIs(t, err, ErrSeedLength)

	_, err = CreateProgramAddressBytes(nil, programId[:31])
	assert.ErrorIs(t, err, ErrAddressLength)
}

func TestPda_IsOnCurve_WalletKey(t *testing.T) {
	key := sol.NewWallet().PublicKey()
	assert.True(t, IsOnCurve(key[:]))
}
