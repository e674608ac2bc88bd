package genesis

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

func TestGenesis_Builder(t *testing.T) {
	accts := accounts.NewMemAccounts()
	rent := sealevel.DefaultRent()
	b := New(accts, rent)

	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	tokenAcct := solana.NewWallet().PublicKey()

	require.NoError(t, b.Fund(wallet, 5000))
	require.NoError(t, b.Mint(mint, wallet, 9))
	require.NoError(t, b.TokenAccount(tokenAcct, mint, wallet, 700))
	require.NoError(t, b.TokenAccount(solana.NewWallet().PublicKey(), mint, wallet, 300))

	k := [32]byte(wallet)
	acct, err := accts.GetAccount(&k)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), acct.Lamports)
	assert.Equal(t, sealevel.SystemProgramAddr, acct.Owner)

	k = [32]byte(mint)
	acct, err = accts.GetAccount(&k)
	require.NoError(t, err)
	assert.Equal(t, rent.MinimumBalance(sealevel.TokenMintLen), acct.Lamports)
	m, err := sealevel.UnpackTokenMint(acct.Data)
	require.NoError(t, err)
	assert.True(t, m.IsInitialized)
	assert.Equal(t, uint8(9), m.Decimals)
	assert.Equal(t, uint64(1000), m.Supply)

	k = [32]byte(tokenAcct)
	acct, err = accts.GetAccount(&k)
	require.NoError(t, err)
	assert.Equal(t, sealevel.TokenProgramAddr, acct.Owner)
	ta, err := sealevel.UnpackTokenAccount(acct.Data)
	require.NoError(t, err)
	assert.Equal(t, mint, ta.Mint)
	assert.Equal(t, wallet, ta.Owner)
	assert.Equal(t, uint64(700), ta.Amount)
	assert.Equal(t, uint8(sealevel.TokenAccountStateInitialized), ta.State)
}

func TestGenesis_TokenAccount_UnknownMint(t *testing.T) {
	b := New(accounts.NewMemAccounts(), sealevel.DefaultRent())
	err := b.TokenAccount(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 1)
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}
