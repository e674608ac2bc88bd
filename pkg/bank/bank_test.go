package bank

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/metrics"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

// uses known good values to test if bankhash computes correctly
func Test_Compute_Bank_Hash(t *testing.T) {
	acctsDeltaHash := []byte{148, 1, 99, 1, 94, 42, 27, 37, 216, 66, 0, 57, 116, 109, 251, 51, 250, 101, 228, 74, 44, 3, 94, 73, 120, 148, 27, 210, 78, 34, 112, 212}
	parentBankHash := [32]byte{216, 24, 141, 114, 110, 72, 188, 246, 47, 80, 102, 40, 122, 219, 11, 94, 100, 159, 96, 122, 195, 101, 140, 19, 22, 225, 243, 127, 23, 182, 65, 90}
	numSigs := uint64(2)
	blockHash := [32]byte{113, 124, 28, 34, 197, 214, 189, 118, 67, 41, 212, 2, 122, 6, 74, 59, 124, 160, 185, 122, 37, 39, 142, 149, 224, 42, 26, 49, 215, 200, 16, 19}

	knownCorrectBankHash := []byte{190, 156, 54, 163, 252, 183, 243, 10, 147, 168, 42, 47, 214, 172, 160, 64, 86, 32, 203, 54, 119, 230, 201, 36, 164, 27, 30, 244, 96, 202, 88, 154}

	bankHash := calculateBankHash(acctsDeltaHash, parentBankHash, numSigs, blockHash)
	assert.Equal(t, knownCorrectBankHash, bankHash)
}

func Test_Accounts_Delta_Hash_Order(t *testing.T) {
	var accts []*accounts.Account
	for i := 0; i < 40; i++ {
		accts = append(accts, &accounts.Account{Key: solana.NewWallet().PublicKey(), Lamports: uint64(i + 1), Owner: sealevel.SystemProgramAddr})
	}
	reversed := make([]*accounts.Account, len(accts))
	for i, acct := range accts {
		reversed[len(accts)-1-i] = acct
	}

	h1 := calculateAcctsDeltaHash(accts)
	h2 := calculateAcctsDeltaHash(reversed)
	assert.Len(t, h1, 32)
	assert.Equal(t, h1, h2)

	accts[3].Lamports++
	assert.NotEqual(t, h1, calculateAcctsDeltaHash(accts))
	assert.Nil(t, calculateAcctsDeltaHash(nil))
}

func toSolanaInstruction(instr sealevel.Instruction) solana.Instruction {
	var metas solana.AccountMetaSlice
	for _, am := range instr.Accounts {
		metas = append(metas, solana.NewAccountMeta(am.Pubkey, am.IsWritable, am.IsSigner))
	}
	return solana.NewInstruction(instr.ProgramId, metas, instr.Data)
}

func newSignedTx(t *testing.T, payer solana.PrivateKey, instrs ...sealevel.Instruction) *solana.Transaction {
	ixs := make([]solana.Instruction, len(instrs))
	for i, instr := range instrs {
		ixs[i] = toSolanaInstruction(instr)
	}
	tx, err := solana.NewTransaction(ixs, solana.Hash{1, 2, 3}, solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key == payer.PublicKey() {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

type fixture struct {
	bank  *Bank
	accts accounts.MemAccounts
	payer solana.PrivateKey
}

func newFixture(t *testing.T) *fixture {
	accts := accounts.NewMemAccounts()
	payer := solana.NewWallet().PrivateKey
	pk := [32]byte(payer.PublicKey())
	require.NoError(t, accts.SetAccount(&pk, &accounts.Account{Key: payer.PublicKey(), Lamports: 1_000_000_000, Owner: sealevel.SystemProgramAddr}))

	b, err := New(accts, Config{Metrics: metrics.New(nil)})
	require.NoError(t, err)
	return &fixture{bank: b, accts: accts, payer: payer}
}

func (f *fixture) lamports(t *testing.T, pubkey solana.PublicKey) uint64 {
	k := [32]byte(pubkey)
	acct, err := f.accts.GetAccount(&k)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return 0
	}
	require.NoError(t, err)
	return acct.Lamports
}

func TestBank_New_WritesRentSysvar(t *testing.T) {
	f := newFixture(t)
	acct, err := f.accts.GetAccount(&sealevel.SysvarRentAddr)
	require.NoError(t, err)
	assert.Equal(t, sealevel.SysvarOwnerAddr, acct.Owner)
	assert.Equal(t, uint64(sealevel.SysvarRentStructLen), uint64(len(acct.Data)))
}

func TestBank_ProcessTransaction_Commit(t *testing.T) {
	f := newFixture(t)
	dest := solana.NewWallet().PublicKey()
	parentHash := f.bank.Hash()

	tx := newSignedTx(t, f.payer, sealevel.NewTransferInstruction(f.payer.PublicKey(), dest, 1000))
	result, err := f.bank.ProcessTransaction(tx)
	require.NoError(t, err)
	assert.NoError(t, result.Err)
	assert.Equal(t, tx.Signatures[0], result.Signature)
	assert.Greater(t, result.ComputeUnits, uint64(0))
	assert.ElementsMatch(t, []solana.PublicKey{f.payer.PublicKey(), dest}, result.Written)

	assert.Equal(t, uint64(1000), f.lamports(t, dest))
	assert.Equal(t, uint64(1_000_000_000-1000), f.lamports(t, f.payer.PublicKey()))
	assert.NotEqual(t, parentHash, f.bank.Hash())
	assert.Equal(t, uint64(1), f.bank.NumTransactions())
}

func TestBank_ProcessTransaction_Rollback(t *testing.T) {
	f := newFixture(t)
	dest1 := solana.NewWallet().PublicKey()
	dest2 := solana.NewWallet().PublicKey()
	parentHash := f.bank.Hash()

	tx := newSignedTx(t, f.payer,
		sealevel.NewTransferInstruction(f.payer.PublicKey(), dest1, 1000),
		sealevel.NewTransferInstruction(f.payer.PublicKey(), dest2, 10_000_000_000),
	)
	result, err := f.bank.ProcessTransaction(tx)
	require.Error(t, err)
	assert.Equal(t, err, result.Err)

	var instrErr *InstructionError
	require.ErrorAs(t, err, &instrErr)
	assert.Equal(t, 1, instrErr.Index)
	assert.Empty(t, result.Written)

	assert.Equal(t, uint64(0), f.lamports(t, dest1))
	assert.Equal(t, uint64(0), f.lamports(t, dest2))
	assert.Equal(t, uint64(1_000_000_000), f.lamports(t, f.payer.PublicKey()))
	assert.Equal(t, parentHash, f.bank.Hash())
	assert.Equal(t, uint64(0), f.bank.NumTransactions())
}

func TestBank_ProcessTransaction_InvalidSignature(t *testing.T) {
	f := newFixture(t)
	tx := newSignedTx(t, f.payer, sealevel.NewTransferInstruction(f.payer.PublicKey(), solana.NewWallet().PublicKey(), 1))
	tx.Signatures[0][0] ^= 0xff

	_, err := f.bank.ProcessTransaction(tx)
	var sigErr *TxErrInvalidSignature
	assert.ErrorAs(t, err, &sigErr)
	assert.Equal(t, uint64(1_000_000_000), f.lamports(t, f.payer.PublicKey()))
}

func TestBank_AdvanceClock(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.bank.AdvanceClock(1_700_000_000))
	require.NoError(t, f.bank.AdvanceClock(1_700_000_000))
	clock := f.bank.Clock()
	assert.Equal(t, uint64(2), clock.Slot)
	assert.Equal(t, int64(1_700_000_000), clock.UnixTimestamp)

	err := f.bank.AdvanceClock(1_600_000_000)
	assert.ErrorIs(t, err, ErrClockWentBackwards)
	assert.Equal(t, int64(1_700_000_000), f.bank.Clock().UnixTimestamp)

	// a bank reopened over the same store resumes from the stored clock
	reopened, err := New(f.accts, Config{})
	require.NoError(t, err)
	assert.Equal(t, clock, reopened.Clock())
}
