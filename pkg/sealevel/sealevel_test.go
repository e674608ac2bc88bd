package sealevel

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/cu"
	"go.firedancer.io/stakeledger/pkg/features"
	pda "go.firedancer.io/stakeledger/pkg/solana"
)

var testProgramAddr = solana.MustPublicKeyFromBase58("TestProgram11111111111111111111111111111111")

func randomPubkey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey.PublicKey()
}

func programAcct(key solana.PublicKey) accounts.Account {
	return accounts.Account{Key: key, Lamports: 1, Owner: NativeLoaderAddr, Executable: true}
}

func newTestExecCtx(t *testing.T, accts []accounts.Account, programs ProgramRegistry) *ExecutionCtx {
	transactionAccts := NewTransactionAccounts(accts)
	txCtx := NewTransactionCtx(*transactionAccts, DefaultMaxInstructionStackDepth, DefaultMaxInstructionTraceLength)

	store := accounts.NewMemAccounts()
	require.NoError(t, WriteClockSysvar(store, SysvarClock{Slot: 1234, UnixTimestamp: 1_700_000_000}))
	require.NoError(t, WriteRentSysvar(store, DefaultRent()))

	return &ExecutionCtx{
		Log:                &LogRecorder{},
		Accounts:           store,
		TransactionContext: txCtx,
		Features:           *features.NewFeaturesDefault(),
		ComputeMeter:       cu.NewComputeMeter(cu.DefaultComputeUnitLimit),
		Programs:           programs,
	}
}

func processTopLevel(t *testing.T, execCtx *ExecutionCtx, instr Instruction) error {
	txAccts := execCtx.TransactionContext.Accounts
	instructionAccts, err := InstructionAcctsFromAccountMetas(instr.Accounts, txAccts)
	require.NoError(t, err)
	programIdx, err := txAccts.IndexOfAccount(instr.ProgramId)
	require.NoError(t, err)
	return execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{programIdx})
}

func TestExecute_Instruction_UnknownProgram(t *testing.T) {
	unknown := randomPubkey(t)
	execCtx := newTestExecCtx(t, []accounts.Account{programAcct(unknown)}, nil)
	err := processTopLevel(t, execCtx, Instruction{ProgramId: unknown})
	assert.ErrorIs(t, err, InstrErrUnsupportedProgramId)
}

func TestExecute_Instruction_NotNativeLoaderOwned(t *testing.T) {
	key := randomPubkey(t)
	acct := accounts.Account{Key: key, Lamports: 1, Owner: SystemProgramAddr, Executable: true}
	programs := ProgramRegistry{key: func(*ExecutionCtx) error { return nil }}
	execCtx := newTestExecCtx(t, []accounts.Account{acct}, programs)
	err := processTopLevel(t, execCtx, Instruction{ProgramId: key})
	assert.ErrorIs(t, err, InstrErrUnsupportedProgramId)
}

func TestExecute_Instruction_Unbalanced(t *testing.T) {
	victim := randomPubkey(t)
	programs := ProgramRegistry{testProgramAddr: func(execCtx *ExecutionCtx) error {
		instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		acct, err := instrCtx.BorrowInstructionAccount(execCtx.TransactionContext, 0)
		if err != nil {
			return err
		}
		defer acct.Drop()
		// crediting is allowed, but the lamports come from nowhere
		return acct.CheckedAddLamports(10)
	}}
	execCtx := newTestExecCtx(t, []accounts.Account{
		programAcct(testProgramAddr),
		{Key: victim, Lamports: 100, Owner: SystemProgramAddr},
	}, programs)

	err := processTopLevel(t, execCtx, Instruction{
		ProgramId: testProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: victim, IsWritable: true}},
	})
	assert.ErrorIs(t, err, InstrErrUnbalancedInstruction)
}

func TestExecute_BorrowedAccount_OwnershipRules(t *testing.T) {
	foreign := randomPubkey(t)
	readonly := randomPubkey(t)
	var errs []error
	programs := ProgramRegistry{testProgramAddr: func(execCtx *ExecutionCtx) error {
		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}

		acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
		if err != nil {
			return err
		}
		errs = append(errs, acct.SetData([]byte{1, 2, 3}))
		errs = append(errs, acct.CheckedSubLamports(1))

		// the same account cannot be borrowed twice
		_, err = instrCtx.BorrowInstructionAccount(txCtx, 0)
		errs = append(errs, err)
		acct.Drop()

		ro, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
		if err != nil {
			return err
		}
		defer ro.Drop()
		errs = append(errs, ro.SetData(nil))
		errs = append(errs, ro.CheckedAddLamports(1))
		return nil
	}}

	execCtx := newTestExecCtx(t, []accounts.Account{
		programAcct(testProgramAddr),
		{Key: foreign, Lamports: 100, Data: []byte{9, 9, 9}, Owner: SystemProgramAddr},
		{Key: readonly, Lamports: 100, Owner: testProgramAddr},
	}, programs)

	err := processTopLevel(t, execCtx, Instruction{
		ProgramId: testProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: foreign, IsWritable: true}, {Pubkey: readonly}},
	})
	require.NoError(t, err)
	require.Len(t, errs, 5)
	assert.ErrorIs(t, errs[0], InstrErrExternalAccountDataModified)
	assert.ErrorIs(t, errs[1], InstrErrExternalAccountLamportSpend)
	assert.ErrorIs(t, errs[2], InstrErrAccountBorrowFailed)
	assert.ErrorIs(t, errs[3], InstrErrReadonlyDataModified)
	assert.ErrorIs(t, errs[4], InstrErrReadonlyLamportChange)

	acct, err := execCtx.TransactionContext.Accounts.GetAccount(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9}, acct.Data)
	assert.Empty(t, execCtx.TransactionContext.Accounts.TouchedAccounts())
}

// a program that forwards a system transfer of its first account to its
// second, optionally signing for a derived address
func forwardingProgram(seeds [][]byte) ProgramFn {
	return func(execCtx *ExecutionCtx) error {
		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		from, err := instrCtx.InstructionAccountKey(txCtx, 0)
		if err != nil {
			return err
		}
		to, err := instrCtx.InstructionAccountKey(txCtx, 1)
		if err != nil {
			return err
		}

		ix := NewTransferInstruction(from, to, 40)
		if seeds == nil {
			return execCtx.NativeInvoke(ix, nil)
		}
		return execCtx.NativeInvokeSigned(ix, [][][]byte{seeds})
	}
}

func TestExecute_NativeInvoke_SignerPrivilegeEscalation(t *testing.T) {
	from := randomPubkey(t)
	to := randomPubkey(t)
	programs := ProgramRegistry{testProgramAddr: forwardingProgram(nil)}
	execCtx := newTestExecCtx(t, []accounts.Account{
		programAcct(testProgramAddr),
		programAcct(SystemProgramAddr),
		{Key: from, Lamports: 100, Owner: SystemProgramAddr},
		{Key: to, Owner: SystemProgramAddr},
	}, programs)

	instr := Instruction{
		ProgramId: testProgramAddr,
		Accounts: []AccountMeta{
			{Pubkey: from, IsWritable: true},
			{Pubkey: to, IsWritable: true},
			{Pubkey: SystemProgramAddr},
		},
	}
	err := processTopLevel(t, execCtx, instr)
	assert.ErrorIs(t, err, InstrErrPrivilegeEscalation)

	// the same call succeeds once the caller holds the signature
	instr.Accounts[0].IsSigner = true
	execCtx = newTestExecCtx(t, []accounts.Account{
		programAcct(testProgramAddr),
		programAcct(SystemProgramAddr),
		{Key: from, Lamports: 100, Owner: SystemProgramAddr},
		{Key: to, Owner: SystemProgramAddr},
	}, programs)
	require.NoError(t, processTopLevel(t, execCtx, instr))

	toPost, err := execCtx.TransactionContext.Accounts.GetAccount(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(40), toPost.Lamports)
}

func TestExecute_NativeInvoke_WritablePrivilegeEscalation(t *testing.T) {
	from := randomPubkey(t)
	to := randomPubkey(t)
	programs := ProgramRegistry{testProgramAddr: forwardingProgram(nil)}
	execCtx := newTestExecCtx(t, []accounts.Account{
		programAcct(testProgramAddr),
		programAcct(SystemProgramAddr),
		{Key: from, Lamports: 100, Owner: SystemProgramAddr},
		{Key: to, Owner: SystemProgramAddr},
	}, programs)

	err := processTopLevel(t, execCtx, Instruction{
		ProgramId: testProgramAddr,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to},
			{Pubkey: SystemProgramAddr},
		},
	})
	assert.ErrorIs(t, err, InstrErrPrivilegeEscalation)
}

func TestExecute_NativeInvoke_CalleeMustBeListed(t *testing.T) {
	from := randomPubkey(t)
	to := randomPubkey(t)
	programs := ProgramRegistry{testProgramAddr: forwardingProgram(nil)}
	execCtx := newTestExecCtx(t, []accounts.Account{
		programAcct(testProgramAddr),
		programAcct(SystemProgramAddr),
		{Key: from, Lamports: 100, Owner: SystemProgramAddr},
		{Key: to, Owner: SystemProgramAddr},
	}, programs)

	err := processTopLevel(t, execCtx, Instruction{
		ProgramId: testProgramAddr,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
	})
	assert.ErrorIs(t, err, InstrErrMissingAccount)
}

func TestExecute_NativeInvokeSigned_DerivedSigner(t *testing.T) {
	seeds := [][]byte{[]byte("vault")}
	vault, bump, err := pda.FindProgramAddress(seeds, testProgramAddr)
	require.NoError(t, err)
	signerSeeds := [][]byte{[]byte("vault"), {bump}}
	to := randomPubkey(t)

	newCtx := func(programSeeds [][]byte) *ExecutionCtx {
		return newTestExecCtx(t, []accounts.Account{
			programAcct(testProgramAddr),
			programAcct(SystemProgramAddr),
			{Key: vault, Lamports: 100, Owner: SystemProgramAddr},
			{Key: to, Owner: SystemProgramAddr},
		}, ProgramRegistry{testProgramAddr: forwardingProgram(programSeeds)})
	}
	instr := Instruction{
		ProgramId: testProgramAddr,
		Accounts: []AccountMeta{
			{Pubkey: vault, IsWritable: true},
			{Pubkey: to, IsWritable: true},
			{Pubkey: SystemProgramAddr},
		},
	}

	execCtx := newCtx(signerSeeds)
	require.NoError(t, processTopLevel(t, execCtx, instr))
	vaultPost, err := execCtx.TransactionContext.Accounts.GetAccount(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(60), vaultPost.Lamports)
	assert.Len(t, execCtx.TransactionContext.Accounts.TouchedAccounts(), 2)

	// seeds for some other address do not sign for the vault
	execCtx = newCtx([][]byte{[]byte("other")})
	err = processTopLevel(t, execCtx, instr)
	assert.Error(t, err)
	vaultPost, err = execCtx.TransactionContext.Accounts.GetAccount(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), vaultPost.Lamports)
}

func TestExecute_NativeInvoke_NestedFailure(t *testing.T) {
	programs := ProgramRegistry{testProgramAddr: func(execCtx *ExecutionCtx) error {
		return execCtx.NativeInvoke(Instruction{
			ProgramId: SystemProgramAddr,
			Data:      []byte{0xff, 0xff, 0xff, 0xff},
		}, nil)
	}}
	execCtx := newTestExecCtx(t, []accounts.Account{
		programAcct(testProgramAddr),
		programAcct(SystemProgramAddr),
	}, programs)

	err := processTopLevel(t, execCtx, Instruction{
		ProgramId: testProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: SystemProgramAddr}},
	})
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)

	logs := execCtx.Log.(*LogRecorder).Logs
	assert.Contains(t, logs, "Program "+SystemProgramAddrStr+" invoke [2]")
}

func TestExecute_ComputeBudgetExceeded(t *testing.T) {
	from := randomPubkey(t)
	to := randomPubkey(t)
	execCtx := newTestExecCtx(t, []accounts.Account{
		programAcct(SystemProgramAddr),
		{Key: from, Lamports: 100, Owner: SystemProgramAddr},
		{Key: to, Owner: SystemProgramAddr},
	}, nil)
	execCtx.ComputeMeter = cu.NewComputeMeter(CUSystemProgramDefaultComputeUnits - 1)

	err := processTopLevel(t, execCtx, NewTransferInstruction(from, to, 1))
	assert.ErrorIs(t, err, InstrErrComputationalBudgetExceeded)
}

func TestSysvar_Clock_RoundTrip(t *testing.T) {
	execCtx := newTestExecCtx(t, nil, nil)
	clock, err := ReadClockSysvar(execCtx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), clock.Slot)
	assert.Equal(t, int64(1_700_000_000), clock.UnixTimestamp)

	execCtx.Accounts = accounts.NewMemAccounts()
	_, err = ReadClockSysvar(execCtx)
	assert.ErrorIs(t, err, InstrErrUnsupportedSysvar)
}

func TestSysvar_Rent_MinimumBalance(t *testing.T) {
	rent := DefaultRent()
	assert.Equal(t, uint64(890880), rent.MinimumBalance(0))
	assert.Equal(t, uint64(2039280), rent.MinimumBalance(TokenAccountLen))
	assert.True(t, rent.IsExempt(2039280, TokenAccountLen))
	assert.False(t, rent.IsExempt(2039279, TokenAccountLen))

	execCtx := newTestExecCtx(t, nil, nil)
	stored, err := ReadRentSysvar(execCtx)
	require.NoError(t, err)
	assert.Equal(t, rent, stored)
}
