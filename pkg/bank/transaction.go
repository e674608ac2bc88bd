package bank

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"go.firedancer.io/stakeledger/pkg/util"
)

type TxErrInvalidSignature struct {
	msg string
}

func NewTxErrInvalidSignature(msg string) error {
	return &TxErrInvalidSignature{msg: msg}
}

func (err *TxErrInvalidSignature) Error() string {
	return err.msg
}

var (
	TxErrNoInstructions  = errors.New("TxErrNoInstructions")
	TxErrAccountLoadFail = errors.New("TxErrAccountLoadFail")
)

// InstructionError is a failed transaction: Index is the instruction that
// failed.
type InstructionError struct {
	Index int
	Err   error
}

func (err *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d failed: %s", err.Index, err.Err)
}

func (err *InstructionError) Unwrap() error {
	return err.Err
}

func (b *Bank) isProgram(pubkey solana.PublicKey) bool {
	if sealevel.IsBuiltinProgram(pubkey) {
		return true
	}
	_, ok := b.programs[pubkey]
	return ok
}

func isSysvar(pubkey solana.PublicKey) bool {
	return pubkey == sealevel.SysvarClockAddr || pubkey == sealevel.SysvarRentAddr
}

func (b *Bank) transactionAcctsFromTx(tx *solana.Transaction) (*sealevel.TransactionAccounts, error) {
	txAcctMetas, err := tx.AccountMetaList()
	if err != nil {
		return nil, err
	}

	var programIdIdxs []uint64
	var instructionAccts []solana.PublicKey

	for _, instr := range tx.Message.Instructions {
		programIdIdxs = append(programIdIdxs, uint64(instr.ProgramIDIndex))
		ias, err := instr.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, err
		}
		for _, ia := range ias {
			instructionAccts = append(instructionAccts, ia.PublicKey)
		}
	}
	instructionAccts = util.DedupePubkeys(instructionAccts)

	acctsForTx := make([]accounts.Account, 0, len(txAcctMetas))
	for idx, acctMeta := range txAcctMetas {
		pubkey := acctMeta.PublicKey

		// programs only ever run natively, so their accounts are synthesised
		if b.isProgram(pubkey) && (slices.Contains(programIdIdxs, uint64(idx)) || slices.Contains(instructionAccts, pubkey)) {
			acctsForTx = append(acctsForTx, accounts.Account{Key: pubkey, Lamports: 1, Owner: sealevel.NativeLoaderAddr, Executable: true})
			continue
		}

		k := [32]byte(pubkey)
		acct, err := b.accts.GetAccount(&k)
		if errors.Is(err, accounts.ErrAccountNotFound) {
			acct = &accounts.Account{Key: pubkey, Owner: sealevel.SystemProgramAddr}
		} else if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", TxErrAccountLoadFail, pubkey, err)
		}
		acct.Key = pubkey
		acctsForTx = append(acctsForTx, *acct)
	}

	return sealevel.NewTransactionAccounts(acctsForTx), nil
}

func programIndices(tx *solana.Transaction, instrIdx int) []uint64 {
	idx := uint64(tx.Message.Instructions[instrIdx].ProgramIDIndex)
	return []uint64{idx}
}

func (b *Bank) instrsFromTx(tx *solana.Transaction) ([]sealevel.Instruction, error) {
	instrs := make([]sealevel.Instruction, len(tx.Message.Instructions))
	for idx, compiledInstr := range tx.Message.Instructions {
		programId, err := tx.ResolveProgramIDIndex(compiledInstr.ProgramIDIndex)
		if err != nil {
			return nil, err
		}

		ams, err := compiledInstr.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, err
		}

		acctMetas := make([]sealevel.AccountMeta, 0, len(ams))
		for _, am := range ams {
			acctMeta := sealevel.AccountMeta{Pubkey: am.PublicKey, IsSigner: am.IsSigner, IsWritable: b.isWritable(tx, am)}
			acctMetas = append(acctMetas, acctMeta)
		}

		instrs[idx] = sealevel.Instruction{Accounts: acctMetas, ProgramId: programId, Data: compiledInstr.Data}
	}

	return instrs, nil
}

func (b *Bank) isWritable(tx *solana.Transaction, am *solana.AccountMeta) bool {
	if !am.IsWritable {
		return false
	}

	if b.isProgram(am.PublicKey) || isSysvar(am.PublicKey) {
		return false
	}

	programIds, err := tx.GetProgramIDs()
	if err != nil {
		return false
	}
	return !slices.Contains(programIds, am.PublicKey)
}
