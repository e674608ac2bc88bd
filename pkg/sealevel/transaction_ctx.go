package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/accounts"
)

const (
	DefaultMaxInstructionStackDepth  = 5
	DefaultMaxInstructionTraceLength = 64
)

// TransactionAccounts is the private working copy of every account a
// transaction references. Nothing here reaches durable storage until the
// caller commits the touched accounts.
type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
	borrowed []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccts := &TransactionAccounts{
		Accounts: make([]*accounts.Account, len(accts)),
		Touched:  make([]bool, len(accts)),
		borrowed: make([]bool, len(accts)),
	}
	for idx := range accts {
		txAccts.Accounts[idx] = accts[idx].Clone()
	}
	return txAccts
}

func (txAccounts *TransactionAccounts) Len() uint64 {
	return uint64(len(txAccounts.Accounts))
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= txAccounts.Len() {
		return nil, InstrErrMissingAccount
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for idx, acct := range txAccounts.Accounts {
		if acct.Key == pubkey {
			return uint64(idx), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= txAccounts.Len() {
		return InstrErrNotEnoughAccountKeys
	}
	txAccounts.Touched[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) borrow(idx uint64) error {
	if idx >= txAccounts.Len() {
		return InstrErrMissingAccount
	}
	if txAccounts.borrowed[idx] {
		return InstrErrAccountBorrowFailed
	}
	txAccounts.borrowed[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) release(idx uint64) {
	if idx < txAccounts.Len() {
		txAccounts.borrowed[idx] = false
	}
}

func (txAccounts *TransactionAccounts) anyBorrowed() bool {
	for _, b := range txAccounts.borrowed {
		if b {
			return true
		}
	}
	return false
}

// TouchedAccounts returns the accounts modified during execution, in
// transaction order.
func (txAccounts *TransactionAccounts) TouchedAccounts() []*accounts.Account {
	var touched []*accounts.Account
	for idx, acct := range txAccounts.Accounts {
		if txAccounts.Touched[idx] {
			touched = append(touched, acct)
		}
	}
	return touched
}

type TransactionCtx struct {
	Accounts                  TransactionAccounts
	instructionStack          []*InstructionCtx
	instructionTrace          []*InstructionCtx
	MaxInstructionStackDepth  uint64
	MaxInstructionTraceLength uint64
}

func NewTransactionCtx(txAccts TransactionAccounts, maxStackDepth uint64, maxTraceLength uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:                  txAccts,
		MaxInstructionStackDepth:  maxStackDepth,
		MaxInstructionTraceLength: maxTraceLength,
	}
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	return txCtx.Accounts.IndexOfAccount(pubkey)
}

func (txCtx *TransactionCtx) AccountAtIndex(idx uint64) (*accounts.Account, error) {
	return txCtx.Accounts.GetAccount(idx)
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	if len(txCtx.instructionStack) == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionStack[len(txCtx.instructionStack)-1], nil
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace))
}

func (txCtx *TransactionCtx) InstructionCtxAtNestingLevel(level uint64) (*InstructionCtx, error) {
	if level >= txCtx.InstructionCtxStackHeight() {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionStack[level], nil
}

func (txCtx *TransactionCtx) Push(instrCtx *InstructionCtx) error {
	if txCtx.InstructionTraceLength() >= txCtx.MaxInstructionTraceLength {
		return InstrErrMaxInstructionTraceLengthExceeded
	}
	if txCtx.InstructionCtxStackHeight() >= txCtx.MaxInstructionStackDepth {
		return InstrErrCallDepth
	}
	txCtx.instructionTrace = append(txCtx.instructionTrace, instrCtx)
	txCtx.instructionStack = append(txCtx.instructionStack, instrCtx)
	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	if len(txCtx.instructionStack) == 0 {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = txCtx.instructionStack[:len(txCtx.instructionStack)-1]
	return nil
}
