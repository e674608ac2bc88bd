package sealevel

import (
	"bytes"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/safemath"
)

// BorrowedAccount is exclusive access to one transaction account for the
// duration of a borrow. Every mutation goes through it so that ownership
// and writability rules hold.
type BorrowedAccount struct {
	TxCtx              *TransactionCtx
	InstrCtx           *InstructionCtx
	IndexInTransaction uint64
	Account            *accounts.Account
	isSigner           bool
	isWritable         bool
	dropped            bool
}

func (acct *BorrowedAccount) Drop() {
	if !acct.dropped {
		acct.TxCtx.Accounts.release(acct.IndexInTransaction)
		acct.dropped = true
	}
}

func (acct *BorrowedAccount) Key() solana.PublicKey {
	return acct.Account.Key
}

func (acct *BorrowedAccount) Owner() solana.PublicKey {
	return acct.Account.Owner
}

func (acct *BorrowedAccount) Lamports() uint64 {
	return acct.Account.Lamports
}

func (acct *BorrowedAccount) Data() []byte {
	return acct.Account.Data
}

func (acct *BorrowedAccount) IsSigner() bool {
	return acct.isSigner
}

func (acct *BorrowedAccount) IsWritable() bool {
	return acct.isWritable
}

func (acct *BorrowedAccount) IsExecutable() bool {
	return acct.Account.Executable
}

func (acct *BorrowedAccount) Touch() error {
	return acct.TxCtx.Accounts.Touch(acct.IndexInTransaction)
}

func (acct *BorrowedAccount) IsOwnedByCurrentProgram() bool {
	lastProgramKey, err := acct.InstrCtx.LastProgramKey(acct.TxCtx)
	if err != nil {
		return false
	}
	return lastProgramKey == acct.Owner()
}

func (acct *BorrowedAccount) DataCanBeChanged() error {
	if acct.IsExecutable() {
		return InstrErrExecutableDataModified
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyDataModified
	}
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrExternalAccountDataModified
	}
	return nil
}

func (acct *BorrowedAccount) SetData(data []byte) error {
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}
	if len(data) != len(acct.Account.Data) {
		return InstrErrAccountDataSizeChanged
	}
	if bytes.Equal(data, acct.Account.Data) {
		return nil
	}
	err = acct.Touch()
	if err != nil {
		return err
	}
	acct.Account.SetData(data)
	return nil
}

// SetDataLength resizes the account data, zero filling any growth.
func (acct *BorrowedAccount) SetDataLength(newLength uint64) error {
	if uint64(len(acct.Data())) == newLength {
		return nil
	}
	err := acct.DataCanBeChanged()
	if err != nil {
		return err
	}
	if newLength > SystemProgMaxPermittedDataLen {
		return InstrErrInvalidRealloc
	}
	err = acct.Touch()
	if err != nil {
		return err
	}
	resized := make([]byte, newLength)
	copy(resized, acct.Account.Data)
	acct.Account.Data = resized
	return nil
}

func (acct *BorrowedAccount) SetOwner(owner solana.PublicKey) error {
	if !acct.IsOwnedByCurrentProgram() {
		return InstrErrModifiedProgramId
	}
	if !acct.IsWritable() {
		return InstrErrModifiedProgramId
	}
	if acct.IsExecutable() {
		return InstrErrModifiedProgramId
	}
	for _, b := range acct.Data() {
		if b != 0 {
			return InstrErrModifiedProgramId
		}
	}
	if acct.Owner() == owner {
		return nil
	}
	err := acct.Touch()
	if err != nil {
		return err
	}
	acct.Account.Owner = owner
	return nil
}

func (acct *BorrowedAccount) SetLamports(lamports uint64) error {
	if !acct.IsOwnedByCurrentProgram() && lamports < acct.Lamports() {
		return InstrErrExternalAccountLamportSpend
	}
	if !acct.IsWritable() {
		return InstrErrReadonlyLamportChange
	}
	if acct.IsExecutable() {
		return InstrErrExecutableLamportChange
	}
	if acct.Lamports() == lamports {
		return nil
	}
	err := acct.Touch()
	if err != nil {
		return err
	}
	acct.Account.Lamports = lamports
	return nil
}

func (acct *BorrowedAccount) CheckedAddLamports(lamports uint64) error {
	balance, err := safemath.CheckedAddU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrArithmeticOverflow
	}
	return acct.SetLamports(balance)
}

func (acct *BorrowedAccount) CheckedSubLamports(lamports uint64) error {
	balance, err := safemath.CheckedSubU64(acct.Lamports(), lamports)
	if err != nil {
		return InstrErrInsufficientFunds
	}
	return acct.SetLamports(balance)
}
