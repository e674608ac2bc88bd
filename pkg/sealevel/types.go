package sealevel

import (
	"github.com/gagliardetto/solana-go"
)

type Instruction struct {
	Accounts  []AccountMeta
	Data      []byte
	ProgramId solana.PublicKey
}

type AccountMeta struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool
}

type InstructionAccount struct {
	IndexInTransaction uint64
	IndexInCaller      uint64
	IndexInCallee      uint64
	IsSigner           bool
	IsWritable         bool
}

// InstructionAcctsFromAccountMetas resolves top-level account metas against
// the transaction's account list. Duplicate references share the first
// occurrence's callee index.
func InstructionAcctsFromAccountMetas(instrAccts []AccountMeta, txAccounts TransactionAccounts) ([]InstructionAccount, error) {
	instructionAccts := make([]InstructionAccount, 0, len(instrAccts))

	for idxInInstr, instrAcct := range instrAccts {
		idxInTx, err := txAccounts.IndexOfAccount(instrAcct.Pubkey)
		if err != nil {
			return nil, err
		}

		idxInCallee := uint64(idxInInstr)
		for prevIdx, prev := range instrAccts[:idxInInstr] {
			if prev.Pubkey == instrAcct.Pubkey {
				idxInCallee = uint64(prevIdx)
				break
			}
		}

		instructionAccts = append(instructionAccts, InstructionAccount{
			IndexInTransaction: idxInTx,
			IndexInCaller:      idxInTx,
			IndexInCallee:      idxInCallee,
			IsSigner:           instrAcct.IsSigner,
			IsWritable:         instrAcct.IsWritable,
		})
	}

	return instructionAccts, nil
}
