package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

const SystemProgMaxPermittedDataLen = 10 * 1024 * 1024

// Instruction data never exceeds a transaction packet.
const systemInstrMaxLen = 1232

const (
	systemInstrCreateAccount uint32 = 0
	systemInstrAssign        uint32 = 1
	systemInstrTransfer      uint32 = 2
	systemInstrAllocate      uint32 = 8
)

// Account positions shared by CreateAccount and Transfer. Allocate and
// Assign take a single account.
const (
	systemFundingIdx = 0
	systemTargetIdx  = 1
)

type createAccountArgs struct {
	Lamports uint64
	Space    uint64
	Owner    solana.PublicKey
}

func NewCreateAccountInstruction(from solana.PublicKey, to solana.PublicKey, lamports uint64, space uint64, owner solana.PublicKey) Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint32(systemInstrCreateAccount, bin.LE)
	_ = enc.WriteUint64(lamports, bin.LE)
	_ = enc.WriteUint64(space, bin.LE)
	_ = enc.WriteBytes(owner[:], false)

	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsSigner: true, IsWritable: true},
		},
		Data: buf.Bytes(),
	}
}

func NewTransferInstruction(from solana.PublicKey, to solana.PublicKey, lamports uint64) Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint32(systemInstrTransfer, bin.LE)
	_ = enc.WriteUint64(lamports, bin.LE)

	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts: []AccountMeta{
			{Pubkey: from, IsSigner: true, IsWritable: true},
			{Pubkey: to, IsWritable: true},
		},
		Data: buf.Bytes(),
	}
}

// NewAllocateInstruction sizes account, which must sign, to space zero
// bytes.
func NewAllocateInstruction(account solana.PublicKey, space uint64) Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint32(systemInstrAllocate, bin.LE)
	_ = enc.WriteUint64(space, bin.LE)

	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: account, IsSigner: true, IsWritable: true}},
		Data:      buf.Bytes(),
	}
}

// NewAssignInstruction hands account, which must sign, to owner.
func NewAssignInstruction(account solana.PublicKey, owner solana.PublicKey) Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint32(systemInstrAssign, bin.LE)
	_ = enc.WriteBytes(owner[:], false)

	return Instruction{
		ProgramId: SystemProgramAddr,
		Accounts:  []AccountMeta{{Pubkey: account, IsSigner: true, IsWritable: true}},
		Data:      buf.Bytes(),
	}
}

func decodeCreateAccount(decoder *bin.Decoder) (args createAccountArgs, err error) {
	args.Lamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return
	}
	args.Space, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return
	}
	owner, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return
	}
	copy(args.Owner[:], owner)
	return
}

func SystemProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUSystemProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	if len(instrCtx.Data) > systemInstrMaxLen {
		return InstrErrInvalidInstructionData
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)
	kind, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	switch kind {
	case systemInstrCreateAccount:
		args, err := decodeCreateAccount(decoder)
		if err != nil {
			return InstrErrInvalidInstructionData
		}
		err = instrCtx.CheckNumOfInstructionAccounts(2)
		if err != nil {
			return err
		}
		return systemCreateAccount(execCtx, instrCtx, args)

	case systemInstrTransfer:
		lamports, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return InstrErrInvalidInstructionData
		}
		err = instrCtx.CheckNumOfInstructionAccounts(2)
		if err != nil {
			return err
		}
		return systemTransfer(execCtx, instrCtx, lamports)

	case systemInstrAllocate:
		space, err := decoder.ReadUint64(bin.LE)
		if err != nil {
			return InstrErrInvalidInstructionData
		}
		return withSoleAccount(execCtx, instrCtx, func(acct *BorrowedAccount) error {
			return systemAllocate(acct, space)
		})

	case systemInstrAssign:
		owner, err := decoder.ReadBytes(solana.PublicKeyLength)
		if err != nil {
			return InstrErrInvalidInstructionData
		}
		return withSoleAccount(execCtx, instrCtx, func(acct *BorrowedAccount) error {
			return systemAssign(acct, solana.PublicKeyFromBytes(owner))
		})
	}

	return InstrErrInvalidInstructionData
}

// systemCreateAccount sizes and assigns the target, which must be an unused
// system account signing the instruction, then funds it from the payer.
func systemCreateAccount(execCtx *ExecutionCtx, instrCtx *InstructionCtx, args createAccountArgs) error {
	txCtx := execCtx.TransactionContext

	target, err := instrCtx.BorrowInstructionAccount(txCtx, systemTargetIdx)
	if err != nil {
		return err
	}
	err = claimAccount(execCtx, target, args.Space, args.Owner)
	target.Drop()
	if err != nil {
		return err
	}

	return systemTransfer(execCtx, instrCtx, args.Lamports)
}

func claimAccount(execCtx *ExecutionCtx, target *BorrowedAccount, space uint64, owner solana.PublicKey) error {
	if target.Lamports() > 0 {
		klog.V(2).Infof("create account: %s already holds %d lamports", target.Key(), target.Lamports())
		execCtx.Logf("Create Account: account Address { address: %s, base: None } already in use", target.Key())
		return SystemProgErrAccountAlreadyInUse
	}
	err := systemAllocate(target, space)
	if err != nil {
		return err
	}
	return systemAssign(target, owner)
}

func withSoleAccount(execCtx *ExecutionCtx, instrCtx *InstructionCtx, fn func(*BorrowedAccount) error) error {
	err := instrCtx.CheckNumOfInstructionAccounts(1)
	if err != nil {
		return err
	}
	acct, err := instrCtx.BorrowInstructionAccount(execCtx.TransactionContext, 0)
	if err != nil {
		return err
	}
	defer acct.Drop()
	return fn(acct)
}

// systemAllocate gives an unused system account, which must sign, space
// zero bytes.
func systemAllocate(acct *BorrowedAccount, space uint64) error {
	addr := acct.Key()
	if !acct.IsSigner() {
		klog.V(2).Infof("allocate: %s did not sign", addr)
		return InstrErrMissingRequiredSignature
	}
	if len(acct.Data()) != 0 || acct.Owner() != SystemProgramAddr {
		klog.V(2).Infof("allocate: %s already in use", addr)
		return SystemProgErrAccountAlreadyInUse
	}
	if space > SystemProgMaxPermittedDataLen {
		klog.V(2).Infof("allocate: space %d over limit %d", space, SystemProgMaxPermittedDataLen)
		return SystemProgErrInvalidAccountDataLength
	}
	return acct.SetDataLength(space)
}

// systemAssign hands a system account, which must sign, to owner.
// Assigning the current owner is a no-op.
func systemAssign(acct *BorrowedAccount, owner solana.PublicKey) error {
	if acct.Owner() == owner {
		return nil
	}
	if !acct.IsSigner() {
		klog.V(2).Infof("assign: %s did not sign", acct.Key())
		return InstrErrMissingRequiredSignature
	}
	return acct.SetOwner(owner)
}

// systemTransfer moves lamports from the funding account, which must sign
// and carry no data, to the target.
func systemTransfer(execCtx *ExecutionCtx, instrCtx *InstructionCtx, lamports uint64) error {
	txCtx := execCtx.TransactionContext

	signed, err := instrCtx.IsInstructionAccountSigner(systemFundingIdx)
	if err != nil {
		return err
	}
	if !signed {
		klog.V(2).Infof("transfer: funding account did not sign")
		return InstrErrMissingRequiredSignature
	}

	from, err := instrCtx.BorrowInstructionAccount(txCtx, systemFundingIdx)
	if err != nil {
		return err
	}
	switch {
	case len(from.Data()) != 0:
		err = InstrErrInvalidArgument
	case from.Lamports() < lamports:
		execCtx.Logf("Transfer: insufficient lamports %d, need %d", from.Lamports(), lamports)
		err = SystemProgErrResultWithNegativeLamports
	default:
		err = from.CheckedSubLamports(lamports)
	}
	from.Drop()
	if err != nil {
		return err
	}

	to, err := instrCtx.BorrowInstructionAccount(txCtx, systemTargetIdx)
	if err != nil {
		return err
	}
	defer to.Drop()
	return to.CheckedAddLamports(lamports)
}
