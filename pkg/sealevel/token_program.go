package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/safemath"
	"k8s.io/klog/v2"
)

const (
	TokenInstrTypeTransfer           = 3
	TokenInstrTypeMintTo             = 7
	TokenInstrTypeTransferChecked    = 12
	TokenInstrTypeInitializeAccount3 = 18
	TokenInstrTypeInitializeMint2    = 20
)

type TokenInstrInitializeMint2 struct {
	Decimals        uint8
	MintAuthority   solana.PublicKey
	FreezeAuthority COptionPubkey
}

type TokenInstrInitializeAccount3 struct {
	Owner solana.PublicKey
}

type TokenInstrAmount struct {
	Amount uint64
}

type TokenInstrTransferChecked struct {
	Amount   uint64
	Decimals uint8
}

func (instr *TokenInstrInitializeMint2) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error
	instr.Decimals, err = decoder.ReadUint8()
	if err != nil {
		return err
	}
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(instr.MintAuthority[:], pk)

	// the instruction encodes the freeze authority with a one byte tag
	tag, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	if tag == 1 {
		pk, err = decoder.ReadBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		instr.FreezeAuthority.IsSome = true
		copy(instr.FreezeAuthority.Pubkey[:], pk)
	} else if tag != 0 {
		return TokenErrInvalidInstruction
	}
	return nil
}

func (instr *TokenInstrInitializeMint2) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteUint8(TokenInstrTypeInitializeMint2)
	_ = encoder.WriteUint8(instr.Decimals)
	_ = encoder.WriteBytes(instr.MintAuthority[:], false)
	if !instr.FreezeAuthority.IsSome {
		return encoder.WriteUint8(0)
	}
	_ = encoder.WriteUint8(1)
	return encoder.WriteBytes(instr.FreezeAuthority.Pubkey[:], false)
}

func (instr *TokenInstrInitializeAccount3) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(instr.Owner[:], pk)
	return nil
}

func (instr *TokenInstrInitializeAccount3) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteUint8(TokenInstrTypeInitializeAccount3)
	return encoder.WriteBytes(instr.Owner[:], false)
}

func (instr *TokenInstrAmount) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	instr.Amount, err = decoder.ReadUint64(bin.LE)
	return
}

func (instr *TokenInstrTransferChecked) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	instr.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return err
	}
	instr.Decimals, err = decoder.ReadUint8()
	return
}

func (instr *TokenInstrTransferChecked) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteUint8(TokenInstrTypeTransferChecked)
	_ = encoder.WriteUint64(instr.Amount, bin.LE)
	return encoder.WriteUint8(instr.Decimals)
}

func encodeTokenAmountInstr(instrType uint8, amount uint64) []byte {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)
	_ = encoder.WriteUint8(instrType)
	_ = encoder.WriteUint64(amount, bin.LE)
	return buf.Bytes()
}

func NewTokenInitializeMint2Instruction(mint solana.PublicKey, mintAuthority solana.PublicKey, decimals uint8) Instruction {
	buf := new(bytes.Buffer)
	instr := TokenInstrInitializeMint2{Decimals: decimals, MintAuthority: mintAuthority}
	_ = instr.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return Instruction{
		Accounts:  []AccountMeta{{Pubkey: mint, IsWritable: true}},
		Data:      buf.Bytes(),
		ProgramId: TokenProgramAddr,
	}
}

func NewTokenInitializeAccount3Instruction(account solana.PublicKey, mint solana.PublicKey, owner solana.PublicKey) Instruction {
	buf := new(bytes.Buffer)
	instr := TokenInstrInitializeAccount3{Owner: owner}
	_ = instr.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return Instruction{
		Accounts:  []AccountMeta{{Pubkey: account, IsWritable: true}, {Pubkey: mint}},
		Data:      buf.Bytes(),
		ProgramId: TokenProgramAddr,
	}
}

func NewTokenTransferInstruction(source solana.PublicKey, destination solana.PublicKey, authority solana.PublicKey, amount uint64) Instruction {
	return Instruction{
		Accounts: []AccountMeta{
			{Pubkey: source, IsWritable: true},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: authority, IsSigner: true},
		},
		Data:      encodeTokenAmountInstr(TokenInstrTypeTransfer, amount),
		ProgramId: TokenProgramAddr,
	}
}

func NewTokenTransferCheckedInstruction(source solana.PublicKey, mint solana.PublicKey, destination solana.PublicKey, authority solana.PublicKey, amount uint64, decimals uint8) Instruction {
	buf := new(bytes.Buffer)
	instr := TokenInstrTransferChecked{Amount: amount, Decimals: decimals}
	_ = instr.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return Instruction{
		Accounts: []AccountMeta{
			{Pubkey: source, IsWritable: true},
			{Pubkey: mint},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: authority, IsSigner: true},
		},
		Data:      buf.Bytes(),
		ProgramId: TokenProgramAddr,
	}
}

func NewTokenMintToInstruction(mint solana.PublicKey, destination solana.PublicKey, authority solana.PublicKey, amount uint64) Instruction {
	return Instruction{
		Accounts: []AccountMeta{
			{Pubkey: mint, IsWritable: true},
			{Pubkey: destination, IsWritable: true},
			{Pubkey: authority, IsSigner: true},
		},
		Data:      encodeTokenAmountInstr(TokenInstrTypeMintTo, amount),
		ProgramId: TokenProgramAddr,
	}
}

func TokenProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUTokenProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)
	instructionType, err := decoder.ReadUint8()
	if err != nil {
		return TokenErrInvalidInstruction
	}

	switch instructionType {
	case TokenInstrTypeInitializeMint2:
		{
			execCtx.ProgramLog("Instruction: InitializeMint2")
			var instr TokenInstrInitializeMint2
			err = instr.UnmarshalWithDecoder(decoder)
			if err != nil {
				return TokenErrInvalidInstruction
			}
			return tokenInitializeMint(execCtx, &instr)
		}

	case TokenInstrTypeInitializeAccount3:
		{
			execCtx.ProgramLog("Instruction: InitializeAccount3")
			var instr TokenInstrInitializeAccount3
			err = instr.UnmarshalWithDecoder(decoder)
			if err != nil {
				return TokenErrInvalidInstruction
			}
			return tokenInitializeAccount(execCtx, instr.Owner)
		}

	case TokenInstrTypeTransfer:
		{
			execCtx.ProgramLog("Instruction: Transfer")
			var instr TokenInstrAmount
			err = instr.UnmarshalWithDecoder(decoder)
			if err != nil {
				return TokenErrInvalidInstruction
			}
			err = instrCtx.CheckNumOfInstructionAccounts(3)
			if err != nil {
				return err
			}
			return tokenTransfer(execCtx, 0, 1, 2, instr.Amount, nil, nil)
		}

	case TokenInstrTypeTransferChecked:
		{
			execCtx.ProgramLog("Instruction: TransferChecked")
			var instr TokenInstrTransferChecked
			err = instr.UnmarshalWithDecoder(decoder)
			if err != nil {
				return TokenErrInvalidInstruction
			}
			err = instrCtx.CheckNumOfInstructionAccounts(4)
			if err != nil {
				return err
			}
			mintIdx := uint64(1)
			return tokenTransfer(execCtx, 0, 2, 3, instr.Amount, &mintIdx, &instr.Decimals)
		}

	case TokenInstrTypeMintTo:
		{
			execCtx.ProgramLog("Instruction: MintTo")
			var instr TokenInstrAmount
			err = instr.UnmarshalWithDecoder(decoder)
			if err != nil {
				return TokenErrInvalidInstruction
			}
			return tokenMintTo(execCtx, instr.Amount)
		}

	default:
		return TokenErrInvalidInstruction
	}
}

func tokenInitializeMint(execCtx *ExecutionCtx, instr *TokenInstrInitializeMint2) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	err = instrCtx.CheckNumOfInstructionAccounts(1)
	if err != nil {
		return err
	}

	rent, err := ReadRentSysvar(execCtx)
	if err != nil {
		return err
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer mintAcct.Drop()

	mint, err := UnpackTokenMint(mintAcct.Data())
	if err != nil {
		return err
	}
	if mint.IsInitialized {
		return TokenErrAlreadyInUse
	}
	if !rent.IsExempt(mintAcct.Lamports(), uint64(len(mintAcct.Data()))) {
		return TokenErrNotRentExempt
	}

	mint.MintAuthority = COptionPubkey{IsSome: true, Pubkey: instr.MintAuthority}
	mint.Decimals = instr.Decimals
	mint.IsInitialized = true
	mint.FreezeAuthority = instr.FreezeAuthority

	return mintAcct.SetData(mint.Pack())
}

func tokenInitializeAccount(execCtx *ExecutionCtx, owner solana.PublicKey) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	err = instrCtx.CheckNumOfInstructionAccounts(2)
	if err != nil {
		return err
	}

	rent, err := ReadRentSysvar(execCtx)
	if err != nil {
		return err
	}

	mintKey, err := instrCtx.InstructionAccountKey(txCtx, 1)
	if err != nil {
		return err
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}
	if mintAcct.Owner() != TokenProgramAddr {
		mintAcct.Drop()
		return InstrErrIncorrectProgramId
	}
	mint, err := UnpackTokenMint(mintAcct.Data())
	mintAcct.Drop()
	if err != nil || !mint.IsInitialized {
		return TokenErrInvalidMint
	}

	acct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer acct.Drop()

	tokenAcct, err := UnpackTokenAccount(acct.Data())
	if err != nil {
		return err
	}
	if tokenAcct.State != TokenAccountStateUninitialized {
		return TokenErrAlreadyInUse
	}
	if !rent.IsExempt(acct.Lamports(), uint64(len(acct.Data()))) {
		return TokenErrNotRentExempt
	}

	tokenAcct.Mint = mintKey
	tokenAcct.Owner = owner
	tokenAcct.State = TokenAccountStateInitialized

	return acct.SetData(tokenAcct.Pack())
}

func loadTokenAccount(execCtx *ExecutionCtx, instrAcctIdx uint64) (*TokenAccount, solana.PublicKey, error) {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	defer acct.Drop()

	if acct.Owner() != TokenProgramAddr {
		return nil, solana.PublicKey{}, InstrErrIncorrectProgramId
	}

	tokenAcct, err := UnpackTokenAccount(acct.Data())
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	if tokenAcct.State == TokenAccountStateUninitialized {
		return nil, solana.PublicKey{}, TokenErrUninitializedState
	}
	return tokenAcct, acct.Key(), nil
}

func storeTokenAccount(execCtx *ExecutionCtx, instrAcctIdx uint64, tokenAcct *TokenAccount) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer acct.Drop()

	return acct.SetData(tokenAcct.Pack())
}

func checkTokenAuthority(execCtx *ExecutionCtx, authorityIdx uint64, expected solana.PublicKey) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	authority, err := instrCtx.InstructionAccountKey(txCtx, authorityIdx)
	if err != nil {
		return err
	}
	if authority != expected {
		klog.Errorf("token authority mismatch: got %s, want %s", authority, expected)
		return TokenErrOwnerMismatch
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(authorityIdx)
	if err != nil {
		return err
	}
	if !isSigner {
		return InstrErrMissingRequiredSignature
	}
	return nil
}

// tokenTransfer moves amount between two token accounts of the same mint.
// When mintIdx is set the mint account and its decimals are checked too.
func tokenTransfer(execCtx *ExecutionCtx, sourceIdx, destIdx, authorityIdx uint64, amount uint64, mintIdx *uint64, decimals *uint8) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	source, sourceKey, err := loadTokenAccount(execCtx, sourceIdx)
	if err != nil {
		return err
	}
	dest, destKey, err := loadTokenAccount(execCtx, destIdx)
	if err != nil {
		return err
	}

	if source.IsFrozen() || dest.IsFrozen() {
		return TokenErrAccountFrozen
	}
	if source.Amount < amount {
		execCtx.ProgramLog("Error: insufficient funds")
		return TokenErrInsufficientFunds
	}
	if source.Mint != dest.Mint {
		return TokenErrMintMismatch
	}

	if mintIdx != nil {
		mintKey, err := instrCtx.InstructionAccountKey(txCtx, *mintIdx)
		if err != nil {
			return err
		}
		if mintKey != source.Mint {
			return TokenErrMintMismatch
		}
		mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, *mintIdx)
		if err != nil {
			return err
		}
		mint, err := UnpackTokenMint(mintAcct.Data())
		mintAcct.Drop()
		if err != nil {
			return err
		}
		if mint.Decimals != *decimals {
			return TokenErrMintDecimalsMismatch
		}
	}

	err = checkTokenAuthority(execCtx, authorityIdx, source.Owner)
	if err != nil {
		return err
	}

	if sourceKey == destKey {
		return nil
	}

	source.Amount -= amount
	dest.Amount, err = safemath.CheckedAddU64(dest.Amount, amount)
	if err != nil {
		return TokenErrOverflow
	}

	err = storeTokenAccount(execCtx, sourceIdx, source)
	if err != nil {
		return err
	}
	return storeTokenAccount(execCtx, destIdx, dest)
}

func tokenMintTo(execCtx *ExecutionCtx, amount uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	err = instrCtx.CheckNumOfInstructionAccounts(3)
	if err != nil {
		return err
	}

	dest, _, err := loadTokenAccount(execCtx, 1)
	if err != nil {
		return err
	}
	if dest.IsFrozen() {
		return TokenErrAccountFrozen
	}

	mintKey, err := instrCtx.InstructionAccountKey(txCtx, 0)
	if err != nil {
		return err
	}
	if dest.Mint != mintKey {
		return TokenErrMintMismatch
	}

	mintAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	if mintAcct.Owner() != TokenProgramAddr {
		mintAcct.Drop()
		return InstrErrIncorrectProgramId
	}
	mint, err := UnpackTokenMint(mintAcct.Data())
	mintAcct.Drop()
	if err != nil {
		return err
	}
	if !mint.MintAuthority.IsSome {
		return TokenErrFixedSupply
	}

	err = checkTokenAuthority(execCtx, 2, mint.MintAuthority.Pubkey)
	if err != nil {
		return err
	}

	dest.Amount, err = safemath.CheckedAddU64(dest.Amount, amount)
	if err != nil {
		return TokenErrOverflow
	}
	mint.Supply, err = safemath.CheckedAddU64(mint.Supply, amount)
	if err != nil {
		return TokenErrOverflow
	}

	err = storeTokenAccount(execCtx, 1, dest)
	if err != nil {
		return err
	}

	mintAcct, err = instrCtx.BorrowInstructionAccount(txCtx, 0)
	if err != nil {
		return err
	}
	defer mintAcct.Drop()
	return mintAcct.SetData(mint.Pack())
}
