package sealevel

import "errors"

// instruction errors
var (
	InstrErrInvalidArgument                   = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidInstructionData            = errors.New("InstrErrInvalidInstructionData")
	InstrErrInvalidAccountData                = errors.New("InstrErrInvalidAccountData")
	InstrErrAccountDataTooSmall               = errors.New("InstrErrAccountDataTooSmall")
	InstrErrInsufficientFunds                 = errors.New("InstrErrInsufficientFunds")
	InstrErrIncorrectProgramId                = errors.New("InstrErrIncorrectProgramId")
	InstrErrMissingRequiredSignature          = errors.New("InstrErrMissingRequiredSignature")
	InstrErrAccountAlreadyInitialized         = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount              = errors.New("InstrErrUninitializedAccount")
	InstrErrUnbalancedInstruction             = errors.New("InstrErrUnbalancedInstruction")
	InstrErrModifiedProgramId                 = errors.New("InstrErrModifiedProgramId")
	InstrErrExternalAccountLamportSpend       = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrExternalAccountDataModified       = errors.New("InstrErrExternalAccountDataModified")
	InstrErrReadonlyLamportChange             = errors.New("InstrErrReadonlyLamportChange")
	InstrErrReadonlyDataModified              = errors.New("InstrErrReadonlyDataModified")
	InstrErrAccountBorrowFailed               = errors.New("InstrErrAccountBorrowFailed")
	InstrErrAccountBorrowOutstanding          = errors.New("InstrErrAccountBorrowOutstanding")
	InstrErrNotEnoughAccountKeys              = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrAccountDataSizeChanged            = errors.New("InstrErrAccountDataSizeChanged")
	InstrErrAccountNotExecutable              = errors.New("InstrErrAccountNotExecutable")
	InstrErrExecutableDataModified            = errors.New("InstrErrExecutableDataModified")
	InstrErrExecutableLamportChange           = errors.New("InstrErrExecutableLamportChange")
	InstrErrUnsupportedProgramId              = errors.New("InstrErrUnsupportedProgramId")
	InstrErrCallDepth                         = errors.New("InstrErrCallDepth")
	InstrErrMissingAccount                    = errors.New("InstrErrMissingAccount")
	InstrErrReentrancyNotAllowed              = errors.New("InstrErrReentrancyNotAllowed")
	InstrErrComputationalBudgetExceeded       = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrPrivilegeEscalation               = errors.New("InstrErrPrivilegeEscalation")
	InstrErrInvalidAccountOwner               = errors.New("InstrErrInvalidAccountOwner")
	InstrErrArithmeticOverflow                = errors.New("InstrErrArithmeticOverflow")
	InstrErrInvalidRealloc                    = errors.New("InstrErrInvalidRealloc")
	InstrErrInvalidSeeds                      = errors.New("InstrErrInvalidSeeds")
	InstrErrMaxInstructionTraceLengthExceeded = errors.New("InstrErrMaxInstructionTraceLengthExceeded")
	InstrErrUnsupportedSysvar                 = errors.New("InstrErrUnsupportedSysvar")
)

// system program errors
var (
	SystemProgErrAccountAlreadyInUse        = errors.New("SystemProgErrAccountAlreadyInUse")
	SystemProgErrInvalidAccountDataLength   = errors.New("SystemProgErrInvalidAccountDataLength")
	SystemProgErrResultWithNegativeLamports = errors.New("SystemProgErrResultWithNegativeLamports")
)

// token program errors
var (
	TokenErrNotRentExempt        = errors.New("TokenErrNotRentExempt")
	TokenErrInsufficientFunds    = errors.New("TokenErrInsufficientFunds")
	TokenErrInvalidMint          = errors.New("TokenErrInvalidMint")
	TokenErrMintMismatch         = errors.New("TokenErrMintMismatch")
	TokenErrOwnerMismatch        = errors.New("TokenErrOwnerMismatch")
	TokenErrAlreadyInUse         = errors.New("TokenErrAlreadyInUse")
	TokenErrUninitializedState   = errors.New("TokenErrUninitializedState")
	TokenErrOverflow             = errors.New("TokenErrOverflow")
	TokenErrMintDecimalsMismatch = errors.New("TokenErrMintDecimalsMismatch")
	TokenErrAccountFrozen        = errors.New("TokenErrAccountFrozen")
	TokenErrFixedSupply          = errors.New("TokenErrFixedSupply")
	TokenErrInvalidInstruction   = errors.New("TokenErrInvalidInstruction")
)
