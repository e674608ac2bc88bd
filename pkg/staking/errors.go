package staking

import (
	"errors"
	"fmt"

	"go.firedancer.io/stakeledger/pkg/sealevel"
)

const CustomErrorOffset = 6000

// Error is a program-defined failure. Code is the number reported to
// clients; it starts at CustomErrorOffset.
type Error struct {
	Code uint32
	Name string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("custom program error: 0x%x (%s)", e.Code, e.Name)
}

func newError(idx uint32, name string, msg string) *Error {
	return &Error{Code: CustomErrorOffset + idx, Name: name, Msg: msg}
}

var (
	ErrCannotStakeZeroTokens      = newError(0, "CannotStakeZeroTokens", "Cannot stake zero tokens")
	ErrCannotUnstakeZeroTokens    = newError(1, "CannotUnstakeZeroTokens", "Cannot unstake zero tokens")
	ErrInsufficientStakedAmount   = newError(2, "InsufficientStakedAmount", "Insufficient staked amount")
	ErrInvalidRewardRate          = newError(3, "InvalidRewardRate", "Invalid reward rate")
	ErrArithmeticOverflow         = newError(4, "ArithmeticOverflow", "Arithmetic overflow")
	ErrAddressBlacklisted         = newError(5, "AddressBlacklisted", "Address is blacklisted")
	ErrAddressNotBlacklisted      = newError(6, "AddressNotBlacklisted", "Address is not blacklisted")
	ErrCannotBlacklistZeroAddress = newError(7, "CannotBlacklistZeroAddress", "Cannot blacklist zero address")
	ErrAddressAlreadyBlacklisted  = newError(8, "AddressAlreadyBlacklisted", "Address is already blacklisted")
	ErrUnauthorized               = newError(9, "Unauthorized", "Signer is not the program admin")
	ErrInsufficientCustodyFunds   = newError(10, "InsufficientCustodyFunds", "Vault balance cannot cover the transfer")
	ErrInvalidAccount             = newError(11, "InvalidAccount", "Account does not match its expected address")
	ErrAccountNotInitialized      = newError(12, "AccountNotInitialized", "Account is not initialized")
	ErrInvalidTokenAccount        = newError(13, "InvalidTokenAccount", "Token account has the wrong mint or owner")
)

var AllErrors = []*Error{
	ErrCannotStakeZeroTokens,
	ErrCannotUnstakeZeroTokens,
	ErrInsufficientStakedAmount,
	ErrInvalidRewardRate,
	ErrArithmeticOverflow,
	ErrAddressBlacklisted,
	ErrAddressNotBlacklisted,
	ErrCannotBlacklistZeroAddress,
	ErrAddressAlreadyBlacklisted,
	ErrUnauthorized,
	ErrInsufficientCustodyFunds,
	ErrInvalidAccount,
	ErrAccountNotInitialized,
	ErrInvalidTokenAccount,
}

// ErrorByCode looks up a program error by its reported number.
func ErrorByCode(code uint32) (*Error, bool) {
	if code < CustomErrorOffset || code >= CustomErrorOffset+uint32(len(AllErrors)) {
		return nil, false
	}
	return AllErrors[code-CustomErrorOffset], true
}

func logError(execCtx *sealevel.ExecutionCtx, err error) {
	var progErr *Error
	if errors.As(err, &progErr) {
		execCtx.ProgramLog(fmt.Sprintf("AnchorError occurred. Error Code: %s. Error Number: %d. Error Message: %s.", progErr.Name, progErr.Code, progErr.Msg))
	}
}
