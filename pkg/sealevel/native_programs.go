package sealevel

import (
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/base58"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = base58.MustDecodeFromString(NativeLoaderAddrStr)

const SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = base58.MustDecodeFromString(SystemProgramAddrStr)

const TokenProgramAddrStr = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"

var TokenProgramAddr = base58.MustDecodeFromString(TokenProgramAddrStr)

type ProgramFn func(execCtx *ExecutionCtx) error

// ProgramRegistry maps program ids to native programs that are not
// builtins of this package.
type ProgramRegistry map[solana.PublicKey]ProgramFn

func (registry ProgramRegistry) Register(programId solana.PublicKey, fn ProgramFn) {
	registry[programId] = fn
}

func IsBuiltinProgram(programId solana.PublicKey) bool {
	switch programId {
	case SystemProgramAddr, TokenProgramAddr:
		return true
	}
	return false
}

func (execCtx *ExecutionCtx) IsNativeProgram(programId solana.PublicKey) bool {
	if IsBuiltinProgram(programId) {
		return true
	}
	_, ok := execCtx.Programs[programId]
	return ok
}

func (execCtx *ExecutionCtx) resolveNativeProgramById(programId solana.PublicKey) (ProgramFn, error) {
	switch programId {
	case SystemProgramAddr:
		return SystemProgramExecute, nil
	case TokenProgramAddr:
		return TokenProgramExecute, nil
	}

	if fn, ok := execCtx.Programs[programId]; ok {
		return fn, nil
	}

	return nil, InstrErrUnsupportedProgramId
}
