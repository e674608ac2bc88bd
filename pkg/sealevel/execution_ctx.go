package sealevel

import (
	"slices"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/cu"
	"go.firedancer.io/stakeledger/pkg/features"
	pda "go.firedancer.io/stakeledger/pkg/solana"
	"k8s.io/klog/v2"
)

type ExecutionCtx struct {
	Log                Logger
	Accounts           accounts.Accounts
	TransactionContext *TransactionCtx
	Features           features.Features
	ComputeMeter       cu.ComputeMeter
	Programs           ProgramRegistry
}

// PrepareInstruction maps a nested instruction's account metas onto the
// transaction. Repeated metas share one entry whose privileges are the union
// of the repeats. The callee may not gain a privilege the caller lacks,
// except signing for an address in signers.
func (execCtx *ExecutionCtx) PrepareInstruction(ix Instruction, signers []solana.PublicKey) ([]InstructionAccount, []uint64, error) {
	txCtx := execCtx.TransactionContext
	caller, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, nil, err
	}

	var unique []InstructionAccount
	firstSeen := make(map[uint64]int, len(ix.Accounts))
	order := make([]int, len(ix.Accounts))

	for i, meta := range ix.Accounts {
		idxInTx, err := txCtx.IndexOfAccount(meta.Pubkey)
		if err != nil {
			klog.V(2).Infof("nested instruction references unknown account %s", meta.Pubkey)
			return nil, nil, err
		}

		if pos, ok := firstSeen[idxInTx]; ok {
			unique[pos].IsSigner = unique[pos].IsSigner || meta.IsSigner
			unique[pos].IsWritable = unique[pos].IsWritable || meta.IsWritable
			order[i] = pos
			continue
		}

		idxInCaller, err := caller.IndexOfInstructionAccount(txCtx, meta.Pubkey)
		if err != nil {
			klog.V(2).Infof("nested instruction account %s not passed to caller", meta.Pubkey)
			return nil, nil, err
		}
		firstSeen[idxInTx] = len(unique)
		order[i] = len(unique)
		unique = append(unique, InstructionAccount{
			IndexInTransaction: idxInTx,
			IndexInCaller:      idxInCaller,
			IndexInCallee:      uint64(i),
			IsSigner:           meta.IsSigner,
			IsWritable:         meta.IsWritable,
		})
	}

	for _, ia := range unique {
		err = checkCalleePrivileges(txCtx, caller, ia, signers)
		if err != nil {
			return nil, nil, err
		}
	}

	instrAccts := make([]InstructionAccount, len(order))
	for i, pos := range order {
		instrAccts[i] = unique[pos]
	}

	programIdx, err := caller.IndexOfInstructionAccount(txCtx, ix.ProgramId)
	if err != nil {
		klog.V(2).Infof("program %s not passed to caller", ix.ProgramId)
		return nil, nil, err
	}
	program, err := caller.BorrowInstructionAccount(txCtx, programIdx)
	if err != nil {
		return nil, nil, err
	}
	defer program.Drop()
	if !program.IsExecutable() {
		return nil, nil, InstrErrAccountNotExecutable
	}

	return instrAccts, []uint64{program.IndexInTransaction}, nil
}

func checkCalleePrivileges(txCtx *TransactionCtx, caller *InstructionCtx, ia InstructionAccount, signers []solana.PublicKey) error {
	acct, err := caller.BorrowInstructionAccount(txCtx, ia.IndexInCaller)
	if err != nil {
		return err
	}
	defer acct.Drop()

	if ia.IsWritable && !acct.IsWritable() {
		klog.V(2).Infof("%s is read-only in caller", acct.Key())
		return InstrErrPrivilegeEscalation
	}
	if ia.IsSigner && !acct.IsSigner() && !slices.Contains(signers, acct.Key()) {
		klog.V(2).Infof("%s did not sign for caller", acct.Key())
		return InstrErrPrivilegeEscalation
	}
	return nil
}

// ProcessInstruction runs one instruction, top-level or nested. The sum of
// lamports across the instruction's accounts must be unchanged afterwards.
func (execCtx *ExecutionCtx) ProcessInstruction(instrData []byte, instructionAccts []InstructionAccount, programIndices []uint64) error {
	txCtx := execCtx.TransactionContext

	if txCtx.Accounts.anyBorrowed() && txCtx.InstructionCtxStackHeight() == 0 {
		return InstrErrAccountBorrowOutstanding
	}

	nextInstrCtx := new(InstructionCtx)
	nextInstrCtx.Configure(programIndices, instructionAccts, instrData)

	preBalance, err := execCtx.instructionLamports(nextInstrCtx)
	if err != nil {
		return err
	}

	err = execCtx.Push(nextInstrCtx)
	if err != nil {
		return err
	}

	err1 := execCtx.ExecuteInstruction()

	err2 := execCtx.Pop()

	if err1 != nil {
		return err1
	} else if err2 != nil {
		return err2
	}

	postBalance, err := execCtx.instructionLamports(nextInstrCtx)
	if err != nil {
		return err
	}
	if preBalance != postBalance {
		klog.Errorf("unbalanced instruction: pre %d, post %d", preBalance, postBalance)
		return InstrErrUnbalancedInstruction
	}

	return nil
}

func (execCtx *ExecutionCtx) instructionLamports(instrCtx *InstructionCtx) (uint64, error) {
	seen := make(map[uint64]bool)
	var total uint64
	for _, instrAcct := range instrCtx.InstructionAccounts {
		if seen[instrAcct.IndexInTransaction] {
			continue
		}
		seen[instrAcct.IndexInTransaction] = true

		acct, err := execCtx.TransactionContext.AccountAtIndex(instrAcct.IndexInTransaction)
		if err != nil {
			return 0, err
		}
		total += acct.Lamports
		if total < acct.Lamports {
			return 0, InstrErrArithmeticOverflow
		}
	}
	return total, nil
}

func (execCtx *ExecutionCtx) ExecuteInstruction() error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	borrowedRootAccount, err := instrCtx.BorrowProgramAccount(txCtx, 0)
	if err != nil {
		klog.Infof("BorrowProgramAccount failed: %s", err)
		return InstrErrUnsupportedProgramId
	}

	ownerId := borrowedRootAccount.Owner()
	programKey := borrowedRootAccount.Key()
	borrowedRootAccount.Drop()

	if ownerId != NativeLoaderAddr {
		klog.Errorf("program %s is not a native program (owner %s)", programKey, ownerId)
		return InstrErrUnsupportedProgramId
	}

	nativeProgramFn, err := execCtx.resolveNativeProgramById(programKey)
	if err != nil {
		return err
	}

	klog.V(2).Infof("calling native program %s", programKey)
	execCtx.Logf("Program %s invoke [%d]", programKey, txCtx.InstructionCtxStackHeight())

	err = nativeProgramFn(execCtx)
	if err != nil {
		execCtx.Logf("Program %s failed: %s", programKey, err)
		return err
	}

	execCtx.Logf("Program %s success", programKey)
	return nil
}

// Push enters instrCtx. A program already on the stack may only be entered
// again directly from itself.
func (execCtx *ExecutionCtx) Push(instrCtx *InstructionCtx) error {
	txCtx := execCtx.TransactionContext

	programID, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return InstrErrUnsupportedProgramId
	}

	var onStack, onTop bool
	height := txCtx.InstructionCtxStackHeight()
	for level := uint64(0); level < height; level++ {
		frame, err := txCtx.InstructionCtxAtNestingLevel(level)
		if err != nil {
			return err
		}
		key, err := frame.LastProgramKey(txCtx)
		if err == nil && key == programID {
			onStack = true
			onTop = level == height-1
		}
	}
	if onStack && !onTop {
		return InstrErrReentrancyNotAllowed
	}

	return txCtx.Push(instrCtx)
}

func (execCtx *ExecutionCtx) Pop() error {
	return execCtx.TransactionContext.Pop()
}

func (execCtx *ExecutionCtx) StackHeight() uint64 {
	return execCtx.TransactionContext.InstructionCtxStackHeight()
}

func (execCtx *ExecutionCtx) NativeInvoke(instruction Instruction, signers []solana.PublicKey) error {
	err := execCtx.ComputeMeter.Consume(CUInvokeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	instrAccts, programIndices, err := execCtx.PrepareInstruction(instruction, signers)
	if err != nil {
		return err
	}

	return execCtx.ProcessInstruction(instruction.Data, instrAccts, programIndices)
}

// NativeInvokeSigned invokes instruction with the addresses derived from
// signerSeeds, under the calling program's id, acting as signers.
func (execCtx *ExecutionCtx) NativeInvokeSigned(instruction Instruction, signerSeeds [][][]byte) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	callerProgramId, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return err
	}

	signers := make([]solana.PublicKey, 0, len(signerSeeds))
	for _, seeds := range signerSeeds {
		err = execCtx.ComputeMeter.Consume(CUCreateProgramAddressUnits)
		if err != nil {
			return InstrErrComputationalBudgetExceeded
		}
		addr, err := pda.CreateProgramAddress(seeds, callerProgramId)
		if err != nil {
			return InstrErrInvalidSeeds
		}
		signers = append(signers, addr)
	}

	return execCtx.NativeInvoke(instruction, signers)
}
