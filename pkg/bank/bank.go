// Package bank applies signed transactions to an account store as atomic
// units of work.
package bank

import (
	"errors"
	"fmt"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/cu"
	"go.firedancer.io/stakeledger/pkg/features"
	"go.firedancer.io/stakeledger/pkg/metrics"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"k8s.io/klog/v2"
)

var ErrClockWentBackwards = errors.New("clock cannot go backwards")

type Config struct {
	ComputeUnitLimit uint64
	Features         *features.Features
	Programs         sealevel.ProgramRegistry
	Metrics          *metrics.Metrics
}

type Bank struct {
	mu sync.Mutex

	accts    accounts.BatchAccounts
	features features.Features
	programs sealevel.ProgramRegistry
	cuLimit  uint64
	metrics  *metrics.Metrics

	clock    sealevel.SysvarClock
	bankHash [32]byte
	numTxs   uint64
}

// TxResult describes one processed transaction, committed or not.
type TxResult struct {
	Signature    solana.Signature
	Logs         []string
	ComputeUnits uint64
	Written      []solana.PublicKey
	Err          error
}

// New wraps accts. The rent sysvar is written with default parameters if
// the store has none yet.
func New(accts accounts.BatchAccounts, cfg Config) (*Bank, error) {
	b := &Bank{
		accts:    accts,
		programs: cfg.Programs,
		cuLimit:  cfg.ComputeUnitLimit,
		metrics:  cfg.Metrics,
	}
	if b.programs == nil {
		b.programs = make(sealevel.ProgramRegistry)
	}
	if b.cuLimit == 0 {
		b.cuLimit = cu.DefaultComputeUnitLimit
	}
	if cfg.Features != nil {
		b.features = *cfg.Features
	} else {
		b.features = *features.NewFeaturesDefault()
	}

	_, err := accts.GetAccount(&sealevel.SysvarRentAddr)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		err = sealevel.WriteRentSysvar(accts, sealevel.DefaultRent())
	}
	if err != nil {
		return nil, fmt.Errorf("initialising rent sysvar: %w", err)
	}

	clockAcct, err := accts.GetAccount(&sealevel.SysvarClockAddr)
	if err == nil {
		err = b.clock.UnmarshalWithDecoder(bin.NewBinDecoder(clockAcct.Data))
		if err != nil {
			return nil, fmt.Errorf("decoding clock sysvar: %w", err)
		}
	} else if !errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, err
	}

	return b, nil
}

func (b *Bank) Accounts() accounts.Accounts {
	return b.accts
}

// NumTransactions counts committed transactions.
func (b *Bank) NumTransactions() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.numTxs
}

func (b *Bank) Clock() sealevel.SysvarClock {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock
}

// Hash is the running hash over every committed transaction.
func (b *Bank) Hash() [32]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bankHash
}

// AdvanceClock moves to the next slot at unixTimestamp. Timestamps never
// decrease.
func (b *Bank) AdvanceClock(unixTimestamp int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if unixTimestamp < b.clock.UnixTimestamp {
		return fmt.Errorf("%w: %d < %d", ErrClockWentBackwards, unixTimestamp, b.clock.UnixTimestamp)
	}

	clock := b.clock
	clock.Slot++
	clock.UnixTimestamp = unixTimestamp
	if clock.EpochStartTimestamp == 0 {
		clock.EpochStartTimestamp = unixTimestamp
	}

	err := sealevel.WriteClockSysvar(b.accts, clock)
	if err != nil {
		return err
	}
	b.clock = clock
	return nil
}

// ProcessTransaction executes every instruction of tx in order. Either all
// of the accounts they touched are written back in one batch, or none are.
func (b *Bank) ProcessTransaction(tx *solana.Transaction) (*TxResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := &TxResult{}
	if len(tx.Signatures) > 0 {
		result.Signature = tx.Signatures[0]
	}

	err := b.processTransaction(tx, result)
	result.Err = err
	b.metrics.ObserveTransaction(result.ComputeUnits, err)
	return result, err
}

func (b *Bank) processTransaction(tx *solana.Transaction, result *TxResult) error {
	if len(tx.Message.Instructions) == 0 {
		return TxErrNoInstructions
	}

	err := tx.VerifySignatures()
	if err != nil {
		return NewTxErrInvalidSignature(err.Error())
	}

	instrs, err := b.instrsFromTx(tx)
	if err != nil {
		return err
	}

	transactionAccts, err := b.transactionAcctsFromTx(tx)
	if err != nil {
		return err
	}

	var log sealevel.LogRecorder
	txCtx := sealevel.NewTransactionCtx(*transactionAccts, sealevel.DefaultMaxInstructionStackDepth, sealevel.DefaultMaxInstructionTraceLength)
	execCtx := &sealevel.ExecutionCtx{
		Log:                &log,
		Accounts:           b.accts,
		TransactionContext: txCtx,
		Features:           b.features,
		ComputeMeter:       cu.NewComputeMeter(b.cuLimit),
		Programs:           b.programs,
	}

	var instrErr error
	for instrIdx, instr := range instrs {
		instructionAccts, err := sealevel.InstructionAcctsFromAccountMetas(instr.Accounts, txCtx.Accounts)
		if err != nil {
			instrErr = &InstructionError{Index: instrIdx, Err: err}
			break
		}

		err = execCtx.ProcessInstruction(instr.Data, instructionAccts, programIndices(tx, instrIdx))
		b.metrics.ObserveInstruction(instr.ProgramId.String(), err)
		if err != nil {
			instrErr = &InstructionError{Index: instrIdx, Err: err}
			break
		}
	}

	result.Logs = log.Logs
	result.ComputeUnits = execCtx.ComputeMeter.Used()
	for _, l := range log.Logs {
		klog.Infof("%s", l)
	}
	klog.Infof("[+] tx %s - compute units consumed: %d", result.Signature, result.ComputeUnits)

	if instrErr != nil {
		klog.Infof("tx %s failed, discarding all account changes: %s", result.Signature, instrErr)
		return instrErr
	}

	touched := txCtx.Accounts.TouchedAccounts()
	err = b.accts.SetAccounts(touched)
	if err != nil {
		return fmt.Errorf("committing tx %s: %w", result.Signature, err)
	}

	for _, acct := range touched {
		klog.V(2).Infof("modified account %s after tx", acct.Key)
		result.Written = append(result.Written, acct.Key)
	}

	b.numTxs++
	deltaHash := calculateAcctsDeltaHash(touched)
	copy(b.bankHash[:], calculateBankHash(deltaHash, b.bankHash, uint64(len(tx.Signatures)), tx.Message.RecentBlockhash))
	return nil
}
