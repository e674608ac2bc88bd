// Package scenario replays a scripted sequence of ledger transactions
// against a bank.
package scenario

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/bank"
	"go.firedancer.io/stakeledger/pkg/config"
	"go.firedancer.io/stakeledger/pkg/genesis"
	"go.firedancer.io/stakeledger/pkg/metrics"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"go.firedancer.io/stakeledger/pkg/staking"
	"k8s.io/klog/v2"
)

var ErrUnexpectedOutcome = errors.New("step outcome does not match expectation")

// KeyForName derives the keypair a scenario name stands for. The same name
// always maps to the same key, so a scenario can be replayed against an
// existing database.
func KeyForName(name string) solana.PrivateKey {
	seed := sha256.Sum256([]byte("stakeledger/" + name))
	return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:]))
}

func mintKey(name string) solana.PublicKey {
	return KeyForName("mint/" + name).PublicKey()
}

func tokenAccountKey(name string) solana.PublicKey {
	return KeyForName("token/" + name).PublicKey()
}

// StakingMint is the mint key a scenario's staking mint name resolves to.
func StakingMint(s *config.Scenario) solana.PublicKey {
	return mintKey(s.Deployment.StakingMint)
}

type Result struct {
	Step         int
	Op           string
	Signature    solana.Signature
	ComputeUnits uint64
	Events       []staking.Event
	Err          error
}

type Runner struct {
	scenario *config.Scenario
	bank     *bank.Bank
	accts    accounts.Accounts
	d        *staking.Deployment
	metrics  *metrics.Metrics
	txIdx    uint64
}

func NewRunner(s *config.Scenario, b *bank.Bank, programID solana.PublicKey, m *metrics.Metrics) (*Runner, error) {
	d, err := staking.DeriveDeployment(programID, StakingMint(s))
	if err != nil {
		return nil, fmt.Errorf("deriving deployment: %w", err)
	}
	return &Runner{scenario: s, bank: b, accts: b.Accounts(), d: d, metrics: m}, nil
}

func (r *Runner) Deployment() *staking.Deployment {
	return r.d
}

// ApplyGenesis writes the scenario's wallets, mints and token accounts. It
// does nothing when the staking mint already exists, which means the store
// was seeded by an earlier run.
func (r *Runner) ApplyGenesis(rent sealevel.SysvarRent) error {
	k := [32]byte(r.d.StakingMint)
	_, err := r.accts.GetAccount(&k)
	if err == nil {
		klog.Infof("genesis already applied, staking mint %s exists", r.d.StakingMint)
		return nil
	} else if !errors.Is(err, accounts.ErrAccountNotFound) {
		return err
	}

	g := genesis.New(r.accts, rent)
	gen := r.scenario.Genesis
	for _, w := range gen.Wallets {
		err = g.Fund(KeyForName(w.Name).PublicKey(), w.Lamports)
		if err != nil {
			return err
		}
	}
	for _, m := range gen.Mints {
		err = g.Mint(mintKey(m.Name), KeyForName(m.Authority).PublicKey(), m.Decimals)
		if err != nil {
			return err
		}
	}
	for _, ta := range gen.TokenAccounts {
		err = g.TokenAccount(tokenAccountKey(ta.Name), mintKey(ta.Mint), KeyForName(ta.Owner).PublicKey(), ta.Amount)
		if err != nil {
			return err
		}
	}
	klog.Infof("genesis: %d wallets, %d mints, %d token accounts", len(gen.Wallets), len(gen.Mints), len(gen.TokenAccounts))
	return nil
}

func (r *Runner) resolveTokenAccount(name string) solana.PublicKey {
	switch name {
	case config.StakingVaultName:
		return r.d.StakingVault.Key
	case config.RewardVaultName:
		return r.d.RewardVault.Key
	}
	return tokenAccountKey(name)
}

func (r *Runner) instruction(step *config.Step) (solana.Instruction, error) {
	signer := KeyForName(step.Signer).PublicKey()
	switch step.Op {
	case config.OpInitialize:
		return r.d.NewInitializeInstruction(signer, mintKey(r.scenario.Deployment.RewardMint), step.RewardRate), nil
	case config.OpStake:
		return r.d.NewStakeInstruction(signer, r.resolveTokenAccount(step.TokenAccount), r.resolveTokenAccount(step.RewardAccount), step.Amount)
	case config.OpUnstake:
		return r.d.NewUnstakeInstruction(signer, r.resolveTokenAccount(step.TokenAccount), r.resolveTokenAccount(step.RewardAccount), step.Amount)
	case config.OpClaimRewards:
		return r.d.NewClaimRewardsInstruction(signer, r.resolveTokenAccount(step.RewardAccount))
	case config.OpAddToBlacklist:
		return r.d.NewAddToBlacklistInstruction(signer, KeyForName(step.Target).PublicKey())
	case config.OpRemoveFromBlacklist:
		return r.d.NewRemoveFromBlacklistInstruction(signer, KeyForName(step.Target).PublicKey())
	case config.OpTokenTransfer:
		ix := sealevel.NewTokenTransferInstruction(r.resolveTokenAccount(step.From), r.resolveTokenAccount(step.To), signer, step.Amount)
		return toSolanaInstruction(ix), nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

func toSolanaInstruction(instr sealevel.Instruction) solana.Instruction {
	var metas solana.AccountMetaSlice
	for _, am := range instr.Accounts {
		metas = append(metas, solana.NewAccountMeta(am.Pubkey, am.IsWritable, am.IsSigner))
	}
	return solana.NewInstruction(instr.ProgramId, metas, instr.Data)
}

// blockhash gives every transaction a distinct message, and so a distinct
// signature, even when a step repeats.
func (r *Runner) blockhash() solana.Hash {
	r.txIdx++
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], r.txIdx)
	parent := r.bank.Hash()
	return solana.Hash(sha256.Sum256(append(parent[:], buf[:]...)))
}

func (r *Runner) execute(step *config.Step) (*bank.TxResult, error) {
	if step.At != 0 {
		err := r.bank.AdvanceClock(step.At)
		if err != nil {
			return nil, err
		}
	}

	ix, err := r.instruction(step)
	if err != nil {
		return nil, err
	}

	key := KeyForName(step.Signer)
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, r.blockhash(), solana.TransactionPayer(key.PublicKey()))
	if err != nil {
		return nil, err
	}
	_, err = tx.Sign(func(pubkey solana.PublicKey) *solana.PrivateKey {
		if pubkey == key.PublicKey() {
			return &key
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// a failed transaction is reported through result.Err
	result, _ := r.bank.ProcessTransaction(tx)
	return result, nil
}

// ErrorName is the short name of a transaction failure: the program error
// name, or the runtime error it unwraps to.
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	var progErr *staking.Error
	if errors.As(err, &progErr) {
		return progErr.Name
	}
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err.Error()
		}
		err = inner
	}
}

// Run executes every step in order, stopping at the first step whose
// outcome differs from its expect_error, or when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, onResult func(*Result)) error {
	for i := range r.scenario.Steps {
		err := ctx.Err()
		if err != nil {
			return err
		}

		step := &r.scenario.Steps[i]
		txResult, err := r.execute(step)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}

		result := &Result{
			Step:         i,
			Op:           step.Op,
			Signature:    txResult.Signature,
			ComputeUnits: txResult.ComputeUnits,
			Events:       staking.ParseEvents(txResult.Logs),
			Err:          txResult.Err,
		}
		r.observeTotalStaked()
		if onResult != nil {
			onResult(result)
		}

		got := ErrorName(txResult.Err)
		if got != step.ExpectError {
			return fmt.Errorf("%w: step %d (%s) wanted %q, got %q", ErrUnexpectedOutcome, i, step.Op, step.ExpectError, got)
		}
	}
	return nil
}

func (r *Runner) observeTotalStaked() {
	gs, err := r.d.LoadGlobalState(r.accts)
	if err != nil {
		return
	}
	r.metrics.SetTotalStaked(r.d.State.Key.String(), gs.TotalStaked)
}
