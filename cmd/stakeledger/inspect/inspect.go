package inspect

import (
	"errors"
	"fmt"
	"os"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/config"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"go.firedancer.io/stakeledger/pkg/staking"
	"go.firedancer.io/stakeledger/pkg/util"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "inspect",
	Short: "Print ledger state and positions as YAML",
	Args:  cobra.NoArgs,
	Run:   run,
}

var (
	dbDir       string
	programID   string
	stakingMint string
	owners      []string
)

func init() {
	Cmd.Flags().StringVar(&dbDir, "db", config.DefaultDbDir, "Accounts database directory")
	Cmd.Flags().StringVarP(&programID, "program", "p", staking.ProgramIDStr, "Ledger program id")
	Cmd.Flags().StringVarP(&stakingMint, "staking-mint", "m", "", "Mint of the staked token")
	Cmd.Flags().StringSliceVarP(&owners, "owner", "o", nil, "Depositor whose position to print")
	_ = Cmd.MarkFlagRequired("staking-mint")
}

type stateView struct {
	Address      string `yaml:"address"`
	Admin        string `yaml:"admin"`
	StakingMint  string `yaml:"staking_mint"`
	RewardMint   string `yaml:"reward_mint"`
	StakingVault string `yaml:"staking_vault"`
	RewardVault  string `yaml:"reward_vault"`
	RewardRate   uint64 `yaml:"reward_rate_bps"`
	TotalStaked  uint64 `yaml:"total_staked"`

	StakingVaultBalance uint64 `yaml:"staking_vault_balance"`
	RewardVaultBalance  uint64 `yaml:"reward_vault_balance"`
}

type positionView struct {
	Owner              string `yaml:"owner"`
	Staked             bool   `yaml:"staked"`
	Amount             uint64 `yaml:"amount,omitempty"`
	StakeOpenTimestamp int64  `yaml:"stake_open_timestamp,omitempty"`
	LastClaimTime      int64  `yaml:"last_claim_time,omitempty"`
	PendingReward      uint64 `yaml:"pending_reward,omitempty"`
	Blacklisted        bool   `yaml:"blacklisted"`
}

type report struct {
	Slot      uint64         `yaml:"slot"`
	Timestamp int64          `yaml:"timestamp"`
	State     stateView      `yaml:"state"`
	Positions []positionView `yaml:"positions,omitempty"`
}

func tokenBalance(accts accounts.Accounts, key solana.PublicKey) (uint64, error) {
	k := [32]byte(key)
	acct, err := accts.GetAccount(&k)
	if err != nil {
		return 0, fmt.Errorf("loading token account %s: %w", key, err)
	}
	ta, err := sealevel.UnpackTokenAccount(acct.Data)
	if err != nil {
		return 0, err
	}
	return ta.Amount, nil
}

func readClock(accts accounts.Accounts) (sealevel.SysvarClock, error) {
	var clock sealevel.SysvarClock
	acct, err := accts.GetAccount(&sealevel.SysvarClockAddr)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return clock, nil
	} else if err != nil {
		return clock, err
	}
	err = clock.UnmarshalWithDecoder(bin.NewBinDecoder(acct.Data))
	return clock, err
}

func buildReport(accts accounts.Accounts, d *staking.Deployment, ownerKeys []solana.PublicKey) (*report, error) {
	clock, err := readClock(accts)
	if err != nil {
		return nil, fmt.Errorf("reading clock: %w", err)
	}

	gs, err := d.LoadGlobalState(accts)
	if err != nil {
		return nil, fmt.Errorf("loading global state %s: %w", d.State.Key, err)
	}
	stakingBalance, err := tokenBalance(accts, gs.StakingVault)
	if err != nil {
		return nil, err
	}
	rewardBalance, err := tokenBalance(accts, gs.RewardVault)
	if err != nil {
		return nil, err
	}

	r := &report{
		Slot:      clock.Slot,
		Timestamp: clock.UnixTimestamp,
		State: stateView{
			Address:             d.State.Key.String(),
			Admin:               gs.Admin.String(),
			StakingMint:         gs.StakingMint.String(),
			RewardMint:          gs.RewardMint.String(),
			StakingVault:        gs.StakingVault.String(),
			RewardVault:         gs.RewardVault.String(),
			RewardRate:          gs.RewardRate,
			TotalStaked:         gs.TotalStaked,
			StakingVaultBalance: stakingBalance,
			RewardVaultBalance:  rewardBalance,
		},
	}

	for _, owner := range util.DedupePubkeys(ownerKeys) {
		view := positionView{Owner: owner.String()}
		view.Blacklisted, err = d.IsBlacklisted(accts, owner)
		if err != nil {
			return nil, err
		}

		pos, err := d.LoadUserPosition(accts, owner)
		if errors.Is(err, accounts.ErrAccountNotFound) {
			r.Positions = append(r.Positions, view)
			continue
		} else if err != nil {
			return nil, err
		}
		view.Staked = true
		view.Amount = pos.Amount
		view.StakeOpenTimestamp = pos.StakeOpenTimestamp
		view.LastClaimTime = pos.LastClaimTime
		view.PendingReward, err = d.PendingRewardAt(accts, owner, clock.UnixTimestamp)
		if err != nil {
			return nil, err
		}
		r.Positions = append(r.Positions, view)
	}
	return r, nil
}

func run(c *cobra.Command, _ []string) {
	program, err := solana.PublicKeyFromBase58(programID)
	if err != nil {
		klog.Exitf("invalid program id %q: %s", programID, err)
	}
	mint, err := solana.PublicKeyFromBase58(stakingMint)
	if err != nil {
		klog.Exitf("invalid staking mint %q: %s", stakingMint, err)
	}

	var badOwner error
	ownerKeys := lo.Map(owners, func(o string, _ int) solana.PublicKey {
		key, err := solana.PublicKeyFromBase58(o)
		if err != nil && badOwner == nil {
			badOwner = fmt.Errorf("invalid owner %q: %w", o, err)
		}
		return key
	})
	if badOwner != nil {
		klog.Exitf("%s", badOwner)
	}

	d, err := staking.DeriveDeployment(program, mint)
	if err != nil {
		klog.Exitf("deriving deployment: %s", err)
	}

	db, err := accounts.OpenAccountsDb(dbDir)
	if err != nil {
		klog.Exitf("%s", err)
	}
	defer func() {
		util.LogIfErr("closing db", db.Close())
	}()

	r, err := buildReport(db, d, ownerKeys)
	if err != nil {
		klog.Errorf("%s", err)
		return
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if util.LogIfErr("encoding report", enc.Encode(r)) {
		return
	}
	util.LogIfErr("flushing report", enc.Close())
}
