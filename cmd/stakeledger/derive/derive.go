package derive

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.firedancer.io/stakeledger/pkg/staking"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "derive",
	Short: "Print the derived addresses of a deployment",
	Args:  cobra.NoArgs,
	Run:   run,
}

var (
	programID   string
	stakingMint string
	owners      []string
)

func init() {
	Cmd.Flags().StringVarP(&programID, "program", "p", staking.ProgramIDStr, "Ledger program id")
	Cmd.Flags().StringVarP(&stakingMint, "staking-mint", "m", "", "Mint of the staked token")
	Cmd.Flags().StringSliceVarP(&owners, "owner", "o", nil, "Depositor to derive position and blacklist entries for")
	_ = Cmd.MarkFlagRequired("staking-mint")
}

func printAddress(name string, addr staking.Address) {
	fmt.Printf("%-16s %s (bump %d)\n", name, addr.Key, addr.Bump)
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

	d, err := staking.DeriveDeployment(program, mint)
	if err != nil {
		klog.Exitf("deriving deployment: %s", err)
	}
	printAddress("state", d.State)
	printAddress("staking_vault", d.StakingVault)
	printAddress("reward_vault", d.RewardVault)

	for _, o := range owners {
		owner, err := solana.PublicKeyFromBase58(o)
		if err != nil {
			klog.Exitf("invalid owner %q: %s", o, err)
		}
		fmt.Printf("owner %s\n", owner)
		pos, err := d.UserStake(owner)
		if err != nil {
			klog.Exitf("deriving position of %s: %s", owner, err)
		}
		printAddress("  user_stake", pos)
		entry, err := d.Blacklist(owner)
		if err != nil {
			klog.Exitf("deriving blacklist entry of %s: %s", owner, err)
		}
		printAddress("  blacklist", entry)
	}
}
