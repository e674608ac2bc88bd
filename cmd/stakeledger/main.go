package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.firedancer.io/stakeledger/cmd/stakeledger/derive"
	"go.firedancer.io/stakeledger/cmd/stakeledger/inspect"
	"go.firedancer.io/stakeledger/cmd/stakeledger/run"
	"k8s.io/klog/v2"
)

var cmd = cobra.Command{
	Use:   "stakeledger",
	Short: "Token staking ledger",
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	cmd.AddCommand(
		&derive.Cmd,
		&inspect.Cmd,
		&run.Cmd,
	)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	cobra.CheckErr(cmd.ExecuteContext(ctx))
}
