package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/bank"
	"go.firedancer.io/stakeledger/pkg/config"
	"go.firedancer.io/stakeledger/pkg/metrics"
	"go.firedancer.io/stakeledger/pkg/scenario"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"go.firedancer.io/stakeledger/pkg/staking"
	"go.firedancer.io/stakeledger/pkg/util"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

var Cmd = cobra.Command{
	Use:   "run",
	Short: "Execute a scenario of ledger transactions",
	Args:  cobra.NoArgs,
	Run:   run,
}

var (
	configPath  string
	scriptPath  string
	dbDir       string
	metricsAddr string
	inMemory    bool
)

func init() {
	Cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path of the ledger config file")
	Cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "Path of the scenario file")
	Cmd.Flags().StringVar(&dbDir, "db", "", "Accounts database directory (overrides db_dir)")
	Cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address (overrides metrics_addr)")
	Cmd.Flags().BoolVar(&inMemory, "in-memory", false, "Keep accounts in memory instead of on disk")
	_ = Cmd.MarkFlagRequired("script")
}

func run(c *cobra.Command, _ []string) {
	cfg, err := config.Load(configPath, staking.ProgramID)
	if err != nil {
		klog.Exitf("%s", err)
	}
	if dbDir != "" {
		cfg.DbDir = dbDir
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	s, err := config.LoadScenario(scriptPath)
	if err != nil {
		klog.Exitf("%s", err)
	}

	err = runScenario(c.Context(), cfg, s, inMemory)
	if err != nil {
		klog.Exitf("scenario failed: %s", err)
	}
	klog.Infof("scenario completed successfully")
}

// runScenario executes s against a fresh or existing store and closes the
// store before returning.
func runScenario(ctx context.Context, cfg *config.Config, s *config.Scenario, inMemory bool) error {
	if inMemory {
		return execute(ctx, cfg, s, accounts.NewMemAccounts())
	}
	klog.Infof("opening accounts db at %s", cfg.DbDir)
	db, err := accounts.OpenAccountsDb(cfg.DbDir)
	if err != nil {
		return err
	}
	defer func() {
		util.LogIfErr("closing db", db.Close())
	}()
	return execute(ctx, cfg, s, db)
}

func writeRent(accts accounts.BatchAccounts, rent sealevel.SysvarRent) error {
	_, err := accts.GetAccount(&sealevel.SysvarRentAddr)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return sealevel.WriteRentSysvar(accts, rent)
	}
	return err
}

func execute(ctx context.Context, cfg *config.Config, s *config.Scenario, accts accounts.BatchAccounts) error {
	f, err := cfg.FeatureSet()
	if err != nil {
		return err
	}
	for _, line := range f.AllEnabled() {
		klog.Infof("%s", line)
	}

	err = writeRent(accts, cfg.SysvarRent())
	if err != nil {
		return fmt.Errorf("writing rent sysvar: %w", err)
	}

	m := metrics.New(prometheus.NewRegistry())
	registry := make(sealevel.ProgramRegistry)
	staking.Register(registry, cfg.Program())

	b, err := bank.New(accts, bank.Config{
		ComputeUnitLimit: cfg.ComputeUnitLimit,
		Features:         f,
		Programs:         registry,
		Metrics:          m,
	})
	if err != nil {
		return err
	}

	runner, err := scenario.NewRunner(s, b, cfg.Program(), m)
	if err != nil {
		return err
	}
	err = runner.ApplyGenesis(cfg.SysvarRent())
	if err != nil {
		return err
	}
	d := runner.Deployment()
	klog.Infof("deployment state %s, staking vault %s, reward vault %s", d.State.Key, d.StakingVault.Key, d.RewardVault.Key)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsAddr, m)
		})
	}
	g.Go(func() error {
		err := runner.Run(ctx, printResult)
		if err != nil {
			return err
		}
		klog.Infof("%d transactions committed, bank hash %x", b.NumTransactions(), b.Hash())
		if cfg.MetricsAddr == "" {
			return nil
		}
		klog.Infof("serving metrics on %s until interrupted", cfg.MetricsAddr)
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

func printResult(r *scenario.Result) {
	status := "ok"
	if r.Err != nil {
		status = scenario.ErrorName(r.Err)
	}
	klog.Infof("step %d %s: %s (%d CU) %s", r.Step, r.Op, status, r.ComputeUnits, r.Signature)
	for _, ev := range r.Events {
		klog.Infof("  event %s %+v", ev.EventName(), ev)
	}
}

func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		util.LogIfErr("stopping metrics server", server.Shutdown(shutdownCtx))
	}()

	klog.Infof("metrics listening on %s", addr)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
