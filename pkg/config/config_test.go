package config

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.firedancer.io/stakeledger/pkg/cu"
	"go.firedancer.io/stakeledger/pkg/features"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

var testProgramID = solana.MustPublicKeyFromBase58("StakeLedger11111111111111111111111111111111")

func TestConfig_Defaults(t *testing.T) {
	cfg, err := Load("", testProgramID)
	require.NoError(t, err)
	assert.Equal(t, testProgramID, cfg.Program())
	assert.Equal(t, DefaultDbDir, cfg.DbDir)
	assert.Equal(t, uint64(cu.DefaultComputeUnitLimit), cfg.ComputeUnitLimit)
	assert.Equal(t, sealevel.DefaultRent(), cfg.SysvarRent())

	f, err := cfg.FeatureSet()
	require.NoError(t, err)
	assert.False(t, f.IsActive(features.SettleRewardsOnStakeChange))
}

func TestConfig_Parse(t *testing.T) {
	doc := `
program_id: 11111111111111111111111111111111
db_dir: /tmp/ledger
compute_unit_limit: 400000
features: [SettleRewardsOnStakeChange]
metrics_addr: 127.0.0.1:9100
rent:
  lamports_per_byte_year: 10
`
	cfg, err := Parse([]byte(doc), testProgramID)
	require.NoError(t, err)
	assert.Equal(t, solana.PublicKey(sealevel.SystemProgramAddr), cfg.Program())
	assert.Equal(t, "/tmp/ledger", cfg.DbDir)
	assert.Equal(t, uint64(400000), cfg.ComputeUnitLimit)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)

	// unset rent keys keep their defaults
	rent := cfg.SysvarRent()
	assert.Equal(t, uint64(10), rent.LamportsPerUint8Year)
	assert.Equal(t, float64(sealevel.DefaultExemptionThreshold), rent.ExemptionThreshold)

	f, err := cfg.FeatureSet()
	require.NoError(t, err)
	assert.True(t, f.IsActive(features.SettleRewardsOnStakeChange))
}

func TestConfig_Validate(t *testing.T) {
	doc := `
program_id: not-a-key
db_dir: ""
compute_unit_limit: 0
features: [NoSuchGate]
rent:
  burn_percent: 101
`
	_, err := Parse([]byte(doc), testProgramID)
	require.Error(t, err)
	for _, want := range []string{"program_id", "db_dir", "compute_unit_limit", "NoSuchGate", "burn_percent"} {
		assert.ErrorContains(t, err, want)
	}

	_, err = Parse([]byte("db_dir: [1, 2"), testProgramID)
	assert.ErrorContains(t, err, "decoding config")
}

const testScenario = `
genesis:
  wallets:
    - {name: admin, lamports: 100000000000}
    - {name: alice, lamports: 10000000000}
  mints:
    - {name: stake, authority: admin, decimals: 9}
    - {name: reward, authority: admin, decimals: 9}
  token_accounts:
    - {name: admin_reward, mint: reward, owner: admin, amount: 1000}
    - {name: alice_stake, mint: stake, owner: alice, amount: 100}
deployment: {staking_mint: stake, reward_mint: reward}
steps:
  - {at: 1700000000, op: initialize, signer: admin, reward_rate: 500}
  - {op: token_transfer, signer: admin, from: admin_reward, to: reward_vault, amount: 10}
  - {op: stake, signer: alice, token_account: alice_stake, reward_account: alice_stake, amount: 5}
  - {op: add_to_blacklist, signer: admin, target: alice}
`

func TestScenario_Parse(t *testing.T) {
	s, err := ParseScenario([]byte(testScenario))
	require.NoError(t, err)
	assert.Len(t, s.Genesis.Wallets, 2)
	assert.Len(t, s.Genesis.TokenAccounts, 2)
	assert.Equal(t, "stake", s.Deployment.StakingMint)
	require.Len(t, s.Steps, 4)
	assert.Equal(t, OpInitialize, s.Steps[0].Op)
	assert.Equal(t, int64(1_700_000_000), s.Steps[0].At)
	assert.Equal(t, RewardVaultName, s.Steps[1].To)
	assert.Equal(t, uint64(5), s.Steps[2].Amount)
}

func TestScenario_Validate(t *testing.T) {
	doc := `
genesis:
  wallets:
    - {name: admin}
    - {name: admin}
  mints:
    - {name: stake, authority: nobody}
  token_accounts:
    - {name: reward_vault, mint: stake, owner: admin}
    - {name: orphan, mint: gold, owner: admin}
deployment: {staking_mint: stake, reward_mint: reward}
steps:
  - {at: 20, op: initialize, signer: admin}
  - {at: 10, op: stake, signer: mallory, token_account: missing, reward_account: orphan}
  - {op: add_to_blacklist, signer: admin, target: ghost}
  - {op: token_transfer, signer: admin, from: orphan, to: nowhere}
  - {op: self_destruct, signer: admin}
`
	_, err := ParseScenario([]byte(doc))
	require.Error(t, err)
	for _, want := range []string{
		`duplicate wallet "admin"`,
		`unknown authority "nobody"`,
		`reserved token account "reward_vault"`,
		`unknown mint "gold"`,
		`unknown reward mint "reward"`,
		"time 10 is before 20",
		`unknown signer "mallory"`,
		`unknown token_account "missing"`,
		`unknown target "ghost"`,
		`unknown to "nowhere"`,
		"step 4 (self_destruct): unknown op",
	} {
		assert.ErrorContains(t, err, want)
	}
}
