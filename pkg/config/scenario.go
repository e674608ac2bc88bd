package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	OpInitialize          = "initialize"
	OpStake               = "stake"
	OpUnstake             = "unstake"
	OpClaimRewards        = "claim_rewards"
	OpAddToBlacklist      = "add_to_blacklist"
	OpRemoveFromBlacklist = "remove_from_blacklist"
	// moves tokens between token accounts, used to fund the reward vault
	OpTokenTransfer = "token_transfer"
)

var knownOps = map[string]bool{
	OpInitialize:          true,
	OpStake:               true,
	OpUnstake:             true,
	OpClaimRewards:        true,
	OpAddToBlacklist:      true,
	OpRemoveFromBlacklist: true,
	OpTokenTransfer:       true,
}

// Destination names that resolve to the deployment's vaults instead of a
// genesis token account.
const (
	StakingVaultName = "staking_vault"
	RewardVaultName  = "reward_vault"
)

type Wallet struct {
	Name     string `yaml:"name"`
	Lamports uint64 `yaml:"lamports"`
}

type Mint struct {
	Name      string `yaml:"name"`
	Authority string `yaml:"authority"`
	Decimals  uint8  `yaml:"decimals"`
}

type TokenAccount struct {
	Name   string `yaml:"name"`
	Mint   string `yaml:"mint"`
	Owner  string `yaml:"owner"`
	Amount uint64 `yaml:"amount"`
}

type Genesis struct {
	Wallets       []Wallet       `yaml:"wallets"`
	Mints         []Mint         `yaml:"mints"`
	TokenAccounts []TokenAccount `yaml:"token_accounts"`
}

type Deployment struct {
	StakingMint string `yaml:"staking_mint"`
	RewardMint  string `yaml:"reward_mint"`
}

// Step is one transaction. At, when set, advances the clock first.
type Step struct {
	At            int64  `yaml:"at"`
	Op            string `yaml:"op"`
	Signer        string `yaml:"signer"`
	Amount        uint64 `yaml:"amount"`
	RewardRate    uint64 `yaml:"reward_rate"`
	Target        string `yaml:"target"`
	TokenAccount  string `yaml:"token_account"`
	RewardAccount string `yaml:"reward_account"`
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	// name of the program or runtime error the step must fail with
	ExpectError string `yaml:"expect_error"`
}

type Scenario struct {
	Genesis    Genesis    `yaml:"genesis"`
	Deployment Deployment `yaml:"deployment"`
	Steps      []Step     `yaml:"steps"`
}

func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	err := yaml.Unmarshal(data, &s)
	if err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	err = s.Validate()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// Validate checks that every name a step or genesis entry refers to is
// declared and that each step carries the fields its op needs.
func (s *Scenario) Validate() error {
	var errs []error

	wallets := make(map[string]bool)
	for _, w := range s.Genesis.Wallets {
		if w.Name == "" {
			errs = append(errs, errors.New("wallet without a name"))
			continue
		}
		if wallets[w.Name] {
			errs = append(errs, fmt.Errorf("duplicate wallet %q", w.Name))
		}
		wallets[w.Name] = true
	}

	mints := make(map[string]bool)
	for _, m := range s.Genesis.Mints {
		if mints[m.Name] {
			errs = append(errs, fmt.Errorf("duplicate mint %q", m.Name))
		}
		mints[m.Name] = true
		if !wallets[m.Authority] {
			errs = append(errs, fmt.Errorf("mint %q: unknown authority %q", m.Name, m.Authority))
		}
	}

	tokenAccts := map[string]bool{StakingVaultName: true, RewardVaultName: true}
	for _, ta := range s.Genesis.TokenAccounts {
		if tokenAccts[ta.Name] {
			errs = append(errs, fmt.Errorf("duplicate or reserved token account %q", ta.Name))
		}
		tokenAccts[ta.Name] = true
		if !mints[ta.Mint] {
			errs = append(errs, fmt.Errorf("token account %q: unknown mint %q", ta.Name, ta.Mint))
		}
		if !wallets[ta.Owner] {
			errs = append(errs, fmt.Errorf("token account %q: unknown owner %q", ta.Name, ta.Owner))
		}
	}

	if !mints[s.Deployment.StakingMint] {
		errs = append(errs, fmt.Errorf("deployment: unknown staking mint %q", s.Deployment.StakingMint))
	}
	if !mints[s.Deployment.RewardMint] {
		errs = append(errs, fmt.Errorf("deployment: unknown reward mint %q", s.Deployment.RewardMint))
	}

	var lastAt int64
	for i, step := range s.Steps {
		stepErr := func(format string, args ...any) {
			errs = append(errs, fmt.Errorf("step %d (%s): %s", i, step.Op, fmt.Sprintf(format, args...)))
		}
		if !knownOps[step.Op] {
			stepErr("unknown op")
			continue
		}
		if !wallets[step.Signer] {
			stepErr("unknown signer %q", step.Signer)
		}
		if step.At != 0 {
			if step.At < lastAt {
				stepErr("time %d is before %d", step.At, lastAt)
			}
			lastAt = step.At
		}

		switch step.Op {
		case OpStake, OpUnstake:
			if !tokenAccts[step.TokenAccount] {
				stepErr("unknown token_account %q", step.TokenAccount)
			}
			if !tokenAccts[step.RewardAccount] {
				stepErr("unknown reward_account %q", step.RewardAccount)
			}
		case OpClaimRewards:
			if !tokenAccts[step.RewardAccount] {
				stepErr("unknown reward_account %q", step.RewardAccount)
			}
		case OpAddToBlacklist, OpRemoveFromBlacklist:
			if !wallets[step.Target] {
				stepErr("unknown target %q", step.Target)
			}
		case OpTokenTransfer:
			if !tokenAccts[step.From] {
				stepErr("unknown from %q", step.From)
			}
			if !tokenAccts[step.To] {
				stepErr("unknown to %q", step.To)
			}
		}
	}

	return errors.Join(errs...)
}
