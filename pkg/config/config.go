// Package config loads the ledger configuration and scenario files.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/cu"
	"go.firedancer.io/stakeledger/pkg/features"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"gopkg.in/yaml.v3"
)

const DefaultDbDir = "stakeledger-db"

type Rent struct {
	LamportsPerByteYear uint64  `yaml:"lamports_per_byte_year"`
	ExemptionThreshold  float64 `yaml:"exemption_threshold"`
	BurnPercent         uint8   `yaml:"burn_percent"`
}

type Config struct {
	ProgramID        string   `yaml:"program_id"`
	DbDir            string   `yaml:"db_dir"`
	ComputeUnitLimit uint64   `yaml:"compute_unit_limit"`
	Features         []string `yaml:"features"`
	Rent             Rent     `yaml:"rent"`
	MetricsAddr      string   `yaml:"metrics_addr"`

	programID solana.PublicKey
}

func Default() *Config {
	rent := sealevel.DefaultRent()
	return &Config{
		DbDir:            DefaultDbDir,
		ComputeUnitLimit: cu.DefaultComputeUnitLimit,
		Rent: Rent{
			LamportsPerByteYear: rent.LamportsPerUint8Year,
			ExemptionThreshold:  rent.ExemptionThreshold,
			BurnPercent:         rent.BurnPercent,
		},
	}
}

// Parse decodes a config document on top of the defaults.
func Parse(data []byte, defaultProgramID solana.PublicKey) (*Config, error) {
	cfg := Default()
	err := yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.ProgramID == "" {
		cfg.ProgramID = defaultProgramID.String()
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads path, or returns the defaults when path is empty.
func Load(path string, defaultProgramID solana.PublicKey) (*Config, error) {
	if path == "" {
		return Parse(nil, defaultProgramID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data, defaultProgramID)
}

func (cfg *Config) Validate() error {
	var errs []error

	programID, err := solana.PublicKeyFromBase58(cfg.ProgramID)
	if err != nil {
		errs = append(errs, fmt.Errorf("program_id %q: %w", cfg.ProgramID, err))
	}
	cfg.programID = programID

	if cfg.DbDir == "" {
		errs = append(errs, errors.New("db_dir must not be empty"))
	}
	if cfg.ComputeUnitLimit == 0 {
		errs = append(errs, errors.New("compute_unit_limit must be positive"))
	}
	for _, name := range cfg.Features {
		if _, ok := features.GateByName(name); !ok {
			errs = append(errs, fmt.Errorf("unknown feature gate %q", name))
		}
	}
	if cfg.Rent.ExemptionThreshold <= 0 {
		errs = append(errs, errors.New("rent.exemption_threshold must be positive"))
	}
	if cfg.Rent.BurnPercent > 100 {
		errs = append(errs, fmt.Errorf("rent.burn_percent %d exceeds 100", cfg.Rent.BurnPercent))
	}

	return errors.Join(errs...)
}

func (cfg *Config) Program() solana.PublicKey {
	return cfg.programID
}

func (cfg *Config) SysvarRent() sealevel.SysvarRent {
	return sealevel.SysvarRent{
		LamportsPerUint8Year: cfg.Rent.LamportsPerByteYear,
		ExemptionThreshold:   cfg.Rent.ExemptionThreshold,
		BurnPercent:          cfg.Rent.BurnPercent,
	}
}

// FeatureSet enables the configured gates from slot 0.
func (cfg *Config) FeatureSet() (*features.Features, error) {
	f := features.NewFeaturesDefault()
	err := f.EnableByName(cfg.Features, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}
