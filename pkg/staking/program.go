// Package staking is a native program that escrows deposits of one token
// and pays time-proportional rewards in another. Each deployment keeps a
// single GlobalState record, one UserStakeInfo per depositor and one
// BlacklistEntry per denied address, all at program derived addresses.
package staking

import (
	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
	"go.firedancer.io/stakeledger/pkg/base58"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

const ProgramIDStr = "StakeLedger11111111111111111111111111111111"

var ProgramID = solana.PublicKey(base58.MustDecodeFromString(ProgramIDStr))

const (
	StateSeed        = "state"
	StakingVaultSeed = "staking_vault"
	RewardVaultSeed  = "reward_vault"
	StakeSeed        = "stake"
	BlacklistSeed    = "blacklist"
)

const (
	MinRewardRate = 1
	MaxRewardRate = 1000

	SecondsPerDay          = 86400
	BasisPointsDenominator = 10000
)

const CUStakingProgramDefaultComputeUnits = 5000

// Anchor-compatible 8 byte discriminators.
var (
	InitializeDiscriminator          = instructionDiscriminator("initialize")
	StakeDiscriminator               = instructionDiscriminator("stake")
	UnstakeDiscriminator             = instructionDiscriminator("unstake")
	ClaimRewardsDiscriminator        = instructionDiscriminator("claim_rewards")
	AddToBlacklistDiscriminator      = instructionDiscriminator("add_to_blacklist")
	RemoveFromBlacklistDiscriminator = instructionDiscriminator("remove_from_blacklist")

	GlobalStateDiscriminator    = accountDiscriminator("GlobalState")
	UserStakeInfoDiscriminator  = accountDiscriminator("UserStakeInfo")
	BlacklistEntryDiscriminator = accountDiscriminator("BlacklistEntry")
)

func discriminator(namespace string, name string) [8]byte {
	var disc [8]byte
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	copy(disc[:], sum[:8])
	return disc
}

func instructionDiscriminator(name string) [8]byte {
	return discriminator("global", name)
}

func accountDiscriminator(name string) [8]byte {
	return discriminator("account", name)
}

func eventDiscriminator(name string) [8]byte {
	return discriminator("event", name)
}

// Register installs the program under programID.
func Register(registry sealevel.ProgramRegistry, programID solana.PublicKey) {
	registry.Register(programID, ProgramExecute)
}
