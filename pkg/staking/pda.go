package staking

import (
	"github.com/gagliardetto/solana-go"
	pda "go.firedancer.io/stakeledger/pkg/solana"
)

// Address is a derived account address and the bump seed that put it off
// the curve.
type Address struct {
	Key  solana.PublicKey
	Bump uint8
}

// withBump appends the bump to base, giving signer seeds.
func (a Address) withBump(base [][]byte) [][]byte {
	out := make([][]byte, 0, len(base)+1)
	out = append(out, base...)
	return append(out, []byte{a.Bump})
}

func find(programID solana.PublicKey, seeds ...[]byte) (Address, error) {
	key, bump, err := pda.FindProgramAddress(seeds, programID)
	if err != nil {
		return Address{}, err
	}
	return Address{Key: solana.PublicKeyFromBytes(key[:]), Bump: bump}, nil
}

func stateSeeds(stakingMint solana.PublicKey) [][]byte {
	return [][]byte{[]byte(StateSeed), stakingMint[:]}
}

func FindStateAddress(programID solana.PublicKey, stakingMint solana.PublicKey) (Address, error) {
	return find(programID, stateSeeds(stakingMint)...)
}

func FindStakingVaultAddress(programID solana.PublicKey, state solana.PublicKey) (Address, error) {
	return find(programID, []byte(StakingVaultSeed), state[:])
}

func FindRewardVaultAddress(programID solana.PublicKey, state solana.PublicKey) (Address, error) {
	return find(programID, []byte(RewardVaultSeed), state[:])
}

func FindUserStakeAddress(programID solana.PublicKey, state solana.PublicKey, owner solana.PublicKey) (Address, error) {
	return find(programID, []byte(StakeSeed), state[:], owner[:])
}

func FindBlacklistAddress(programID solana.PublicKey, state solana.PublicKey, address solana.PublicKey) (Address, error) {
	return find(programID, []byte(BlacklistSeed), state[:], address[:])
}

// Deployment is every address owned by one instance of the program.
type Deployment struct {
	ProgramID    solana.PublicKey
	StakingMint  solana.PublicKey
	State        Address
	StakingVault Address
	RewardVault  Address
}

func DeriveDeployment(programID solana.PublicKey, stakingMint solana.PublicKey) (*Deployment, error) {
	state, err := FindStateAddress(programID, stakingMint)
	if err != nil {
		return nil, err
	}
	stakingVault, err := FindStakingVaultAddress(programID, state.Key)
	if err != nil {
		return nil, err
	}
	rewardVault, err := FindRewardVaultAddress(programID, state.Key)
	if err != nil {
		return nil, err
	}
	return &Deployment{
		ProgramID:    programID,
		StakingMint:  stakingMint,
		State:        state,
		StakingVault: stakingVault,
		RewardVault:  rewardVault,
	}, nil
}

func (d *Deployment) UserStake(owner solana.PublicKey) (Address, error) {
	return FindUserStakeAddress(d.ProgramID, d.State.Key, owner)
}

func (d *Deployment) Blacklist(address solana.PublicKey) (Address, error) {
	return FindBlacklistAddress(d.ProgramID, d.State.Key, address)
}

// StateSignerSeeds are the seeds the program signs vault transfers with.
func (d *Deployment) StateSignerSeeds() [][]byte {
	return d.State.withBump(stateSeeds(d.StakingMint))
}

func (d *Deployment) StakingVaultSignerSeeds() [][]byte {
	return d.StakingVault.withBump([][]byte{[]byte(StakingVaultSeed), d.State.Key[:]})
}

func (d *Deployment) RewardVaultSignerSeeds() [][]byte {
	return d.RewardVault.withBump([][]byte{[]byte(RewardVaultSeed), d.State.Key[:]})
}

func (d *Deployment) UserStakeSignerSeeds(owner solana.PublicKey, addr Address) [][]byte {
	return addr.withBump([][]byte{[]byte(StakeSeed), d.State.Key[:], owner[:]})
}

func (d *Deployment) BlacklistSignerSeeds(address solana.PublicKey, addr Address) [][]byte {
	return addr.withBump([][]byte{[]byte(BlacklistSeed), d.State.Key[:], address[:]})
}
