package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"k8s.io/klog/v2"
)

const (
	initializeAdminIdx = iota
	initializeStateIdx
	initializeStakingMintIdx
	initializeRewardMintIdx
	initializeStakingVaultIdx
	initializeRewardVaultIdx
	initializeSystemProgramIdx
	initializeTokenProgramIdx
	initializeNumAccounts
)

func (p *processor) initialize(rewardRate uint64) error {
	if rewardRate < MinRewardRate || rewardRate > MaxRewardRate {
		return ErrInvalidRewardRate
	}

	err := p.checkAccounts(initializeNumAccounts, initializeAdminIdx,
		programAccount{initializeSystemProgramIdx, sealevel.SystemProgramAddr},
		programAccount{initializeTokenProgramIdx, sealevel.TokenProgramAddr})
	if err != nil {
		return err
	}

	admin, err := p.key(initializeAdminIdx)
	if err != nil {
		return err
	}
	stakingMint, err := p.mint(initializeStakingMintIdx)
	if err != nil {
		return err
	}
	rewardMint, err := p.mint(initializeRewardMintIdx)
	if err != nil {
		return err
	}

	d, err := DeriveDeployment(p.programID, stakingMint)
	if err != nil {
		return err
	}
	err = p.expectKey(initializeStateIdx, d.State.Key)
	if err != nil {
		return err
	}
	err = p.expectKey(initializeStakingVaultIdx, d.StakingVault.Key)
	if err != nil {
		return err
	}
	err = p.expectKey(initializeRewardVaultIdx, d.RewardVault.Key)
	if err != nil {
		return err
	}

	err = p.createAccount(initializeAdminIdx, initializeStateIdx, GlobalStateLen, p.programID, d.StateSignerSeeds())
	if err != nil {
		return err
	}

	err = p.createVault(initializeStakingVaultIdx, stakingMint, d.StakingVaultSignerSeeds(), d)
	if err != nil {
		return err
	}
	err = p.createVault(initializeRewardVaultIdx, rewardMint, d.RewardVaultSignerSeeds(), d)
	if err != nil {
		return err
	}

	gs := &GlobalState{
		Admin:        admin,
		StakingMint:  stakingMint,
		RewardMint:   rewardMint,
		StakingVault: d.StakingVault.Key,
		RewardVault:  d.RewardVault.Key,
		RewardRate:   rewardRate,
		TotalStaked:  0,
	}
	err = p.storeRecord(initializeStateIdx, gs)
	if err != nil {
		return err
	}

	now, err := p.now()
	if err != nil {
		return err
	}

	klog.V(2).Infof("staking: initialized deployment %s (staking mint %s, reward mint %s)", d.State.Key, stakingMint, rewardMint)
	p.execCtx.ProgramLog(fmt.Sprintf("Staking program initialized with reward rate: %d%%", rewardRate))
	emit(p.execCtx, &InitializedEvent{
		Authority:   admin,
		StakingMint: stakingMint,
		RewardMint:  rewardMint,
		RewardRate:  rewardRate,
		Timestamp:   now,
	})
	return nil
}

// mint returns the key of an initialized token mint.
func (p *processor) mint(instrAcctIdx uint64) (solana.PublicKey, error) {
	v, err := p.view(instrAcctIdx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if v.Owner != sealevel.TokenProgramAddr {
		return solana.PublicKey{}, ErrInvalidAccount
	}
	mint, err := sealevel.UnpackTokenMint(v.Data)
	if err != nil || !mint.IsInitialized {
		return solana.PublicKey{}, ErrInvalidAccount
	}
	return v.Key, nil
}

// createVault allocates a custody account at a derived address and hands
// its authority to the state account.
func (p *processor) createVault(vaultIdx uint64, mint solana.PublicKey, seeds [][]byte, d *Deployment) error {
	err := p.createAccount(initializeAdminIdx, vaultIdx, sealevel.TokenAccountLen, sealevel.TokenProgramAddr, seeds)
	if err != nil {
		return err
	}

	vault, err := p.key(vaultIdx)
	if err != nil {
		return err
	}

	ix := sealevel.NewTokenInitializeAccount3Instruction(vault, mint, d.State.Key)
	return p.execCtx.NativeInvoke(ix, nil)
}
