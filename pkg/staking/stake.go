package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/features"
	"go.firedancer.io/stakeledger/pkg/safemath"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

// account order shared by stake and unstake; unstake omits the system
// program
const (
	stakeUserIdx = iota
	stakeStateIdx
	stakeUserStakeIdx
	stakeBlacklistIdx
	stakeUserTokenIdx
	stakeStakingVaultIdx
	stakeUserRewardIdx
	stakeRewardVaultIdx
	stakeSystemProgramIdx
	stakeTokenProgramIdx
	stakeNumAccounts
)

const (
	unstakeTokenProgramIdx = stakeSystemProgramIdx
	unstakeNumAccounts     = stakeSystemProgramIdx + 1
)

// stakeContext is what stake and unstake have validated before moving
// any tokens.
type stakeContext struct {
	user solana.PublicKey
	gs   *GlobalState
	d    *Deployment
	info *UserStakeInfo
	addr Address
	now  int64
}

func (p *processor) loadStakeContext() (*stakeContext, error) {
	user, err := p.key(stakeUserIdx)
	if err != nil {
		return nil, err
	}

	gs, d, err := p.loadGlobalState(stakeStateIdx)
	if err != nil {
		return nil, err
	}

	err = p.checkNotBlacklisted(stakeBlacklistIdx, d, user)
	if err != nil {
		return nil, err
	}

	info, addr, err := p.loadUserStake(stakeUserStakeIdx, d, user)
	if err != nil {
		return nil, err
	}

	err = p.expectKey(stakeStakingVaultIdx, gs.StakingVault)
	if err != nil {
		return nil, err
	}
	err = p.expectKey(stakeRewardVaultIdx, gs.RewardVault)
	if err != nil {
		return nil, err
	}

	_, err = p.tokenAccount(stakeUserTokenIdx, gs.StakingMint, &user)
	if err != nil {
		return nil, err
	}
	_, err = p.tokenAccount(stakeUserRewardIdx, gs.RewardMint, &user)
	if err != nil {
		return nil, err
	}

	now, err := p.now()
	if err != nil {
		return nil, err
	}

	return &stakeContext{user: user, gs: gs, d: d, info: info, addr: addr, now: now}, nil
}

// settle pays out what the position has accrued so far when the
// settle-on-change feature is active.
func (p *processor) settle(sc *stakeContext) (uint64, error) {
	if !p.execCtx.Features.IsActive(features.SettleRewardsOnStakeChange) {
		return 0, nil
	}

	reward, err := PendingReward(sc.info, sc.gs, sc.now)
	if err != nil {
		return 0, err
	}

	err = p.payReward(stakeRewardVaultIdx, stakeUserRewardIdx, sc.gs, sc.d, reward)
	if err != nil {
		return 0, err
	}
	if reward > 0 {
		p.execCtx.ProgramLog(fmt.Sprintf("Settled %d reward tokens", reward))
	}
	sc.info.LastClaimTime = sc.now
	return reward, nil
}

func (p *processor) stake(amount uint64) error {
	err := p.checkAccounts(stakeNumAccounts, stakeUserIdx,
		programAccount{stakeSystemProgramIdx, sealevel.SystemProgramAddr},
		programAccount{stakeTokenProgramIdx, sealevel.TokenProgramAddr})
	if err != nil {
		return err
	}

	sc, err := p.loadStakeContext()
	if err != nil {
		return err
	}

	if amount == 0 {
		return ErrCannotStakeZeroTokens
	}

	if sc.info == nil {
		err = p.createAccount(stakeUserIdx, stakeUserStakeIdx, UserStakeInfoLen, p.programID, sc.d.UserStakeSignerSeeds(sc.user, sc.addr))
		if err != nil {
			return err
		}
		sc.info = &UserStakeInfo{
			Owner:              sc.user,
			Amount:             0,
			StakeOpenTimestamp: sc.now,
			LastClaimTime:      sc.now,
			RewardDebt:         0,
		}
	} else {
		_, err = p.settle(sc)
		if err != nil {
			return err
		}
	}

	userToken, err := p.key(stakeUserTokenIdx)
	if err != nil {
		return err
	}
	err = p.transfer(userToken, sc.gs.StakingVault, sc.user, amount, nil)
	if err != nil {
		return err
	}

	sc.info.Amount, err = safemath.CheckedAddU64(sc.info.Amount, amount)
	if err != nil {
		return ErrArithmeticOverflow
	}
	sc.gs.TotalStaked, err = safemath.CheckedAddU64(sc.gs.TotalStaked, amount)
	if err != nil {
		return ErrArithmeticOverflow
	}

	err = p.storeRecord(stakeUserStakeIdx, sc.info)
	if err != nil {
		return err
	}
	err = p.storeRecord(stakeStateIdx, sc.gs)
	if err != nil {
		return err
	}

	p.execCtx.ProgramLog(fmt.Sprintf("User %s staked %d tokens", sc.user, amount))
	emit(p.execCtx, &StakedEvent{User: sc.user, Amount: amount, Timestamp: sc.now})
	return nil
}
