package staking

import (
	"fmt"

	"go.firedancer.io/stakeledger/pkg/sealevel"
)

const (
	claimUserIdx = iota
	claimStateIdx
	claimUserStakeIdx
	claimBlacklistIdx
	claimUserRewardIdx
	claimRewardVaultIdx
	claimTokenProgramIdx
	claimNumAccounts
)

func (p *processor) claimRewards() error {
	err := p.checkAccounts(claimNumAccounts, claimUserIdx,
		programAccount{claimTokenProgramIdx, sealevel.TokenProgramAddr})
	if err != nil {
		return err
	}
	user, err := p.key(claimUserIdx)
	if err != nil {
		return err
	}

	gs, d, err := p.loadGlobalState(claimStateIdx)
	if err != nil {
		return err
	}

	err = p.checkNotBlacklisted(claimBlacklistIdx, d, user)
	if err != nil {
		return err
	}

	info, _, err := p.loadUserStake(claimUserStakeIdx, d, user)
	if err != nil {
		return err
	}
	if info == nil {
		return ErrAccountNotInitialized
	}

	err = p.expectKey(claimRewardVaultIdx, gs.RewardVault)
	if err != nil {
		return err
	}
	_, err = p.tokenAccount(claimUserRewardIdx, gs.RewardMint, &user)
	if err != nil {
		return err
	}

	now, err := p.now()
	if err != nil {
		return err
	}

	reward, err := PendingReward(info, gs, now)
	if err != nil {
		return err
	}

	if reward == 0 {
		p.execCtx.ProgramLog("No rewards to claim")
	} else {
		err = p.payReward(claimRewardVaultIdx, claimUserRewardIdx, gs, d, reward)
		if err != nil {
			return err
		}
		p.execCtx.ProgramLog(fmt.Sprintf("User %s claimed %d rewards", user, reward))
	}

	info.LastClaimTime = now
	err = p.storeRecord(claimUserStakeIdx, info)
	if err != nil {
		return err
	}

	emit(p.execCtx, &RewardsClaimedEvent{User: user, Amount: reward, Timestamp: now})
	return nil
}
