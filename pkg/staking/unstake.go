package staking

import (
	"fmt"

	"go.firedancer.io/stakeledger/pkg/safemath"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

func (p *processor) unstake(amount uint64) error {
	err := p.checkAccounts(unstakeNumAccounts, stakeUserIdx,
		programAccount{unstakeTokenProgramIdx, sealevel.TokenProgramAddr})
	if err != nil {
		return err
	}

	sc, err := p.loadStakeContext()
	if err != nil {
		return err
	}

	if sc.info == nil {
		return ErrAccountNotInitialized
	}
	if amount == 0 {
		return ErrCannotUnstakeZeroTokens
	}
	if amount > sc.info.Amount {
		return ErrInsufficientStakedAmount
	}

	rewards, err := p.settle(sc)
	if err != nil {
		return err
	}

	sc.info.Amount, err = safemath.CheckedSubU64(sc.info.Amount, amount)
	if err != nil {
		return ErrArithmeticOverflow
	}
	sc.gs.TotalStaked, err = safemath.CheckedSubU64(sc.gs.TotalStaked, amount)
	if err != nil {
		return ErrArithmeticOverflow
	}

	vault, err := p.tokenAccount(stakeStakingVaultIdx, sc.gs.StakingMint, &sc.d.State.Key)
	if err != nil {
		return err
	}
	if vault.Amount < amount {
		return ErrInsufficientCustodyFunds
	}

	userToken, err := p.key(stakeUserTokenIdx)
	if err != nil {
		return err
	}
	err = p.transfer(sc.gs.StakingVault, userToken, sc.d.State.Key, amount, sc.d)
	if err != nil {
		return err
	}

	err = p.storeRecord(stakeUserStakeIdx, sc.info)
	if err != nil {
		return err
	}
	err = p.storeRecord(stakeStateIdx, sc.gs)
	if err != nil {
		return err
	}

	p.execCtx.ProgramLog(fmt.Sprintf("User %s unstaked %d tokens and received %d rewards", sc.user, amount, rewards))
	emit(p.execCtx, &UnstakedEvent{User: sc.user, Amount: amount, Rewards: rewards, Timestamp: sc.now})
	return nil
}
