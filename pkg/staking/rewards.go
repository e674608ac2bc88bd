package staking

import (
	"github.com/ryanavella/wide"
	"go.firedancer.io/stakeledger/pkg/safemath"
)

var rewardDenominator = wide.Uint128FromUint64(SecondsPerDay * BasisPointsDenominator)

// OwedReward is floor(amount * rate * elapsed / (86400 * 10000)), with the
// product taken in 128 bits. A non-positive elapsed time owes nothing.
func OwedReward(amount uint64, rewardRate uint64, elapsedSeconds int64) (uint64, error) {
	if elapsedSeconds <= 0 || amount == 0 || rewardRate == 0 {
		return 0, nil
	}

	product, err := safemath.CheckedMulU128(wide.Uint128FromUint64(amount), wide.Uint128FromUint64(rewardRate))
	if err != nil {
		return 0, ErrArithmeticOverflow
	}

	product, err = safemath.CheckedMulU128(product, wide.Uint128FromUint64(uint64(elapsedSeconds)))
	if err != nil {
		return 0, ErrArithmeticOverflow
	}

	reward, err := safemath.U128ToU64(product.Div(rewardDenominator))
	if err != nil {
		return 0, ErrArithmeticOverflow
	}
	return reward, nil
}

// PendingReward is what a claim at now would pay out for info.
func PendingReward(info *UserStakeInfo, gs *GlobalState, now int64) (uint64, error) {
	return OwedReward(info.Amount, gs.RewardRate, now-info.LastClaimTime)
}
