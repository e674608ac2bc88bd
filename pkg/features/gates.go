package features

import (
	"go.firedancer.io/stakeledger/pkg/base58"
)

type FeatureGate struct {
	Name    string
	Address [32]byte
}

// SettleRewardsOnStakeChange pays out pending rewards before a stake or
// unstake changes the position amount.
var SettleRewardsOnStakeChange = FeatureGate{Name: "SettleRewardsOnStakeChange", Address: base58.MustDecodeFromString("SettLeRewardsStakeChange1111111111111111111")}

var AllFeatureGates = []FeatureGate{SettleRewardsOnStakeChange}

func GateByName(name string) (FeatureGate, bool) {
	for _, gate := range AllFeatureGates {
		if gate.Name == name {
			return gate, true
		}
	}
	return FeatureGate{}, false
}
