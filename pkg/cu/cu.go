// Package cu meters the compute units spent by one transaction.
package cu

import (
	"errors"

	"go.firedancer.io/stakeledger/pkg/safemath"
)

var ErrComputeExceeded = errors.New("Compute exceeded")

const DefaultComputeUnitLimit = 200000

type ComputeMeter struct {
	remaining uint64
	limit     uint64
	exceeded  bool
}

func NewComputeMeter(limit uint64) ComputeMeter {
	return ComputeMeter{remaining: limit, limit: limit}
}

func NewComputeMeterDefault() ComputeMeter {
	return NewComputeMeter(DefaultComputeUnitLimit)
}

// Consume charges cost units. Once the budget is exhausted every later
// call fails too.
func (cm *ComputeMeter) Consume(cost uint64) error {
	if cm.exceeded || cm.remaining < cost {
		cm.exceeded = true
		cm.remaining = 0
		return ErrComputeExceeded
	}
	cm.remaining = safemath.SaturatingSubU64(cm.remaining, cost)
	return nil
}

func (cm *ComputeMeter) Used() uint64 {
	return cm.limit - cm.remaining
}

func (cm *ComputeMeter) Exceeded() bool {
	return cm.exceeded
}

func (cm *ComputeMeter) Remaining() uint64 {
	return cm.remaining
}
