package features

import (
	"fmt"
	"sort"

	"go.firedancer.io/stakeledger/pkg/base58"
)

// Features tracks which feature gates are active and the slot each was
// enabled at.
type Features struct {
	enabled map[[32]byte]enabledFeature
}

type enabledFeature struct {
	gate FeatureGate
	slot uint64
}

func NewFeaturesDefault() *Features {
	return &Features{enabled: make(map[[32]byte]enabledFeature)}
}

func (f *Features) EnableFeature(gate FeatureGate, slot uint64) {
	if f.enabled == nil {
		f.enabled = make(map[[32]byte]enabledFeature)
	}
	f.enabled[gate.Address] = enabledFeature{gate: gate, slot: slot}
}

func (f *Features) DisableFeature(gate FeatureGate) {
	delete(f.enabled, gate.Address)
}

func (f *Features) IsActive(gate FeatureGate) bool {
	_, ok := f.enabled[gate.Address]
	return ok
}

// ActivationSlot returns the slot a gate was enabled at.
func (f *Features) ActivationSlot(gate FeatureGate) (uint64, bool) {
	e, ok := f.enabled[gate.Address]
	return e.slot, ok
}

func (f *Features) AllEnabled() []string {
	var out []string
	for _, e := range f.enabled {
		out = append(out, fmt.Sprintf("feature %s (%s) enabled", e.gate.Name, base58.Encode(e.gate.Address[:])))
	}
	sort.Strings(out)
	return out
}

// EnableByName enables each named gate, failing on the first unknown name.
func (f *Features) EnableByName(names []string, slot uint64) error {
	for _, name := range names {
		gate, ok := GateByName(name)
		if !ok {
			return fmt.Errorf("unknown feature gate %q", name)
		}
		f.EnableFeature(gate, slot)
	}
	return nil
}
