// Package util holds small helpers shared by the bank and the CLI.
package util

import (
	"bytes"
	"slices"

	"github.com/gagliardetto/solana-go"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

// ComparePubkeys orders keys by their raw bytes.
func ComparePubkeys(a, b solana.PublicKey) int {
	return bytes.Compare(a[:], b[:])
}

// DedupePubkeys returns the distinct keys in ascending order.
func DedupePubkeys(pubkeys []solana.PublicKey) []solana.PublicKey {
	uniq := lo.Uniq(pubkeys)
	slices.SortFunc(uniq, ComparePubkeys)
	return uniq
}

// LogIfErr logs err against what, with the caller's location, and
// reports whether there was one.
func LogIfErr(what string, err error) bool {
	if err == nil {
		return false
	}
	klog.ErrorDepth(1, what+": "+err.Error())
	return true
}
