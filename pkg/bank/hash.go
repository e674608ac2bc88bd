package bank

import (
	"encoding/binary"
	"slices"

	"github.com/minio/sha256-simd"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/util"
)

const deltaFanout = 16

// calculateAcctsDeltaHash commits to the accounts written by one
// transaction. Leaves are account hashes ordered by key, folded into a
// sha256 tree of width deltaFanout. No accounts yields nil.
func calculateAcctsDeltaHash(accts []*accounts.Account) []byte {
	if len(accts) == 0 {
		return nil
	}

	sorted := slices.Clone(accts)
	slices.SortStableFunc(sorted, func(a, b *accounts.Account) int {
		return util.ComparePubkeys(a.Key, b.Key)
	})

	level := make([][32]byte, len(sorted))
	for i, acct := range sorted {
		level[i] = acct.Hash()
	}

	for {
		next := make([][32]byte, 0, (len(level)+deltaFanout-1)/deltaFanout)
		for chunk := range slices.Chunk(level, deltaFanout) {
			h := sha256.New()
			for _, leaf := range chunk {
				h.Write(leaf[:])
			}
			var node [32]byte
			h.Sum(node[:0])
			next = append(next, node)
		}
		if len(next) == 1 {
			return next[0][:]
		}
		level = next
	}
}

// calculateBankHash chains the ledger hash forward over one committed
// transaction.
func calculateBankHash(acctsDeltaHash []byte, parentBankHash [32]byte, numSigs uint64, blockHash [32]byte) []byte {
	var sigs [8]byte
	binary.LittleEndian.PutUint64(sigs[:], numSigs)

	buf := make([]byte, 0, 32+len(acctsDeltaHash)+8+32)
	buf = append(buf, parentBankHash[:]...)
	buf = append(buf, acctsDeltaHash...)
	buf = append(buf, sigs[:]...)
	buf = append(buf, blockHash[:]...)

	sum := sha256.Sum256(buf)
	return sum[:]
}
