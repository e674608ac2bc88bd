package accounts

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Hash commits to every field of the account, including its key.
func (a *Account) Hash() [32]byte {
	var hdr [17]byte
	binary.LittleEndian.PutUint64(hdr[0:8], a.Lamports)
	binary.LittleEndian.PutUint64(hdr[8:16], a.RentEpoch)
	if a.Executable {
		hdr[16] = 1
	}

	h := blake3.New()
	_, _ = h.Write(hdr[:16])
	_, _ = h.Write(a.Data)
	_, _ = h.Write(hdr[16:])
	_, _ = h.Write(a.Owner[:])
	_, _ = h.Write(a.Key[:])

	var out [32]byte
	h.Sum(out[:0])
	return out
}
