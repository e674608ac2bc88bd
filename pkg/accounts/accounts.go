package accounts

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var ErrAccountNotFound = errors.New("account not found")

type Accounts interface {
	GetAccount(pubkey *[32]byte) (*Account, error)
	SetAccount(pubkey *[32]byte, acc *Account) error
}

// BatchAccounts is implemented by stores that can write several accounts
// as one atomic unit.
type BatchAccounts interface {
	Accounts
	SetAccounts(accts []*Account) error
}

type Account struct {
	Key        solana.PublicKey
	Lamports   uint64
	Data       []byte
	Owner      [32]byte
	Executable bool
	RentEpoch  uint64
}

// IsEmpty reports whether the account holds nothing worth persisting.
func (a *Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0
}

func (a *Account) Clone() *Account {
	clone := *a
	clone.Data = bytes.Clone(a.Data)
	return &clone
}

func (a *Account) SetData(data []byte) {
	a.Data = bytes.Clone(data)
}

func (a *Account) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	a.Lamports, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Lamports when decoding Account: %w", err)
	}
	var dataLen uint64
	dataLen, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read data length when decoding Account: %w", err)
	}
	if dataLen > uint64(decoder.Remaining()) {
		return io.ErrUnexpectedEOF
	}
	data, err := decoder.ReadNBytes(int(dataLen))
	if err != nil {
		return fmt.Errorf("failed to read Data when decoding Account: %w", err)
	}
	// the decoder's buffer may belong to the store
	a.Data = bytes.Clone(data)
	owner, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("failed to read Owner when decoding Account: %w", err)
	}
	copy(a.Owner[:], owner)
	a.Executable, err = decoder.ReadBool()
	if err != nil {
		return fmt.Errorf("failed to read Executable when decoding Account: %w", err)
	}
	a.RentEpoch, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read RentEpoch when decoding Account: %w", err)
	}
	return nil
}

func (a *Account) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteUint64(a.Lamports, bin.LE)
	_ = encoder.WriteUint64(uint64(len(a.Data)), bin.LE)
	_ = encoder.WriteBytes(a.Data, false)
	_ = encoder.WriteBytes(a.Owner[:], false)
	_ = encoder.WriteBool(a.Executable)
	return encoder.WriteUint64(a.RentEpoch, bin.LE)
}

func (a *Account) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	err := a.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
