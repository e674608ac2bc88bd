package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	TokenMintLen    = 82
	TokenAccountLen = 165
)

const (
	TokenAccountStateUninitialized = 0
	TokenAccountStateInitialized   = 1
	TokenAccountStateFrozen        = 2
)

// COptionPubkey is the fixed-size optional pubkey used by token state: a
// u32 tag followed by 32 bytes that are zero when the tag is zero.
type COptionPubkey struct {
	IsSome bool
	Pubkey solana.PublicKey
}

func (opt *COptionPubkey) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	tag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return err
	}
	pk, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	switch tag {
	case 0:
		opt.IsSome = false
	case 1:
		opt.IsSome = true
	default:
		return InstrErrInvalidAccountData
	}
	copy(opt.Pubkey[:], pk)
	return nil
}

func (opt *COptionPubkey) MarshalWithEncoder(encoder *bin.Encoder) error {
	var tag uint32
	if opt.IsSome {
		tag = 1
	}
	_ = encoder.WriteUint32(tag, bin.LE)
	return encoder.WriteBytes(opt.Pubkey[:], false)
}

type TokenMint struct {
	MintAuthority   COptionPubkey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority COptionPubkey
}

func (mint *TokenMint) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	err = mint.MintAuthority.UnmarshalWithDecoder(decoder)
	if err != nil {
		return fmt.Errorf("failed to read MintAuthority when decoding TokenMint: %w", err)
	}
	mint.Supply, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Supply when decoding TokenMint: %w", err)
	}
	mint.Decimals, err = decoder.ReadUint8()
	if err != nil {
		return fmt.Errorf("failed to read Decimals when decoding TokenMint: %w", err)
	}
	mint.IsInitialized, err = decoder.ReadBool()
	if err != nil {
		return fmt.Errorf("failed to read IsInitialized when decoding TokenMint: %w", err)
	}
	err = mint.FreezeAuthority.UnmarshalWithDecoder(decoder)
	if err != nil {
		return fmt.Errorf("failed to read FreezeAuthority when decoding TokenMint: %w", err)
	}
	return nil
}

func (mint *TokenMint) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = mint.MintAuthority.MarshalWithEncoder(encoder)
	_ = encoder.WriteUint64(mint.Supply, bin.LE)
	_ = encoder.WriteUint8(mint.Decimals)
	_ = encoder.WriteBool(mint.IsInitialized)
	return mint.FreezeAuthority.MarshalWithEncoder(encoder)
}

type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        COptionPubkey
	State           uint8
	IsNative        bool
	NativeReserve   uint64
	DelegatedAmount uint64
	CloseAuthority  COptionPubkey
}

func (ta *TokenAccount) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	mint, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("failed to read Mint when decoding TokenAccount: %w", err)
	}
	copy(ta.Mint[:], mint)

	owner, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return fmt.Errorf("failed to read Owner when decoding TokenAccount: %w", err)
	}
	copy(ta.Owner[:], owner)

	ta.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding TokenAccount: %w", err)
	}

	err = ta.Delegate.UnmarshalWithDecoder(decoder)
	if err != nil {
		return fmt.Errorf("failed to read Delegate when decoding TokenAccount: %w", err)
	}

	ta.State, err = decoder.ReadUint8()
	if err != nil {
		return fmt.Errorf("failed to read State when decoding TokenAccount: %w", err)
	}
	if ta.State > TokenAccountStateFrozen {
		return InstrErrInvalidAccountData
	}

	isNativeTag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read IsNative when decoding TokenAccount: %w", err)
	}
	ta.IsNative = isNativeTag == 1
	ta.NativeReserve, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read NativeReserve when decoding TokenAccount: %w", err)
	}

	ta.DelegatedAmount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read DelegatedAmount when decoding TokenAccount: %w", err)
	}

	err = ta.CloseAuthority.UnmarshalWithDecoder(decoder)
	if err != nil {
		return fmt.Errorf("failed to read CloseAuthority when decoding TokenAccount: %w", err)
	}
	return nil
}

func (ta *TokenAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(ta.Mint[:], false)
	_ = encoder.WriteBytes(ta.Owner[:], false)
	_ = encoder.WriteUint64(ta.Amount, bin.LE)
	_ = ta.Delegate.MarshalWithEncoder(encoder)
	_ = encoder.WriteUint8(ta.State)
	var isNativeTag uint32
	if ta.IsNative {
		isNativeTag = 1
	}
	_ = encoder.WriteUint32(isNativeTag, bin.LE)
	_ = encoder.WriteUint64(ta.NativeReserve, bin.LE)
	_ = encoder.WriteUint64(ta.DelegatedAmount, bin.LE)
	return ta.CloseAuthority.MarshalWithEncoder(encoder)
}

func (ta *TokenAccount) IsFrozen() bool {
	return ta.State == TokenAccountStateFrozen
}

func UnpackTokenMint(data []byte) (*TokenMint, error) {
	if len(data) != TokenMintLen {
		return nil, InstrErrInvalidAccountData
	}
	mint := new(TokenMint)
	err := mint.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return mint, nil
}

func UnpackTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountLen {
		return nil, InstrErrInvalidAccountData
	}
	ta := new(TokenAccount)
	err := ta.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return ta, nil
}

func (mint *TokenMint) Pack() []byte {
	buf := new(bytes.Buffer)
	_ = mint.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return buf.Bytes()
}

func (ta *TokenAccount) Pack() []byte {
	buf := new(bytes.Buffer)
	_ = ta.MarshalWithEncoder(bin.NewBinEncoder(buf))
	return buf.Bytes()
}
