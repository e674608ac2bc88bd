package sealevel

import (
	"bytes"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/base58"
)

const SysvarRentAddrStr = "SysvarRent111111111111111111111111111111111"

var SysvarRentAddr = base58.MustDecodeFromString(SysvarRentAddrStr)

const SysvarOwnerAddrStr = "Sysvar1111111111111111111111111111111111111"

var SysvarOwnerAddr = base58.MustDecodeFromString(SysvarOwnerAddrStr)

const SysvarRentStructLen = 17

// account storage overhead charged by rent in addition to the data length
const AccountStorageOverhead = 128

const (
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

type SysvarRent struct {
	LamportsPerUint8Year uint64
	ExemptionThreshold   float64
	BurnPercent          byte
}

func DefaultRent() SysvarRent {
	return SysvarRent{LamportsPerUint8Year: DefaultLamportsPerByteYear, ExemptionThreshold: DefaultExemptionThreshold, BurnPercent: DefaultBurnPercent}
}

func (sr *SysvarRent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	sr.LamportsPerUint8Year, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LamportsPerUint8Year when decoding SysvarRent: %w", err)
	}

	sr.ExemptionThreshold, err = decoder.ReadFloat64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read ExemptionThreshold when decoding SysvarRent: %w", err)
	}

	sr.BurnPercent, err = decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read BurnPercent when decoding SysvarRent: %w", err)
	}
	return
}

func (sr *SysvarRent) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteUint64(sr.LamportsPerUint8Year, bin.LE)
	_ = encoder.WriteFloat64(sr.ExemptionThreshold, bin.LE)
	return encoder.WriteByte(sr.BurnPercent)
}

// MinimumBalance is the lamport balance that makes an account of dataLen
// bytes exempt from rent.
func (sr *SysvarRent) MinimumBalance(dataLen uint64) uint64 {
	bytesCharged := AccountStorageOverhead + dataLen
	return uint64(math.Floor(float64(bytesCharged*sr.LamportsPerUint8Year) * sr.ExemptionThreshold))
}

func (sr *SysvarRent) IsExempt(lamports uint64, dataLen uint64) bool {
	return lamports >= sr.MinimumBalance(dataLen)
}

func ReadRentSysvar(execCtx *ExecutionCtx) (SysvarRent, error) {
	var rent SysvarRent

	err := execCtx.ComputeMeter.Consume(CUSysvarBaseCost + SysvarRentStructLen)
	if err != nil {
		return rent, InstrErrComputationalBudgetExceeded
	}

	rentAcct, err := execCtx.Accounts.GetAccount(&SysvarRentAddr)
	if err != nil {
		return rent, InstrErrUnsupportedSysvar
	}

	err = rent.UnmarshalWithDecoder(bin.NewBinDecoder(rentAcct.Data))
	if err != nil {
		return rent, InstrErrUnsupportedSysvar
	}
	return rent, nil
}

func WriteRentSysvar(accts accounts.Accounts, rent SysvarRent) error {
	buf := new(bytes.Buffer)
	err := rent.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		return err
	}

	rentAcct := accounts.Account{Key: SysvarRentAddr, Lamports: 1, Data: buf.Bytes(), Owner: SysvarOwnerAddr}
	return accts.SetAccount(&SysvarRentAddr, &rentAcct)
}
