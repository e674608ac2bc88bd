package staking

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	GlobalStateLen    = 8 + 32*5 + 8 + 8
	UserStakeInfoLen  = 8 + 32 + 8*4
	BlacklistEntryLen = 8 + 32
)

type GlobalState struct {
	Admin        solana.PublicKey
	StakingMint  solana.PublicKey
	RewardMint   solana.PublicKey
	StakingVault solana.PublicKey
	RewardVault  solana.PublicKey
	RewardRate   uint64
	TotalStaked  uint64
}

type UserStakeInfo struct {
	Owner              solana.PublicKey
	Amount             uint64
	StakeOpenTimestamp int64
	LastClaimTime      int64
	RewardDebt         uint64
}

type BlacklistEntry struct {
	Address solana.PublicKey
}

func readDiscriminator(decoder *bin.Decoder, expected [8]byte, name string) error {
	disc, err := decoder.ReadBytes(8)
	if err != nil {
		return fmt.Errorf("failed to read discriminator when decoding %s: %w", name, err)
	}
	if !bytes.Equal(disc, expected[:]) {
		return fmt.Errorf("discriminator mismatch when decoding %s", name)
	}
	return nil
}

func readPubkey(decoder *bin.Decoder, field string, name string) (solana.PublicKey, error) {
	b, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to read %s when decoding %s: %w", field, name, err)
	}
	return solana.PublicKeyFromBytes(b), nil
}

func (gs *GlobalState) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	err = readDiscriminator(decoder, GlobalStateDiscriminator, "GlobalState")
	if err != nil {
		return err
	}

	gs.Admin, err = readPubkey(decoder, "Admin", "GlobalState")
	if err != nil {
		return err
	}
	gs.StakingMint, err = readPubkey(decoder, "StakingMint", "GlobalState")
	if err != nil {
		return err
	}
	gs.RewardMint, err = readPubkey(decoder, "RewardMint", "GlobalState")
	if err != nil {
		return err
	}
	gs.StakingVault, err = readPubkey(decoder, "StakingVault", "GlobalState")
	if err != nil {
		return err
	}
	gs.RewardVault, err = readPubkey(decoder, "RewardVault", "GlobalState")
	if err != nil {
		return err
	}

	gs.RewardRate, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read RewardRate when decoding GlobalState: %w", err)
	}

	gs.TotalStaked, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read TotalStaked when decoding GlobalState: %w", err)
	}

	return nil
}

func (gs *GlobalState) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(GlobalStateDiscriminator[:], false)
	_ = encoder.WriteBytes(gs.Admin[:], false)
	_ = encoder.WriteBytes(gs.StakingMint[:], false)
	_ = encoder.WriteBytes(gs.RewardMint[:], false)
	_ = encoder.WriteBytes(gs.StakingVault[:], false)
	_ = encoder.WriteBytes(gs.RewardVault[:], false)
	_ = encoder.WriteUint64(gs.RewardRate, bin.LE)
	return encoder.WriteUint64(gs.TotalStaked, bin.LE)
}

func (info *UserStakeInfo) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	err = readDiscriminator(decoder, UserStakeInfoDiscriminator, "UserStakeInfo")
	if err != nil {
		return err
	}

	info.Owner, err = readPubkey(decoder, "Owner", "UserStakeInfo")
	if err != nil {
		return err
	}

	info.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding UserStakeInfo: %w", err)
	}

	info.StakeOpenTimestamp, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read StakeOpenTimestamp when decoding UserStakeInfo: %w", err)
	}

	info.LastClaimTime, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LastClaimTime when decoding UserStakeInfo: %w", err)
	}

	info.RewardDebt, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read RewardDebt when decoding UserStakeInfo: %w", err)
	}

	return nil
}

func (info *UserStakeInfo) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(UserStakeInfoDiscriminator[:], false)
	_ = encoder.WriteBytes(info.Owner[:], false)
	_ = encoder.WriteUint64(info.Amount, bin.LE)
	_ = encoder.WriteInt64(info.StakeOpenTimestamp, bin.LE)
	_ = encoder.WriteInt64(info.LastClaimTime, bin.LE)
	return encoder.WriteUint64(info.RewardDebt, bin.LE)
}

func (entry *BlacklistEntry) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	err = readDiscriminator(decoder, BlacklistEntryDiscriminator, "BlacklistEntry")
	if err != nil {
		return err
	}

	entry.Address, err = readPubkey(decoder, "Address", "BlacklistEntry")
	return err
}

func (entry *BlacklistEntry) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(BlacklistEntryDiscriminator[:], false)
	return encoder.WriteBytes(entry.Address[:], false)
}

type record interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

func pack(r record) []byte {
	buf := new(bytes.Buffer)
	err := r.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

func (gs *GlobalState) Pack() []byte {
	return pack(gs)
}

func (info *UserStakeInfo) Pack() []byte {
	return pack(info)
}

func (entry *BlacklistEntry) Pack() []byte {
	return pack(entry)
}

func UnpackGlobalState(data []byte) (*GlobalState, error) {
	gs := new(GlobalState)
	err := gs.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, err
	}
	return gs, nil
}

func UnpackUserStakeInfo(data []byte) (*UserStakeInfo, error) {
	info := new(UserStakeInfo)
	err := info.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, err
	}
	return info, nil
}

func UnpackBlacklistEntry(data []byte) (*BlacklistEntry, error) {
	entry := new(BlacklistEntry)
	err := entry.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, err
	}
	return entry, nil
}
