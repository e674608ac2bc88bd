package staking

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

type InitializeArgs struct {
	RewardRate uint64
}

type AmountArgs struct {
	Amount uint64
}

type BlacklistArgs struct {
	Address solana.PublicKey
}

func (args *InitializeArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.RewardRate, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read RewardRate when decoding InitializeArgs: %w", err)
	}
	return nil
}

func (args *InitializeArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(args.RewardRate, bin.LE)
}

func (args *AmountArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding AmountArgs: %w", err)
	}
	return nil
}

func (args *AmountArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(args.Amount, bin.LE)
}

func (args *BlacklistArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	args.Address, err = readPubkey(decoder, "Address", "BlacklistArgs")
	return err
}

func (args *BlacklistArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteBytes(args.Address[:], false)
}

func encodeInstruction(disc [8]byte, args record) []byte {
	buf := new(bytes.Buffer)
	buf.Write(disc[:])
	if args != nil {
		err := args.MarshalWithEncoder(bin.NewBinEncoder(buf))
		if err != nil {
			panic("shouldn't fail")
		}
	}
	return buf.Bytes()
}

func (d *Deployment) NewInitializeInstruction(admin solana.PublicKey, rewardMint solana.PublicKey, rewardRate uint64) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(admin, true, true),
		solana.NewAccountMeta(d.State.Key, true, false),
		solana.NewAccountMeta(d.StakingMint, false, false),
		solana.NewAccountMeta(rewardMint, false, false),
		solana.NewAccountMeta(d.StakingVault.Key, true, false),
		solana.NewAccountMeta(d.RewardVault.Key, true, false),
		solana.NewAccountMeta(sealevel.SystemProgramAddr, false, false),
		solana.NewAccountMeta(sealevel.TokenProgramAddr, false, false),
	}
	data := encodeInstruction(InitializeDiscriminator, &InitializeArgs{RewardRate: rewardRate})
	return solana.NewInstruction(d.ProgramID, metas, data)
}

func (d *Deployment) newStakeChangeInstruction(disc [8]byte, user, userTokenAccount, userRewardAccount solana.PublicKey, amount uint64, withSystemProgram bool) (solana.Instruction, error) {
	userStake, err := d.UserStake(user)
	if err != nil {
		return nil, err
	}
	blacklist, err := d.Blacklist(user)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(d.State.Key, true, false),
		solana.NewAccountMeta(userStake.Key, true, false),
		solana.NewAccountMeta(blacklist.Key, false, false),
		solana.NewAccountMeta(userTokenAccount, true, false),
		solana.NewAccountMeta(d.StakingVault.Key, true, false),
		solana.NewAccountMeta(userRewardAccount, true, false),
		solana.NewAccountMeta(d.RewardVault.Key, true, false),
	}
	if withSystemProgram {
		metas = append(metas, solana.NewAccountMeta(sealevel.SystemProgramAddr, false, false))
	}
	metas = append(metas, solana.NewAccountMeta(sealevel.TokenProgramAddr, false, false))

	data := encodeInstruction(disc, &AmountArgs{Amount: amount})
	return solana.NewInstruction(d.ProgramID, metas, data), nil
}

func (d *Deployment) NewStakeInstruction(user, userTokenAccount, userRewardAccount solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return d.newStakeChangeInstruction(StakeDiscriminator, user, userTokenAccount, userRewardAccount, amount, true)
}

func (d *Deployment) NewUnstakeInstruction(user, userTokenAccount, userRewardAccount solana.PublicKey, amount uint64) (solana.Instruction, error) {
	return d.newStakeChangeInstruction(UnstakeDiscriminator, user, userTokenAccount, userRewardAccount, amount, false)
}

func (d *Deployment) NewClaimRewardsInstruction(user, userRewardAccount solana.PublicKey) (solana.Instruction, error) {
	userStake, err := d.UserStake(user)
	if err != nil {
		return nil, err
	}
	blacklist, err := d.Blacklist(user)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(user, true, true),
		solana.NewAccountMeta(d.State.Key, false, false),
		solana.NewAccountMeta(userStake.Key, true, false),
		solana.NewAccountMeta(blacklist.Key, false, false),
		solana.NewAccountMeta(userRewardAccount, true, false),
		solana.NewAccountMeta(d.RewardVault.Key, true, false),
		solana.NewAccountMeta(sealevel.TokenProgramAddr, false, false),
	}
	return solana.NewInstruction(d.ProgramID, metas, encodeInstruction(ClaimRewardsDiscriminator, nil)), nil
}

func (d *Deployment) NewAddToBlacklistInstruction(admin solana.PublicKey, address solana.PublicKey) (solana.Instruction, error) {
	entry, err := d.Blacklist(address)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(admin, true, true),
		solana.NewAccountMeta(d.State.Key, false, false),
		solana.NewAccountMeta(entry.Key, true, false),
		solana.NewAccountMeta(sealevel.SystemProgramAddr, false, false),
	}
	data := encodeInstruction(AddToBlacklistDiscriminator, &BlacklistArgs{Address: address})
	return solana.NewInstruction(d.ProgramID, metas, data), nil
}

func (d *Deployment) NewRemoveFromBlacklistInstruction(admin solana.PublicKey, address solana.PublicKey) (solana.Instruction, error) {
	entry, err := d.Blacklist(address)
	if err != nil {
		return nil, err
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(admin, true, true),
		solana.NewAccountMeta(d.State.Key, false, false),
		solana.NewAccountMeta(entry.Key, true, false),
	}
	data := encodeInstruction(RemoveFromBlacklistDiscriminator, &BlacklistArgs{Address: address})
	return solana.NewInstruction(d.ProgramID, metas, data), nil
}
