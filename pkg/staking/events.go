package staking

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

const eventLogPrefix = "Program data: "

type Event interface {
	EventName() string
	MarshalWithEncoder(encoder *bin.Encoder) error
	UnmarshalWithDecoder(decoder *bin.Decoder) error
}

type InitializedEvent struct {
	Authority   solana.PublicKey
	StakingMint solana.PublicKey
	RewardMint  solana.PublicKey
	RewardRate  uint64
	Timestamp   int64
}

type StakedEvent struct {
	User      solana.PublicKey
	Amount    uint64
	Timestamp int64
}

type UnstakedEvent struct {
	User      solana.PublicKey
	Amount    uint64
	Rewards   uint64
	Timestamp int64
}

type RewardsClaimedEvent struct {
	User      solana.PublicKey
	Amount    uint64
	Timestamp int64
}

type AddedToBlacklistEvent struct {
	Address   solana.PublicKey
	Admin     solana.PublicKey
	Timestamp int64
}

type RemovedFromBlacklistEvent struct {
	Address   solana.PublicKey
	Admin     solana.PublicKey
	Timestamp int64
}

func (*InitializedEvent) EventName() string          { return "Initialized" }
func (*StakedEvent) EventName() string               { return "Staked" }
func (*UnstakedEvent) EventName() string             { return "Unstaked" }
func (*RewardsClaimedEvent) EventName() string       { return "RewardsClaimed" }
func (*AddedToBlacklistEvent) EventName() string     { return "AddedToBlacklist" }
func (*RemovedFromBlacklistEvent) EventName() string { return "RemovedFromBlacklist" }

func (ev *InitializedEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(ev.Authority[:], false)
	_ = encoder.WriteBytes(ev.StakingMint[:], false)
	_ = encoder.WriteBytes(ev.RewardMint[:], false)
	_ = encoder.WriteUint64(ev.RewardRate, bin.LE)
	return encoder.WriteInt64(ev.Timestamp, bin.LE)
}

func (ev *InitializedEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ev.Authority, err = readPubkey(decoder, "Authority", "Initialized")
	if err != nil {
		return err
	}
	ev.StakingMint, err = readPubkey(decoder, "StakingMint", "Initialized")
	if err != nil {
		return err
	}
	ev.RewardMint, err = readPubkey(decoder, "RewardMint", "Initialized")
	if err != nil {
		return err
	}
	ev.RewardRate, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read RewardRate when decoding Initialized: %w", err)
	}
	ev.Timestamp, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Timestamp when decoding Initialized: %w", err)
	}
	return nil
}

func (ev *StakedEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(ev.User[:], false)
	_ = encoder.WriteUint64(ev.Amount, bin.LE)
	return encoder.WriteInt64(ev.Timestamp, bin.LE)
}

func (ev *StakedEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ev.User, err = readPubkey(decoder, "User", "Staked")
	if err != nil {
		return err
	}
	ev.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding Staked: %w", err)
	}
	ev.Timestamp, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Timestamp when decoding Staked: %w", err)
	}
	return nil
}

func (ev *UnstakedEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(ev.User[:], false)
	_ = encoder.WriteUint64(ev.Amount, bin.LE)
	_ = encoder.WriteUint64(ev.Rewards, bin.LE)
	return encoder.WriteInt64(ev.Timestamp, bin.LE)
}

func (ev *UnstakedEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ev.User, err = readPubkey(decoder, "User", "Unstaked")
	if err != nil {
		return err
	}
	ev.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding Unstaked: %w", err)
	}
	ev.Rewards, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Rewards when decoding Unstaked: %w", err)
	}
	ev.Timestamp, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Timestamp when decoding Unstaked: %w", err)
	}
	return nil
}

func (ev *RewardsClaimedEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(ev.User[:], false)
	_ = encoder.WriteUint64(ev.Amount, bin.LE)
	return encoder.WriteInt64(ev.Timestamp, bin.LE)
}

func (ev *RewardsClaimedEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ev.User, err = readPubkey(decoder, "User", "RewardsClaimed")
	if err != nil {
		return err
	}
	ev.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding RewardsClaimed: %w", err)
	}
	ev.Timestamp, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Timestamp when decoding RewardsClaimed: %w", err)
	}
	return nil
}

func marshalBlacklistEvent(encoder *bin.Encoder, address, admin solana.PublicKey, timestamp int64) error {
	_ = encoder.WriteBytes(address[:], false)
	_ = encoder.WriteBytes(admin[:], false)
	return encoder.WriteInt64(timestamp, bin.LE)
}

func unmarshalBlacklistEvent(decoder *bin.Decoder, name string) (address, admin solana.PublicKey, timestamp int64, err error) {
	address, err = readPubkey(decoder, "Address", name)
	if err != nil {
		return
	}
	admin, err = readPubkey(decoder, "Admin", name)
	if err != nil {
		return
	}
	timestamp, err = decoder.ReadInt64(bin.LE)
	if err != nil {
		err = fmt.Errorf("failed to read Timestamp when decoding %s: %w", name, err)
	}
	return
}

func (ev *AddedToBlacklistEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	return marshalBlacklistEvent(encoder, ev.Address, ev.Admin, ev.Timestamp)
}

func (ev *AddedToBlacklistEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ev.Address, ev.Admin, ev.Timestamp, err = unmarshalBlacklistEvent(decoder, "AddedToBlacklist")
	return err
}

func (ev *RemovedFromBlacklistEvent) MarshalWithEncoder(encoder *bin.Encoder) error {
	return marshalBlacklistEvent(encoder, ev.Address, ev.Admin, ev.Timestamp)
}

func (ev *RemovedFromBlacklistEvent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	ev.Address, ev.Admin, ev.Timestamp, err = unmarshalBlacklistEvent(decoder, "RemovedFromBlacklist")
	return err
}

func newEventByDiscriminator(disc [8]byte) Event {
	candidates := []Event{
		&InitializedEvent{},
		&StakedEvent{},
		&UnstakedEvent{},
		&RewardsClaimedEvent{},
		&AddedToBlacklistEvent{},
		&RemovedFromBlacklistEvent{},
	}
	for _, ev := range candidates {
		if eventDiscriminator(ev.EventName()) == disc {
			return ev
		}
	}
	return nil
}

// EncodeEvent is the discriminator followed by the event fields.
func EncodeEvent(ev Event) []byte {
	buf := new(bytes.Buffer)
	disc := eventDiscriminator(ev.EventName())
	buf.Write(disc[:])
	err := ev.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

func DecodeEvent(data []byte) (Event, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("event data too short: %d bytes", len(data))
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	ev := newEventByDiscriminator(disc)
	if ev == nil {
		return nil, fmt.Errorf("unknown event discriminator %x", disc)
	}
	err := ev.UnmarshalWithDecoder(bin.NewBinDecoder(data[8:]))
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ParseEvents decodes every event line in a transaction's logs. Lines
// that are not events, or that fail to decode, are skipped.
func ParseEvents(logs []string) []Event {
	var events []Event
	for _, line := range logs {
		encoded, ok := strings.CutPrefix(line, eventLogPrefix)
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		ev, err := DecodeEvent(data)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}

func emit(execCtx *sealevel.ExecutionCtx, ev Event) {
	execCtx.Logf("%s%s", eventLogPrefix, base64.StdEncoding.EncodeToString(EncodeEvent(ev)))
}
