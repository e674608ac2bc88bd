package staking

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/sealevel"
	"k8s.io/klog/v2"
)

// ProgramExecute is the entrypoint invoked by the runtime for instructions
// addressed to the staking program.
func ProgramExecute(execCtx *sealevel.ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUStakingProgramDefaultComputeUnits)
	if err != nil {
		return sealevel.InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	programID, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return err
	}

	data := instrCtx.Data
	if len(data) < 8 {
		return sealevel.InstrErrInvalidInstructionData
	}

	var disc [8]byte
	copy(disc[:], data[:8])
	decoder := bin.NewBinDecoder(data[8:])

	p := &processor{execCtx: execCtx, txCtx: txCtx, instrCtx: instrCtx, programID: programID}

	switch disc {
	case InitializeDiscriminator:
		var args InitializeArgs
		err = args.UnmarshalWithDecoder(decoder)
		if err != nil {
			return sealevel.InstrErrInvalidInstructionData
		}
		execCtx.ProgramLog("Instruction: Initialize")
		err = p.initialize(args.RewardRate)

	case StakeDiscriminator:
		var args AmountArgs
		err = args.UnmarshalWithDecoder(decoder)
		if err != nil {
			return sealevel.InstrErrInvalidInstructionData
		}
		execCtx.ProgramLog("Instruction: Stake")
		err = p.stake(args.Amount)

	case UnstakeDiscriminator:
		var args AmountArgs
		err = args.UnmarshalWithDecoder(decoder)
		if err != nil {
			return sealevel.InstrErrInvalidInstructionData
		}
		execCtx.ProgramLog("Instruction: Unstake")
		err = p.unstake(args.Amount)

	case ClaimRewardsDiscriminator:
		execCtx.ProgramLog("Instruction: ClaimRewards")
		err = p.claimRewards()

	case AddToBlacklistDiscriminator:
		var args BlacklistArgs
		err = args.UnmarshalWithDecoder(decoder)
		if err != nil {
			return sealevel.InstrErrInvalidInstructionData
		}
		execCtx.ProgramLog("Instruction: AddToBlacklist")
		err = p.addToBlacklist(args.Address)

	case RemoveFromBlacklistDiscriminator:
		var args BlacklistArgs
		err = args.UnmarshalWithDecoder(decoder)
		if err != nil {
			return sealevel.InstrErrInvalidInstructionData
		}
		execCtx.ProgramLog("Instruction: RemoveFromBlacklist")
		err = p.removeFromBlacklist(args.Address)

	default:
		klog.V(2).Infof("staking: unknown instruction discriminator %x", disc)
		return sealevel.InstrErrInvalidInstructionData
	}

	if err != nil {
		logError(execCtx, err)
	}
	return err
}

type processor struct {
	execCtx   *sealevel.ExecutionCtx
	txCtx     *sealevel.TransactionCtx
	instrCtx  *sealevel.InstructionCtx
	programID solana.PublicKey
}

// accountView is a copy of an instruction account taken without holding
// the borrow, so that nested invocations can use the account.
type accountView struct {
	Key      solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
	Data     []byte
}

func (v *accountView) exists() bool {
	return v.Lamports != 0 || len(v.Data) != 0
}

func (p *processor) key(instrAcctIdx uint64) (solana.PublicKey, error) {
	return p.instrCtx.InstructionAccountKey(p.txCtx, instrAcctIdx)
}

func (p *processor) view(instrAcctIdx uint64) (*accountView, error) {
	acct, err := p.instrCtx.BorrowInstructionAccount(p.txCtx, instrAcctIdx)
	if err != nil {
		return nil, err
	}
	defer acct.Drop()

	return &accountView{
		Key:      acct.Key(),
		Owner:    acct.Owner(),
		Lamports: acct.Lamports(),
		Data:     bytes.Clone(acct.Data()),
	}, nil
}

func (p *processor) requireSigner(instrAcctIdx uint64) error {
	isSigner, err := p.instrCtx.IsInstructionAccountSigner(instrAcctIdx)
	if err != nil {
		return err
	}
	if !isSigner {
		return sealevel.InstrErrMissingRequiredSignature
	}
	return nil
}

func (p *processor) expectKey(instrAcctIdx uint64, expected solana.PublicKey) error {
	key, err := p.key(instrAcctIdx)
	if err != nil {
		return err
	}
	if key != expected {
		klog.V(2).Infof("staking: account %d is %s, expected %s", instrAcctIdx, key, expected)
		return ErrInvalidAccount
	}
	return nil
}

type programAccount struct {
	idx uint64
	id  solana.PublicKey
}

// checkAccounts is the common prologue of every transition: the account
// count, then the program accounts, then the signer.
func (p *processor) checkAccounts(numAccounts uint64, signerIdx uint64, programs ...programAccount) error {
	err := p.instrCtx.CheckNumOfInstructionAccounts(numAccounts)
	if err != nil {
		return err
	}
	for _, prog := range programs {
		err = p.expectProgram(prog.idx, prog.id)
		if err != nil {
			return err
		}
	}
	return p.requireSigner(signerIdx)
}

func (p *processor) expectProgram(instrAcctIdx uint64, programID solana.PublicKey) error {
	key, err := p.key(instrAcctIdx)
	if err != nil {
		return err
	}
	if key != programID {
		return sealevel.InstrErrIncorrectProgramId
	}
	return nil
}

func (p *processor) now() (int64, error) {
	clock, err := sealevel.ReadClockSysvar(p.execCtx)
	if err != nil {
		return 0, err
	}
	return clock.UnixTimestamp, nil
}

// loadGlobalState decodes the state account and checks that it sits at
// the address derived from its own staking mint.
func (p *processor) loadGlobalState(instrAcctIdx uint64) (*GlobalState, *Deployment, error) {
	v, err := p.view(instrAcctIdx)
	if err != nil {
		return nil, nil, err
	}
	if v.Owner != p.programID || !v.exists() {
		return nil, nil, ErrAccountNotInitialized
	}

	gs, err := UnpackGlobalState(v.Data)
	if err != nil {
		klog.V(2).Infof("staking: bad global state at %s: %s", v.Key, err)
		return nil, nil, ErrInvalidAccount
	}

	d, err := DeriveDeployment(p.programID, gs.StakingMint)
	if err != nil {
		return nil, nil, err
	}
	if d.State.Key != v.Key {
		return nil, nil, ErrInvalidAccount
	}
	return gs, d, nil
}

// loadUserStake returns nil without error when the position account has
// not been created yet.
func (p *processor) loadUserStake(instrAcctIdx uint64, d *Deployment, owner solana.PublicKey) (*UserStakeInfo, Address, error) {
	addr, err := d.UserStake(owner)
	if err != nil {
		return nil, Address{}, err
	}
	err = p.expectKey(instrAcctIdx, addr.Key)
	if err != nil {
		return nil, Address{}, err
	}

	v, err := p.view(instrAcctIdx)
	if err != nil {
		return nil, Address{}, err
	}
	if v.Owner != p.programID || len(v.Data) == 0 {
		return nil, addr, nil
	}

	info, err := UnpackUserStakeInfo(v.Data)
	if err != nil {
		return nil, Address{}, ErrInvalidAccount
	}
	if info.Owner != owner {
		return nil, Address{}, ErrInvalidAccount
	}
	return info, addr, nil
}

// blacklistEntry returns the denial record for address, or nil if the
// address is not denied.
func (p *processor) blacklistEntry(instrAcctIdx uint64, d *Deployment, address solana.PublicKey) (*BlacklistEntry, Address, error) {
	addr, err := d.Blacklist(address)
	if err != nil {
		return nil, Address{}, err
	}
	err = p.expectKey(instrAcctIdx, addr.Key)
	if err != nil {
		return nil, Address{}, err
	}

	v, err := p.view(instrAcctIdx)
	if err != nil {
		return nil, Address{}, err
	}
	if v.Owner != p.programID || len(v.Data) == 0 {
		return nil, addr, nil
	}

	entry, err := UnpackBlacklistEntry(v.Data)
	if err != nil {
		return nil, Address{}, ErrInvalidAccount
	}
	if entry.Address != address {
		return nil, addr, nil
	}
	return entry, addr, nil
}

func (p *processor) checkNotBlacklisted(instrAcctIdx uint64, d *Deployment, address solana.PublicKey) error {
	entry, _, err := p.blacklistEntry(instrAcctIdx, d, address)
	if err != nil {
		return err
	}
	if entry != nil {
		return ErrAddressBlacklisted
	}
	return nil
}

// tokenAccount decodes a custody account and checks its mint and, when
// owner is non-nil, its owner.
func (p *processor) tokenAccount(instrAcctIdx uint64, mint solana.PublicKey, owner *solana.PublicKey) (*sealevel.TokenAccount, error) {
	v, err := p.view(instrAcctIdx)
	if err != nil {
		return nil, err
	}
	if v.Owner != sealevel.TokenProgramAddr {
		return nil, ErrInvalidTokenAccount
	}

	tokenAcct, err := sealevel.UnpackTokenAccount(v.Data)
	if err != nil {
		return nil, ErrInvalidTokenAccount
	}
	if tokenAcct.Mint != mint {
		return nil, ErrInvalidTokenAccount
	}
	if owner != nil && tokenAcct.Owner != *owner {
		return nil, ErrInvalidTokenAccount
	}
	return tokenAcct, nil
}

// createAccount funds and allocates a fresh derived account through the
// system program. The new account signs with seeds. A target that already
// holds lamports, which anyone can send to a derived address, is topped up
// to rent exemption and then allocated and assigned in place.
func (p *processor) createAccount(payerIdx uint64, targetIdx uint64, space uint64, owner solana.PublicKey, seeds [][]byte) error {
	payer, err := p.key(payerIdx)
	if err != nil {
		return err
	}
	target, err := p.view(targetIdx)
	if err != nil {
		return err
	}

	rent, err := sealevel.ReadRentSysvar(p.execCtx)
	if err != nil {
		return err
	}
	required := rent.MinimumBalance(space)
	signers := [][][]byte{seeds}

	if target.Lamports == 0 {
		ix := sealevel.NewCreateAccountInstruction(payer, target.Key, required, space, owner)
		return p.execCtx.NativeInvokeSigned(ix, signers)
	}

	klog.V(2).Infof("staking: %s prefunded with %d lamports, claiming in place", target.Key, target.Lamports)
	if target.Lamports < required {
		ix := sealevel.NewTransferInstruction(payer, target.Key, required-target.Lamports)
		err = p.execCtx.NativeInvoke(ix, nil)
		if err != nil {
			return err
		}
	}
	err = p.execCtx.NativeInvokeSigned(sealevel.NewAllocateInstruction(target.Key, space), signers)
	if err != nil {
		return err
	}
	return p.execCtx.NativeInvokeSigned(sealevel.NewAssignInstruction(target.Key, owner), signers)
}

func (p *processor) storeRecord(instrAcctIdx uint64, r record) error {
	acct, err := p.instrCtx.BorrowInstructionAccount(p.txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer acct.Drop()
	return acct.SetData(pack(r))
}

// transfer moves tokens through the custody program. Transfers out of a
// vault are signed by the state account.
func (p *processor) transfer(source, destination, authority solana.PublicKey, amount uint64, d *Deployment) error {
	ix := sealevel.NewTokenTransferInstruction(source, destination, authority, amount)
	if d == nil {
		return p.execCtx.NativeInvoke(ix, nil)
	}
	return p.execCtx.NativeInvokeSigned(ix, [][][]byte{d.StateSignerSeeds()})
}

// payReward sends amount from the reward vault to the user's reward
// account, failing if the vault cannot cover it.
func (p *processor) payReward(rewardVaultIdx uint64, userRewardIdx uint64, gs *GlobalState, d *Deployment, amount uint64) error {
	if amount == 0 {
		return nil
	}

	vault, err := p.tokenAccount(rewardVaultIdx, gs.RewardMint, &d.State.Key)
	if err != nil {
		return err
	}
	if vault.Amount < amount {
		return ErrInsufficientCustodyFunds
	}

	userReward, err := p.key(userRewardIdx)
	if err != nil {
		return err
	}
	return p.transfer(gs.RewardVault, userReward, d.State.Key, amount, d)
}
