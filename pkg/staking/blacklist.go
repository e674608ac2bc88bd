package staking

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

const (
	blacklistAdminIdx = iota
	blacklistStateIdx
	blacklistEntryIdx
	blacklistSystemProgramIdx
)

const (
	addToBlacklistNumAccounts      = blacklistSystemProgramIdx + 1
	removeFromBlacklistNumAccounts = blacklistEntryIdx + 1
)

// checkAdmin loads the state and requires the signer at blacklistAdminIdx
// to be its admin.
func (p *processor) checkAdmin() (*GlobalState, *Deployment, solana.PublicKey, error) {
	admin, err := p.key(blacklistAdminIdx)
	if err != nil {
		return nil, nil, solana.PublicKey{}, err
	}

	gs, d, err := p.loadGlobalState(blacklistStateIdx)
	if err != nil {
		return nil, nil, solana.PublicKey{}, err
	}
	if gs.Admin != admin {
		return nil, nil, solana.PublicKey{}, ErrUnauthorized
	}
	return gs, d, admin, nil
}

func (p *processor) addToBlacklist(address solana.PublicKey) error {
	err := p.checkAccounts(addToBlacklistNumAccounts, blacklistAdminIdx,
		programAccount{blacklistSystemProgramIdx, sealevel.SystemProgramAddr})
	if err != nil {
		return err
	}

	_, d, admin, err := p.checkAdmin()
	if err != nil {
		return err
	}

	if address.IsZero() {
		return ErrCannotBlacklistZeroAddress
	}

	entry, addr, err := p.blacklistEntry(blacklistEntryIdx, d, address)
	if err != nil {
		return err
	}
	if entry != nil {
		return ErrAddressAlreadyBlacklisted
	}

	err = p.createAccount(blacklistAdminIdx, blacklistEntryIdx, BlacklistEntryLen, p.programID, d.BlacklistSignerSeeds(address, addr))
	if err != nil {
		return err
	}
	err = p.storeRecord(blacklistEntryIdx, &BlacklistEntry{Address: address})
	if err != nil {
		return err
	}

	now, err := p.now()
	if err != nil {
		return err
	}

	p.execCtx.ProgramLog(fmt.Sprintf("Added %s to blacklist", address))
	emit(p.execCtx, &AddedToBlacklistEvent{Address: address, Admin: admin, Timestamp: now})
	return nil
}

func (p *processor) removeFromBlacklist(address solana.PublicKey) error {
	err := p.checkAccounts(removeFromBlacklistNumAccounts, blacklistAdminIdx)
	if err != nil {
		return err
	}

	_, d, admin, err := p.checkAdmin()
	if err != nil {
		return err
	}

	entry, _, err := p.blacklistEntry(blacklistEntryIdx, d, address)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrAddressNotBlacklisted
	}

	err = p.closeAccount(blacklistEntryIdx, blacklistAdminIdx)
	if err != nil {
		return err
	}

	now, err := p.now()
	if err != nil {
		return err
	}

	p.execCtx.ProgramLog(fmt.Sprintf("Removed %s from blacklist", address))
	emit(p.execCtx, &RemovedFromBlacklistEvent{Address: address, Admin: admin, Timestamp: now})
	return nil
}

// closeAccount moves every lamport of a program-owned account to
// destination and returns it to the system program with no data.
func (p *processor) closeAccount(instrAcctIdx uint64, destinationIdx uint64) error {
	acct, err := p.instrCtx.BorrowInstructionAccount(p.txCtx, instrAcctIdx)
	if err != nil {
		return err
	}
	defer acct.Drop()

	dest, err := p.instrCtx.BorrowInstructionAccount(p.txCtx, destinationIdx)
	if err != nil {
		return err
	}
	defer dest.Drop()

	err = dest.CheckedAddLamports(acct.Lamports())
	if err != nil {
		return err
	}
	err = acct.SetLamports(0)
	if err != nil {
		return err
	}
	err = acct.SetDataLength(0)
	if err != nil {
		return err
	}
	return acct.SetOwner(sealevel.SystemProgramAddr)
}
