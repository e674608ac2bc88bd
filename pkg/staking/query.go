package staking

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/accounts"
)

// The functions below read committed records directly from a store. They
// are for clients and never run inside a transaction.

func loadProgramAccount(accts accounts.Accounts, programID solana.PublicKey, key solana.PublicKey) (*accounts.Account, error) {
	k := [32]byte(key)
	acct, err := accts.GetAccount(&k)
	if err != nil {
		return nil, err
	}
	if solana.PublicKeyFromBytes(acct.Owner[:]) != programID {
		// lamports sent to an unclaimed derived address
		if len(acct.Data) == 0 {
			return nil, fmt.Errorf("account %s holds no record: %w", key, accounts.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("account %s is not owned by %s", key, programID)
	}
	return acct, nil
}

func (d *Deployment) LoadGlobalState(accts accounts.Accounts) (*GlobalState, error) {
	acct, err := loadProgramAccount(accts, d.ProgramID, d.State.Key)
	if err != nil {
		return nil, err
	}
	return UnpackGlobalState(acct.Data)
}

// LoadUserPosition returns accounts.ErrAccountNotFound if owner never staked.
func (d *Deployment) LoadUserPosition(accts accounts.Accounts, owner solana.PublicKey) (*UserStakeInfo, error) {
	addr, err := d.UserStake(owner)
	if err != nil {
		return nil, err
	}
	acct, err := loadProgramAccount(accts, d.ProgramID, addr.Key)
	if err != nil {
		return nil, err
	}
	return UnpackUserStakeInfo(acct.Data)
}

func (d *Deployment) IsBlacklisted(accts accounts.Accounts, address solana.PublicKey) (bool, error) {
	addr, err := d.Blacklist(address)
	if err != nil {
		return false, err
	}
	acct, err := loadProgramAccount(accts, d.ProgramID, addr.Key)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	entry, err := UnpackBlacklistEntry(acct.Data)
	if err != nil {
		return false, err
	}
	return entry.Address == address, nil
}

// PendingRewardAt is what owner could claim at the given time.
func (d *Deployment) PendingRewardAt(accts accounts.Accounts, owner solana.PublicKey, now int64) (uint64, error) {
	gs, err := d.LoadGlobalState(accts)
	if err != nil {
		return 0, err
	}
	info, err := d.LoadUserPosition(accts, owner)
	if err != nil {
		return 0, err
	}
	return PendingReward(info, gs, now)
}
