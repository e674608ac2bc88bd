// Package genesis seeds an account store with the wallets, mints and token
// accounts a ledger starts from.
package genesis

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.firedancer.io/stakeledger/pkg/accounts"
	"go.firedancer.io/stakeledger/pkg/safemath"
	"go.firedancer.io/stakeledger/pkg/sealevel"
)

type Builder struct {
	accts accounts.Accounts
	rent  sealevel.SysvarRent
}

func New(accts accounts.Accounts, rent sealevel.SysvarRent) *Builder {
	return &Builder{accts: accts, rent: rent}
}

func (b *Builder) set(acct *accounts.Account) error {
	k := [32]byte(acct.Key)
	err := b.accts.SetAccount(&k, acct)
	if err != nil {
		return fmt.Errorf("writing genesis account %s: %w", acct.Key, err)
	}
	return nil
}

// Fund creates a system-owned wallet holding lamports.
func (b *Builder) Fund(key solana.PublicKey, lamports uint64) error {
	return b.set(&accounts.Account{Key: key, Lamports: lamports, Owner: sealevel.SystemProgramAddr})
}

// Mint creates an initialized, rent-exempt token mint with no supply.
func (b *Builder) Mint(key solana.PublicKey, authority solana.PublicKey, decimals uint8) error {
	mint := sealevel.TokenMint{
		MintAuthority: sealevel.COptionPubkey{IsSome: true, Pubkey: authority},
		Decimals:      decimals,
		IsInitialized: true,
	}
	return b.set(&accounts.Account{
		Key:      key,
		Lamports: b.rent.MinimumBalance(sealevel.TokenMintLen),
		Data:     mint.Pack(),
		Owner:    sealevel.TokenProgramAddr,
	})
}

// TokenAccount creates an initialized token account holding amount of mint
// and raises the mint's supply to match.
func (b *Builder) TokenAccount(key solana.PublicKey, mint solana.PublicKey, owner solana.PublicKey, amount uint64) error {
	mk := [32]byte(mint)
	mintAcct, err := b.accts.GetAccount(&mk)
	if err != nil {
		return fmt.Errorf("loading mint %s: %w", mint, err)
	}
	mintState, err := sealevel.UnpackTokenMint(mintAcct.Data)
	if err != nil {
		return fmt.Errorf("decoding mint %s: %w", mint, err)
	}
	mintState.Supply, err = safemath.CheckedAddU64(mintState.Supply, amount)
	if err != nil {
		return fmt.Errorf("mint %s supply: %w", mint, err)
	}
	mintAcct.Data = mintState.Pack()
	err = b.set(mintAcct)
	if err != nil {
		return err
	}

	ta := sealevel.TokenAccount{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  sealevel.TokenAccountStateInitialized,
	}
	return b.set(&accounts.Account{
		Key:      key,
		Lamports: b.rent.MinimumBalance(sealevel.TokenAccountLen),
		Data:     ta.Pack(),
		Owner:    sealevel.TokenProgramAddr,
	})
}
