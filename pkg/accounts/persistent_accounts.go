package accounts

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	bin "github.com/gagliardetto/binary"
	"go.firedancer.io/stakeledger/pkg/base58"
	"k8s.io/klog/v2"
)

type PersistentAccountsDb struct {
	db *pebble.DB
}

// pebbleLogger routes pebble's own logging through klog.
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	klog.V(2).Infof("pebble: "+format, args...)
}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	klog.Errorf("pebble: "+format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	klog.Fatalf("pebble: "+format, args...)
}

func OpenAccountsDb(dir string) (*PersistentAccountsDb, error) {
	db, err := pebble.Open(dir, &pebble.Options{Logger: pebbleLogger{}})
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts db at %s: %w", dir, err)
	}

	return &PersistentAccountsDb{db: db}, nil
}

func (m *PersistentAccountsDb) Close() error {
	return m.db.Close()
}

func (m *PersistentAccountsDb) GetAccount(pubkey *[32]byte) (*Account, error) {
	acctBytes, closer, err := m.db.Get(pubkey[:])
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, fmt.Errorf("error whilst retrieving account %s: %w", base58.Encode(pubkey[:]), err)
	}
	defer closer.Close()

	decoder := bin.NewBinDecoder(acctBytes)
	acct := new(Account)

	err = acct.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize account %s from accounts db: %w", base58.Encode(pubkey[:]), err)
	}
	acct.Key = *pubkey

	return acct, nil
}

func (m *PersistentAccountsDb) SetAccount(pubkey *[32]byte, acct *Account) error {
	batch := m.db.NewBatch()
	defer batch.Close()

	err := setInBatch(batch, pubkey, acct)
	if err != nil {
		return err
	}

	return batch.Commit(pebble.Sync)
}

// SetAccounts writes every account in a single synced batch, so either all
// of them become visible or none do.
func (m *PersistentAccountsDb) SetAccounts(accts []*Account) error {
	batch := m.db.NewBatch()
	defer batch.Close()

	for _, acct := range accts {
		pk := [32]byte(acct.Key)
		err := setInBatch(batch, &pk, acct)
		if err != nil {
			return err
		}
	}

	err := batch.Commit(pebble.Sync)
	if err != nil {
		return fmt.Errorf("failed to commit %d accounts: %w", len(accts), err)
	}
	return nil
}

func setInBatch(batch *pebble.Batch, pubkey *[32]byte, acct *Account) error {
	if acct.IsEmpty() {
		err := batch.Delete(pubkey[:], nil)
		if err != nil {
			return fmt.Errorf("error deleting account %s: %w", base58.Encode(pubkey[:]), err)
		}
		return nil
	}

	acctBytes, err := acct.Marshal()
	if err != nil {
		return fmt.Errorf("failed to serialize account %s for storage: %w", base58.Encode(pubkey[:]), err)
	}

	err = batch.Set(pubkey[:], acctBytes, nil)
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}
	return nil
}
