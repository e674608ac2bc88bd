package accounts

type MemAccounts struct {
	Map map[[32]byte]*Account
}

func NewMemAccounts() MemAccounts {
	return MemAccounts{
		Map: make(map[[32]byte]*Account),
	}
}

func (m MemAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	acct, ok := m.Map[*pubkey]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.Clone(), nil
}

func (m MemAccounts) SetAccount(pubkey *[32]byte, acc *Account) error {
	if acc.IsEmpty() {
		delete(m.Map, *pubkey)
		return nil
	}
	m.Map[*pubkey] = acc.Clone()
	return nil
}

func (m MemAccounts) SetAccounts(accts []*Account) error {
	for _, acct := range accts {
		pk := [32]byte(acct.Key)
		if err := m.SetAccount(&pk, acct); err != nil {
			return err
		}
	}
	return nil
}
