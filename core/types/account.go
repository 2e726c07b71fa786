package types

import "math/big"

// Account holds the ledger-native balance and metadata for an address. A
// non-empty CodeHash marks the account as an activated resolver instance.
type Account struct {
	Nonce    uint64   `json:"nonce"`
	Balance  *big.Int `json:"balance"`
	CodeHash []byte   `json:"codeHash,omitempty"`
}

// EnsureDefaults normalises nil balance fields so callers can operate on the
// account without nil checks.
func (a *Account) EnsureDefaults() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	clone := &Account{
		Nonce:    a.Nonce,
		Balance:  big.NewInt(0),
		CodeHash: append([]byte(nil), a.CodeHash...),
	}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	return clone
}
