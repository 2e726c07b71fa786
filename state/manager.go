package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"judged/core/types"
	"judged/crypto"
	"judged/native/judge"
	"judged/storage"
)

const (
	judgeKeyPrefix   = "judge/"
	accountKeyPrefix = "acct/"
	vaultKeyPrefix   = "vault/"
	genesisKey       = "genesis/applied"
)

// VaultAddress is the module account that physically holds all escrowed
// balances. Derived from a fixed tag so it can never collide with a
// key-derived participant address.
var VaultAddress = func() [20]byte {
	h := ethcrypto.Keccak256Hash([]byte("judged/module/vault"))
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}()

// Manager persists judge records, participant accounts and per-instance held
// balances in a key-value store. It implements the state interface consumed
// by the judge engine and the resolver executor.
type Manager struct {
	db storage.Database
}

// NewManager wraps the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

type storedJudge struct {
	ID            []byte `json:"id"`
	User1         []byte `json:"user1,omitempty"`
	User2         []byte `json:"user2,omitempty"`
	AmountToMatch string `json:"amountToMatch"`
	Finalized     bool   `json:"finalized"`
	CreatedAt     int64  `json:"createdAt"`
}

func judgeKey(id [32]byte) []byte {
	return []byte(judgeKeyPrefix + hex.EncodeToString(id[:]))
}

func accountKey(addr []byte) []byte {
	return []byte(accountKeyPrefix + hex.EncodeToString(addr))
}

func vaultKey(id [32]byte) []byte {
	return []byte(vaultKeyPrefix + hex.EncodeToString(id[:]))
}

// JudgePut sanitizes and persists a judge record.
func (m *Manager) JudgePut(j *judge.Judge) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	sanitized, err := judge.SanitizeJudge(j)
	if err != nil {
		return err
	}
	stored := storedJudge{
		ID:            append([]byte(nil), sanitized.ID[:]...),
		AmountToMatch: sanitized.AmountToMatch.String(),
		Finalized:     sanitized.Finalized,
		CreatedAt:     sanitized.CreatedAt,
	}
	if sanitized.User1 != ([20]byte{}) {
		stored.User1 = append([]byte(nil), sanitized.User1[:]...)
	}
	if sanitized.User2 != ([20]byte{}) {
		stored.User2 = append([]byte(nil), sanitized.User2[:]...)
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return m.db.Put(judgeKey(sanitized.ID), raw)
}

// JudgeGet loads a judge record. The second return value is false when the
// instance does not exist.
func (m *Manager) JudgeGet(id [32]byte) (*judge.Judge, bool) {
	if m == nil || m.db == nil {
		return nil, false
	}
	raw, err := m.db.Get(judgeKey(id))
	if err != nil {
		return nil, false
	}
	var stored storedJudge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, false
	}
	amount, ok := new(big.Int).SetString(stored.AmountToMatch, 10)
	if !ok {
		return nil, false
	}
	j := &judge.Judge{
		ID:            id,
		AmountToMatch: amount,
		Finalized:     stored.Finalized,
		CreatedAt:     stored.CreatedAt,
	}
	copy(j.User1[:], stored.User1)
	copy(j.User2[:], stored.User2)
	return j, true
}

// JudgeBalance returns the balance currently credited to an instance.
func (m *Manager) JudgeBalance(id [32]byte) (*big.Int, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: database not configured")
	}
	raw, err := m.db.Get(vaultKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(string(raw), 10)
	if !ok {
		return nil, fmt.Errorf("state: corrupt vault balance for %x", id)
	}
	return balance, nil
}

// JudgeCredit adds amt to the instance's held balance.
func (m *Manager) JudgeCredit(id [32]byte, amt *big.Int) error {
	return m.adjustBalance(id, amt, false)
}

// JudgeDebit subtracts amt from the instance's held balance, rejecting
// overdrafts.
func (m *Manager) JudgeDebit(id [32]byte, amt *big.Int) error {
	return m.adjustBalance(id, amt, true)
}

func (m *Manager) adjustBalance(id [32]byte, amt *big.Int, debit bool) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	if amt == nil || amt.Sign() < 0 {
		return fmt.Errorf("state: invalid balance adjustment")
	}
	balance, err := m.JudgeBalance(id)
	if err != nil {
		return err
	}
	if debit {
		if balance.Cmp(amt) < 0 {
			return fmt.Errorf("state: vault overdraft for %x", id)
		}
		balance = new(big.Int).Sub(balance, amt)
	} else {
		balance = new(big.Int).Add(balance, amt)
	}
	return m.db.Put(vaultKey(id), []byte(balance.String()))
}

// JudgeVaultAddress returns the module vault account address.
func (m *Manager) JudgeVaultAddress() ([20]byte, error) {
	return VaultAddress, nil
}

// GetAccount loads an account, returning a zeroed account when the address
// has never been touched.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if m == nil || m.db == nil {
		return nil, fmt.Errorf("state: database not configured")
	}
	raw, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return (&types.Account{}).EnsureDefaults(), nil
	}
	if err != nil {
		return nil, err
	}
	acc := &types.Account{}
	if err := json.Unmarshal(raw, acc); err != nil {
		return nil, err
	}
	return acc.EnsureDefaults(), nil
}

// PutAccount persists an account.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	raw, err := json.Marshal(account.EnsureDefaults())
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(addr), raw)
}

// ApplyAllocation funds the given bech32 addresses once per database. A
// fresh store records the allocation marker; subsequent starts are no-ops so
// restarts never double-fund.
func (m *Manager) ApplyAllocation(alloc map[string]string) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: database not configured")
	}
	applied, err := m.db.Has([]byte(genesisKey))
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	for bech, amountStr := range alloc {
		addr, err := crypto.DecodeAddress(bech)
		if err != nil {
			return fmt.Errorf("state: invalid alloc address %q: %w", bech, err)
		}
		amount, ok := new(big.Int).SetString(amountStr, 10)
		if !ok || amount.Sign() < 0 {
			return fmt.Errorf("state: invalid alloc amount %q for %q", amountStr, bech)
		}
		acc, err := m.GetAccount(addr.Bytes())
		if err != nil {
			return err
		}
		acc.Balance = new(big.Int).Add(acc.Balance, amount)
		if err := m.PutAccount(addr.Bytes(), acc); err != nil {
			return err
		}
	}
	return m.db.Put([]byte(genesisKey), []byte("1"))
}
