package state

import (
	"bytes"
	"math/big"
	"testing"

	"judged/core/types"
	"judged/crypto"
	"judged/native/judge"
	"judged/storage"
)

func newTestManager() *Manager {
	return NewManager(storage.NewMemDB())
}

func testID(fill byte) [32]byte {
	var id [32]byte
	copy(id[:], bytes.Repeat([]byte{fill}, 32))
	return id
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestJudgeRoundTrip(t *testing.T) {
	m := newTestManager()
	j := &judge.Judge{
		ID:            testID(0x01),
		User1:         testAddr(0x01),
		User2:         testAddr(0x02),
		AmountToMatch: big.NewInt(1234),
		Finalized:     true,
		CreatedAt:     1_700_000_000,
	}
	if err := m.JudgePut(j); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := m.JudgeGet(j.ID)
	if !ok {
		t.Fatalf("expected stored judge")
	}
	if loaded.User1 != j.User1 || loaded.User2 != j.User2 {
		t.Fatalf("slot mismatch after round trip")
	}
	if loaded.AmountToMatch.Cmp(j.AmountToMatch) != 0 {
		t.Fatalf("stake mismatch: %s", loaded.AmountToMatch)
	}
	if !loaded.Finalized || loaded.CreatedAt != j.CreatedAt {
		t.Fatalf("metadata mismatch after round trip")
	}
}

func TestJudgeRoundTripEmptySlots(t *testing.T) {
	m := newTestManager()
	j := &judge.Judge{ID: testID(0x02), AmountToMatch: big.NewInt(0)}
	if err := m.JudgePut(j); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, ok := m.JudgeGet(j.ID)
	if !ok {
		t.Fatalf("expected stored judge")
	}
	if loaded.User1 != ([20]byte{}) || loaded.User2 != ([20]byte{}) {
		t.Fatalf("expected empty slots")
	}
}

func TestJudgeGetMissing(t *testing.T) {
	m := newTestManager()
	if _, ok := m.JudgeGet(testID(0x03)); ok {
		t.Fatalf("expected miss for unknown instance")
	}
}

func TestCreditDebitBalance(t *testing.T) {
	m := newTestManager()
	id := testID(0x04)

	balance, err := m.JudgeBalance(id)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance for fresh instance")
	}
	if err := m.JudgeCredit(id, big.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := m.JudgeCredit(id, big.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	balance, err = m.JudgeBalance(id)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected balance 1000, got %s", balance)
	}
	if err := m.JudgeDebit(id, big.NewInt(1000)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := m.JudgeDebit(id, big.NewInt(1)); err == nil {
		t.Fatalf("expected overdraft rejection")
	}
}

func TestAccountRoundTrip(t *testing.T) {
	m := newTestManager()
	addr := testAddr(0x05)

	acc, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.Balance.Sign() != 0 {
		t.Fatalf("expected zeroed account for untouched address")
	}
	acc.Balance = big.NewInt(777)
	acc.CodeHash = []byte{0x01, 0x02}
	if err := m.PutAccount(addr[:], acc); err != nil {
		t.Fatalf("put: %v", err)
	}
	loaded, err := m.GetAccount(addr[:])
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Balance.Cmp(big.NewInt(777)) != 0 {
		t.Fatalf("expected balance 777, got %s", loaded.Balance)
	}
	if !bytes.Equal(loaded.CodeHash, []byte{0x01, 0x02}) {
		t.Fatalf("code hash mismatch")
	}
}

func TestApplyAllocationOnce(t *testing.T) {
	m := newTestManager()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address()
	alloc := map[string]string{addr.String(): "5000"}

	if err := m.ApplyAllocation(alloc); err != nil {
		t.Fatalf("apply: %v", err)
	}
	acc, err := m.GetAccount(addr.Bytes())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.Balance.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("expected funded balance 5000, got %s", acc.Balance)
	}

	// Second application must be a no-op: restarts never double-fund.
	if err := m.ApplyAllocation(alloc); err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	acc, err = m.GetAccount(addr.Bytes())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.Balance.Cmp(big.NewInt(5000)) != 0 {
		t.Fatalf("expected unchanged balance, got %s", acc.Balance)
	}
}

func TestApplyAllocationRejectsBadInput(t *testing.T) {
	m := newTestManager()
	if err := m.ApplyAllocation(map[string]string{"not-bech32": "100"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PubKey().Address().String()
	if err := m.ApplyAllocation(map[string]string{addr: "-5"}); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestManagerImplementsEngineState(t *testing.T) {
	m := newTestManager()
	engine := judge.NewEngine()
	engine.SetState(m)

	id := testID(0x06)
	user1 := testAddr(0x11)
	user2 := testAddr(0x12)
	if err := m.PutAccount(user1[:], &types.Account{Balance: big.NewInt(1000)}); err != nil {
		t.Fatalf("fund user1: %v", err)
	}
	if err := m.PutAccount(user2[:], &types.Account{Balance: big.NewInt(1000)}); err != nil {
		t.Fatalf("fund user2: %v", err)
	}
	if _, err := engine.Deposit(id, user1, big.NewInt(1000)); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if _, err := engine.Deposit(id, user2, big.NewInt(1000)); err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	vaultAcc, err := m.GetAccount(VaultAddress[:])
	if err != nil {
		t.Fatalf("vault account: %v", err)
	}
	if vaultAcc.Balance.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("expected vault to hold 2000, got %s", vaultAcc.Balance)
	}
}
