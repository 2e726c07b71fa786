package judge

import (
	"encoding/hex"
	"math/big"
	"testing"
)

func TestDepositObservedEventAttributes(t *testing.T) {
	user1 := newTestAddress(0x01)
	j := &Judge{ID: testJudgeID(0xA1), User1: user1, AmountToMatch: big.NewInt(750), CreatedAt: 1_700_000_000}

	evt := NewDepositObservedEvent(j, user1, big.NewInt(750))
	if evt.Type != EventTypeDepositObserved {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if evt.Attributes["sender"] != hex.EncodeToString(user1[:]) {
		t.Fatalf("unexpected sender attribute %q", evt.Attributes["sender"])
	}
	if evt.Attributes["amount"] != "750" {
		t.Fatalf("unexpected amount attribute %q", evt.Attributes["amount"])
	}
	if evt.Attributes["finalized"] != "false" {
		t.Fatalf("unexpected finalized attribute %q", evt.Attributes["finalized"])
	}
	if _, ok := evt.Attributes["user2"]; ok {
		t.Fatalf("empty slot must not be encoded")
	}
}

func TestSettledEventAttributes(t *testing.T) {
	resolver := newTestAddress(0xDD)
	j := &Judge{
		ID:            testJudgeID(0xA2),
		User1:         newTestAddress(0x01),
		User2:         newTestAddress(0x02),
		AmountToMatch: big.NewInt(1000),
		Finalized:     true,
	}

	evt := NewSettledEvent(j, big.NewInt(2000), resolver)
	if evt.Type != EventTypeSettled {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if evt.Attributes["finalBalance"] != "2000" {
		t.Fatalf("unexpected finalBalance %q", evt.Attributes["finalBalance"])
	}
	if evt.Attributes["resolver"] != hex.EncodeToString(resolver[:]) {
		t.Fatalf("unexpected resolver %q", evt.Attributes["resolver"])
	}
}

func TestReleasedEventRecordsBothPayouts(t *testing.T) {
	caller := newTestAddress(0x01)
	j := &Judge{
		ID:            testJudgeID(0xA3),
		User1:         caller,
		User2:         newTestAddress(0x02),
		AmountToMatch: big.NewInt(1000),
		Finalized:     true,
	}

	evt := NewReleasedEvent(j, caller, big.NewInt(1980), big.NewInt(20))
	if evt.Attributes["counterpartyPayout"] != "1980" {
		t.Fatalf("unexpected counterparty payout %q", evt.Attributes["counterpartyPayout"])
	}
	if evt.Attributes["callerPayout"] != "20" {
		t.Fatalf("unexpected caller payout %q", evt.Attributes["callerPayout"])
	}
}

func TestEventFromNilJudge(t *testing.T) {
	evt := NewResetEvent(nil)
	if evt.Type != EventTypeReset {
		t.Fatalf("unexpected type %s", evt.Type)
	}
	if len(evt.Attributes) != 0 {
		t.Fatalf("expected empty attributes for nil judge")
	}
}
