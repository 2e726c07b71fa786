package judge

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"judged/core/types"
)

const (
	EventTypeDepositObserved = "judge.deposit_observed"
	EventTypeSettled         = "judge.settled"
	EventTypeReleased        = "judge.released"
	EventTypeReset           = "judge.reset"
)

// NewDepositObservedEvent returns the canonical event payload emitted when a
// stake arrives in the escrow.
func NewDepositObservedEvent(j *Judge, sender [20]byte, amount *big.Int) *types.Event {
	evt := newJudgeEvent(EventTypeDepositObserved, j)
	evt.Attributes["sender"] = hex.EncodeToString(sender[:])
	if amount != nil {
		evt.Attributes["amount"] = amount.String()
	}
	return evt
}

// NewSettledEvent returns the canonical event payload for a reveal-triggered
// settlement: the full balance handed to the activated resolver.
func NewSettledEvent(j *Judge, finalBalance *big.Int, resolver [20]byte) *types.Event {
	evt := newJudgeEvent(EventTypeSettled, j)
	if finalBalance != nil {
		evt.Attributes["finalBalance"] = finalBalance.String()
	}
	evt.Attributes["resolver"] = hex.EncodeToString(resolver[:])
	return evt
}

// NewReleasedEvent returns the canonical event payload for a cooperative
// release, recording both payouts.
func NewReleasedEvent(j *Judge, caller [20]byte, counterpartyPayout, callerPayout *big.Int) *types.Event {
	evt := newJudgeEvent(EventTypeReleased, j)
	evt.Attributes["caller"] = hex.EncodeToString(caller[:])
	if counterpartyPayout != nil {
		evt.Attributes["counterpartyPayout"] = counterpartyPayout.String()
	}
	if callerPayout != nil {
		evt.Attributes["callerPayout"] = callerPayout.String()
	}
	return evt
}

// NewResetEvent returns the canonical event payload emitted when a finalized
// instance is cleared for reuse.
func NewResetEvent(j *Judge) *types.Event { return newJudgeEvent(EventTypeReset, j) }

func newJudgeEvent(eventType string, j *Judge) *types.Event {
	attrs := make(map[string]string)
	if j == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	sanitized, err := SanitizeJudge(j)
	if err != nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(sanitized.ID[:])
	if sanitized.User1 != ([20]byte{}) {
		attrs["user1"] = hex.EncodeToString(sanitized.User1[:])
	}
	if sanitized.User2 != ([20]byte{}) {
		attrs["user2"] = hex.EncodeToString(sanitized.User2[:])
	}
	attrs["amountToMatch"] = sanitized.AmountToMatch.String()
	attrs["finalized"] = strconv.FormatBool(sanitized.Finalized)
	attrs["createdAt"] = strconv.FormatInt(sanitized.CreatedAt, 10)
	return &types.Event{Type: eventType, Attributes: attrs}
}
