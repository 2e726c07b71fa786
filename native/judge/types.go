package judge

import (
	"fmt"
	"math/big"
)

// Judge captures the participant slots and stake agreement of a single
// private-settlement escrow instance. The held balance is not stored on the
// record; it lives in the state backend's vault ledger keyed by ID so that
// fund movements and metadata updates cannot drift apart silently.
type Judge struct {
	ID            [32]byte
	User1         [20]byte
	User2         [20]byte
	AmountToMatch *big.Int
	Finalized     bool
	CreatedAt     int64
}

// Clone returns a deep copy of the judge record so callers can safely mutate
// the copy without affecting the stored instance.
func (j *Judge) Clone() *Judge {
	if j == nil {
		return nil
	}
	clone := *j
	if j.AmountToMatch != nil {
		clone.AmountToMatch = new(big.Int).Set(j.AmountToMatch)
	} else {
		clone.AmountToMatch = big.NewInt(0)
	}
	return &clone
}

// Armed reports whether both stakes are present: only then may either party
// trigger release or reveal.
func (j *Judge) Armed() bool {
	return j != nil && j.User1 != ([20]byte{}) && j.User2 != ([20]byte{})
}

// IsParticipant reports whether addr occupies one of the two slots.
func (j *Judge) IsParticipant(addr [20]byte) bool {
	if j == nil || addr == ([20]byte{}) {
		return false
	}
	return addr == j.User1 || addr == j.User2
}

// Counterparty returns the slot opposite to addr. The second return value is
// false when addr is not a registered participant.
func (j *Judge) Counterparty(addr [20]byte) ([20]byte, bool) {
	if !j.IsParticipant(addr) {
		return [20]byte{}, false
	}
	if addr == j.User1 {
		return j.User2, true
	}
	return j.User1, true
}

// SanitizeJudge validates and normalises the supplied record, returning a
// cloned instance with a non-nil stake amount. The function does not mutate
// the original value.
func SanitizeJudge(j *Judge) (*Judge, error) {
	if j == nil {
		return nil, fmt.Errorf("nil judge")
	}
	clone := j.Clone()
	if clone.AmountToMatch == nil {
		clone.AmountToMatch = big.NewInt(0)
	}
	if clone.AmountToMatch.Sign() < 0 {
		return nil, fmt.Errorf("judge stake must be non-negative")
	}
	if clone.User1 == ([20]byte{}) && clone.User2 != ([20]byte{}) {
		return nil, fmt.Errorf("judge: second slot filled before first")
	}
	return clone, nil
}
