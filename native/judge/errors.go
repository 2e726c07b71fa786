package judge

import (
	"errors"
	"fmt"
)

// Rejections: precondition violations reported synchronously to the caller.
// Every rejection leaves engine state untouched.
var (
	ErrJudgeNotFound       = errors.New("judge: instance not found")
	ErrAlreadyFunded       = errors.New("judge: both stakes already deposited")
	ErrZeroAmount          = errors.New("judge: deposit amount must be positive")
	ErrAmountMismatch      = errors.New("judge: deposit does not match first stake")
	ErrSelfMatch           = errors.New("judge: depositor cannot match their own stake")
	ErrInsufficientBalance = errors.New("judge: insufficient account balance")
	ErrNotParticipant      = errors.New("judge: caller is not a registered participant")
	ErrNotArmed            = errors.New("judge: both stakes must be present")
	ErrFinalized           = errors.New("judge: instance already finalized")
	ErrNotFinalized        = errors.New("judge: instance not finalized")
	ErrInvalidSignature    = errors.New("judge: signature does not recover to a participant")
	ErrCommitmentMismatch  = errors.New("judge: payload hash does not match committed digest")
)

// ActivationError reports that the resolver executor refused the revealed
// payload. The reveal aborts with no state change; the caller may retry with
// a corrected payload.
type ActivationError struct {
	Err error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("judge: resolver activation failed: %v", e.Err)
}

func (e *ActivationError) Unwrap() error { return e.Err }

// FatalError marks an internal invariant violation or a failed settlement
// transfer after the commitment was already verified. These are not retried
// and are never mapped to a caller mistake.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("judge: fatal during %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err carries a FatalError anywhere in its chain.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
