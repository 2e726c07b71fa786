package judge

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"judged/core/events"
	"judged/core/types"
)

var (
	errNilState     = errors.New("judge engine: state not configured")
	errNilActivator = errors.New("judge engine: resolver activator not configured")
)

// DefaultCollateralBps is the collateral skimmed from the counterparty's
// payout on cooperative release: 100 basis points (1%).
const DefaultCollateralBps uint32 = 100

type engineState interface {
	JudgePut(*Judge) error
	JudgeGet(id [32]byte) (*Judge, bool)
	JudgeCredit(id [32]byte, amt *big.Int) error
	JudgeDebit(id [32]byte, amt *big.Int) error
	JudgeBalance(id [32]byte) (*big.Int, error)
	JudgeVaultAddress() ([20]byte, error)
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

type judgeEvent struct {
	evt *types.Event
}

func (e judgeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e judgeEvent) Event() *types.Event { return e.evt }

// Engine orchestrates the judge state machine: commitment comparison,
// cooperative release and reveal-triggered settlement, with the state
// backend, event emitter and resolver activator supplied from outside. One
// engine can host any number of independent judge instances keyed by ID;
// each public operation runs as a single serialized unit against the backing
// state.
type Engine struct {
	state         engineState
	emitter       events.Emitter
	activator     Activator
	collateralBps uint32
	nowFn         func() int64
}

// NewEngine creates a judge engine with a no-op emitter and the default
// collateral percentage. Callers must supply state and an activator before
// use.
func NewEngine() *Engine {
	return &Engine{
		emitter:       events.NoopEmitter{},
		collateralBps: DefaultCollateralBps,
		nowFn:         func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetActivator configures the resolver executor used during reveal.
func (e *Engine) SetActivator(a Activator) { e.activator = a }

// SetCollateralBps overrides the collateral percentage, in basis points,
// applied on cooperative release. Values above 10_000 are rejected.
func (e *Engine) SetCollateralBps(bps uint32) error {
	if bps > 10_000 {
		return fmt.Errorf("judge engine: collateral bps out of range: %d", bps)
	}
	e.collateralBps = bps
	return nil
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(judgeEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadJudge(id [32]byte) (*Judge, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	j, ok := e.state.JudgeGet(id)
	if !ok {
		return nil, ErrJudgeNotFound
	}
	return j, nil
}

func (e *Engine) storeJudge(j *Judge) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.JudgePut(j)
}

// transfer moves amount between two accounts. The debit side is checked
// before any mutation so a failed transfer leaves both accounts untouched.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return fmt.Errorf("judge: negative transfer amount")
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	fromAcc = fromAcc.EnsureDefaults()
	toAcc = toAcc.EnsureDefaults()
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientBalance
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	if err := e.state.PutAccount(to[:], toAcc); err != nil {
		return err
	}
	return nil
}

// Get returns a copy of the stored judge record.
func (e *Engine) Get(id [32]byte) (*Judge, error) {
	j, err := e.loadJudge(id)
	if err != nil {
		return nil, err
	}
	return j.Clone(), nil
}

// Balance returns the escrowed balance currently held for the instance.
func (e *Engine) Balance(id [32]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.JudgeBalance(id)
}

// Deposit stakes funds into the escrow. The first deposit creates the
// instance implicitly, registers the sender as user1 and fixes the amount to
// match; the second must come from a different sender and match exactly.
// Once both slots are filled every further deposit is rejected.
func (e *Engine) Deposit(id [32]byte, from [20]byte, amount *big.Int) (*Judge, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	j, ok := e.state.JudgeGet(id)
	if !ok {
		j = &Judge{ID: id, AmountToMatch: big.NewInt(0), CreatedAt: e.now()}
	}
	if j.Armed() {
		return nil, ErrAlreadyFunded
	}
	vault, err := e.state.JudgeVaultAddress()
	if err != nil {
		return nil, err
	}
	second := j.User1 != ([20]byte{})
	if second {
		if from == j.User1 {
			return nil, ErrSelfMatch
		}
		if amt.Cmp(j.AmountToMatch) != 0 {
			return nil, ErrAmountMismatch
		}
	}
	if err := e.transfer(from, vault, amt); err != nil {
		return nil, err
	}
	if err := e.state.JudgeCredit(id, amt); err != nil {
		return nil, &FatalError{Op: "deposit credit", Err: err}
	}
	if second {
		j.User2 = from
		// Internal consistency check, not a user error: the held balance
		// must equal exactly twice the matched stake.
		balance, err := e.state.JudgeBalance(id)
		if err != nil {
			return nil, &FatalError{Op: "deposit balance read", Err: err}
		}
		expected := new(big.Int).Mul(j.AmountToMatch, big.NewInt(2))
		if balance.Cmp(expected) != 0 {
			return nil, &FatalError{Op: "deposit", Err: fmt.Errorf("balance %s != 2x stake %s", balance, j.AmountToMatch)}
		}
	} else {
		j.User1 = from
		j.AmountToMatch = amt
	}
	if err := e.storeJudge(j); err != nil {
		return nil, &FatalError{Op: "deposit store", Err: err}
	}
	e.emit(NewDepositObservedEvent(j, from, amt))
	return j.Clone(), nil
}

// Reveal discloses the committed resolver payload and settles the escrow.
// The signature must recover to one of the two participants and the payload
// must hash to the committed digest; only then is the payload activated and
// the full balance forwarded to the resolver. Activation failure aborts with
// state unchanged. A transfer failure after activation is fatal: better to
// freeze than to misallocate.
func (e *Engine) Reveal(id [32]byte, caller [20]byte, digest [32]byte, sig, payload []byte) (*Judge, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.activator == nil {
		return nil, errNilActivator
	}
	j, err := e.loadJudge(id)
	if err != nil {
		return nil, err
	}
	if j.Finalized {
		return nil, ErrFinalized
	}
	if !j.Armed() {
		return nil, ErrNotArmed
	}
	if !j.IsParticipant(caller) {
		return nil, ErrNotParticipant
	}
	if _, err := VerifyCommitment(digest, sig, payload, j.User1, j.User2); err != nil {
		return nil, err
	}
	balance, err := e.state.JudgeBalance(id)
	if err != nil {
		return nil, &FatalError{Op: "reveal balance read", Err: err}
	}
	if balance.Sign() <= 0 {
		return nil, &FatalError{Op: "reveal", Err: fmt.Errorf("armed instance holds no balance")}
	}
	resolver, err := e.activator.Activate(id, payload)
	if err != nil {
		return nil, &ActivationError{Err: err}
	}
	vault, err := e.state.JudgeVaultAddress()
	if err != nil {
		return nil, &FatalError{Op: "reveal vault", Err: err}
	}
	if err := e.transfer(vault, resolver, balance); err != nil {
		return nil, &FatalError{Op: "reveal settlement transfer", Err: err}
	}
	if err := e.state.JudgeDebit(id, balance); err != nil {
		return nil, &FatalError{Op: "reveal debit", Err: err}
	}
	j.Finalized = true
	if err := e.storeJudge(j); err != nil {
		return nil, &FatalError{Op: "reveal store", Err: err}
	}
	e.emit(NewSettledEvent(j, balance, resolver))
	return j.Clone(), nil
}

// Release settles the escrow cooperatively. The counterparty is paid the
// balance minus the collateral percentage first; the caller then receives
// whatever remains after that transfer has already left the escrow. The
// second payout base is deliberately read after the first transfer, so the
// caller's share equals exactly the skimmed collateral.
func (e *Engine) Release(id [32]byte, caller [20]byte) (*Judge, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	j, err := e.loadJudge(id)
	if err != nil {
		return nil, err
	}
	if j.Finalized {
		return nil, ErrFinalized
	}
	if !j.Armed() {
		return nil, ErrNotArmed
	}
	if !j.IsParticipant(caller) {
		return nil, ErrNotParticipant
	}
	counterparty, ok := j.Counterparty(caller)
	if !ok {
		return nil, ErrNotParticipant
	}
	vault, err := e.state.JudgeVaultAddress()
	if err != nil {
		return nil, err
	}
	balance, err := e.state.JudgeBalance(id)
	if err != nil {
		return nil, &FatalError{Op: "release balance read", Err: err}
	}
	if balance.Sign() <= 0 {
		return nil, &FatalError{Op: "release", Err: fmt.Errorf("armed instance holds no balance")}
	}
	collateral := new(big.Int).Mul(balance, new(big.Int).SetUint64(uint64(e.collateralBps)))
	collateral.Div(collateral, big.NewInt(10_000))
	counterpartyPayout := new(big.Int).Sub(balance, collateral)
	if err := e.transfer(vault, counterparty, counterpartyPayout); err != nil {
		return nil, &FatalError{Op: "release counterparty transfer", Err: err}
	}
	// Remaining balance after the first payout already left the escrow.
	callerPayout := new(big.Int).Sub(balance, counterpartyPayout)
	if err := e.transfer(vault, caller, callerPayout); err != nil {
		return nil, &FatalError{Op: "release caller transfer", Err: err}
	}
	if err := e.state.JudgeDebit(id, balance); err != nil {
		return nil, &FatalError{Op: "release debit", Err: err}
	}
	j.Finalized = true
	if err := e.storeJudge(j); err != nil {
		return nil, &FatalError{Op: "release store", Err: err}
	}
	e.emit(NewReleasedEvent(j, caller, counterpartyPayout, callerPayout))
	return j.Clone(), nil
}

// Reset clears the participant slots and stake of a finalized instance so it
// can host an unrelated future escrow. The finalized flag itself is not
// cleared, matching the source contract.
func (e *Engine) Reset(id [32]byte) (*Judge, error) {
	j, err := e.loadJudge(id)
	if err != nil {
		return nil, err
	}
	if !j.Finalized {
		return nil, ErrNotFinalized
	}
	j.User1 = [20]byte{}
	j.User2 = [20]byte{}
	j.AmountToMatch = big.NewInt(0)
	if err := e.storeJudge(j); err != nil {
		return nil, &FatalError{Op: "reset store", Err: err}
	}
	e.emit(NewResetEvent(j))
	return j.Clone(), nil
}
