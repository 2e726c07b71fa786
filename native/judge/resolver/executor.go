package resolver

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"judged/core/types"
)

var (
	errNilState     = errors.New("resolver executor: state not configured")
	errEmptyCode    = errors.New("resolver executor: empty payload")
	errCodeOversize = errors.New("resolver executor: payload exceeds size limit")
)

// MaxPayloadBytes bounds the size of a revealed resolver payload.
const MaxPayloadBytes = 1 << 16

type accountState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Executor installs revealed resolver payloads as code-bearing accounts. The
// resolver address is derived deterministically from the judge instance and
// the payload digest, so re-activating the same payload for the same
// instance is rejected rather than silently overwritten.
type Executor struct {
	state accountState
}

// NewExecutor creates an executor over the given account state.
func NewExecutor(state accountState) *Executor {
	return &Executor{state: state}
}

// ResolverAddress derives the account address that will host the activated
// payload: the trailing 20 bytes of keccak256(judgeID || keccak256(payload)).
func ResolverAddress(judgeID [32]byte, payload []byte) [20]byte {
	codeHash := ethcrypto.Keccak256Hash(payload)
	full := ethcrypto.Keccak256Hash(judgeID[:], codeHash[:])
	var addr [20]byte
	copy(addr[:], full[12:])
	return addr
}

// Activate validates and installs the payload, returning the resolver
// account address that should receive the escrowed balance. Activation
// performs its checks before the account write, so a failure leaves state
// untouched.
func (x *Executor) Activate(judgeID [32]byte, payload []byte) ([20]byte, error) {
	if x == nil || x.state == nil {
		return [20]byte{}, errNilState
	}
	if len(payload) == 0 {
		return [20]byte{}, errEmptyCode
	}
	if len(payload) > MaxPayloadBytes {
		return [20]byte{}, errCodeOversize
	}
	addr := ResolverAddress(judgeID, payload)
	acc, err := x.state.GetAccount(addr[:])
	if err != nil {
		return [20]byte{}, err
	}
	acc = acc.EnsureDefaults()
	if len(acc.CodeHash) != 0 {
		return [20]byte{}, fmt.Errorf("resolver executor: account %x already holds code", addr)
	}
	codeHash := ethcrypto.Keccak256Hash(payload)
	acc.CodeHash = codeHash[:]
	if err := x.state.PutAccount(addr[:], acc); err != nil {
		return [20]byte{}, err
	}
	return addr, nil
}
