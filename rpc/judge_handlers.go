package rpc

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"judged/crypto"
	"judged/native/judge"
	"judged/observability/metrics"
)

const (
	codeJudgeInvalidParams = -32021
	codeJudgeNotFound      = -32022
	codeJudgeForbidden     = -32023
	codeJudgeConflict      = -32024
	codeJudgeInternal      = -32025
)

type judgeDepositParams struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type judgeRevealParams struct {
	ID        string `json:"id"`
	Caller    string `json:"caller"`
	Digest    string `json:"digest"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

type judgeActorParams struct {
	ID     string `json:"id"`
	Caller string `json:"caller"`
}

type judgeIDParams struct {
	ID string `json:"id"`
}

type judgeEventsParams struct {
	Prefix string `json:"prefix,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type judgeJSON struct {
	ID            string  `json:"id"`
	User1         *string `json:"user1,omitempty"`
	User2         *string `json:"user2,omitempty"`
	AmountToMatch string  `json:"amountToMatch"`
	Balance       string  `json:"balance"`
	Finalized     bool    `json:"finalized"`
	CreatedAt     int64   `json:"createdAt"`
}

type judgeBalanceResult struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
}

func (s *Server) judgeView(j *judge.Judge) judgeJSON {
	out := judgeJSON{
		ID:            hex.EncodeToString(j.ID[:]),
		AmountToMatch: "0",
		Finalized:     j.Finalized,
		CreatedAt:     j.CreatedAt,
	}
	if j.AmountToMatch != nil {
		out.AmountToMatch = j.AmountToMatch.String()
	}
	if j.User1 != ([20]byte{}) {
		encoded := crypto.NewAddress(crypto.JudgePrefix, j.User1[:]).String()
		out.User1 = &encoded
	}
	if j.User2 != ([20]byte{}) {
		encoded := crypto.NewAddress(crypto.JudgePrefix, j.User2[:]).String()
		out.User2 = &encoded
	}
	if balance, err := s.engine.Balance(j.ID); err == nil {
		out.Balance = balance.String()
	} else {
		out.Balance = "0"
	}
	return out
}

func parseJudgeID(raw string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, fmt.Errorf("id must be hex: %w", err)
	}
	if len(decoded) != 32 {
		return id, fmt.Errorf("id must be 32 bytes, got %d", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

func parseDigest(raw string) ([32]byte, error) {
	var digest [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return digest, fmt.Errorf("digest must be hex: %w", err)
	}
	if len(decoded) != 32 {
		return digest, fmt.Errorf("digest must be 32 bytes, got %d", len(decoded))
	}
	copy(digest[:], decoded)
	return digest, nil
}

func parseHexBytes(field, raw string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("%s required", field)
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s must be hex: %w", field, err)
	}
	return decoded, nil
}

func parseBech32Address(raw string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func parsePositiveBigInt(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

// judgeErrorStatus maps engine errors onto HTTP status and JSON-RPC error
// codes. Fatal halts are classified before the sentinel cases: a FatalError
// unwraps to the sentinel that triggered it, and a halt must never be
// reported as a recoverable rejection.
func judgeErrorStatus(err error) (int, int, string) {
	if judge.IsFatal(err) {
		return http.StatusInternalServerError, codeJudgeInternal, "internal"
	}
	switch {
	case errors.Is(err, judge.ErrJudgeNotFound):
		return http.StatusNotFound, codeJudgeNotFound, "not_found"
	case errors.Is(err, judge.ErrNotParticipant),
		errors.Is(err, judge.ErrInvalidSignature):
		return http.StatusForbidden, codeJudgeForbidden, "forbidden"
	case errors.Is(err, judge.ErrAlreadyFunded),
		errors.Is(err, judge.ErrZeroAmount),
		errors.Is(err, judge.ErrAmountMismatch),
		errors.Is(err, judge.ErrSelfMatch),
		errors.Is(err, judge.ErrInsufficientBalance),
		errors.Is(err, judge.ErrNotArmed),
		errors.Is(err, judge.ErrFinalized),
		errors.Is(err, judge.ErrNotFinalized),
		errors.Is(err, judge.ErrCommitmentMismatch):
		return http.StatusConflict, codeJudgeConflict, "conflict"
	default:
		var activation *judge.ActivationError
		if errors.As(err, &activation) {
			return http.StatusConflict, codeJudgeConflict, "activation_failed"
		}
		return http.StatusInternalServerError, codeJudgeInternal, "internal"
	}
}

func recordOutcome(op string, err error) {
	reg := metrics.Judge()
	switch {
	case err == nil:
		reg.Operations.WithLabelValues(op, "ok").Inc()
	case judge.IsFatal(err):
		reg.Operations.WithLabelValues(op, "fatal").Inc()
		reg.Fatals.Inc()
	default:
		reg.Operations.WithLabelValues(op, "rejected").Inc()
	}
}

func (s *Server) writeJudgeError(w http.ResponseWriter, id interface{}, err error) {
	status, code, label := judgeErrorStatus(err)
	if judge.IsFatal(err) {
		s.logger.Error("judge operation halted", "err", err)
	}
	writeError(w, status, id, code, label, err.Error())
}

func (s *Server) handleJudgeDeposit(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params judgeDepositParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseJudgeID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseBech32Address(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	s.mu.Lock()
	j, err := s.engine.Deposit(id, from, amount)
	s.mu.Unlock()
	recordOutcome("deposit", err)
	if err != nil {
		s.writeJudgeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.judgeView(j))
}

func (s *Server) handleJudgeReveal(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params judgeRevealParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseJudgeID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	digest, err := parseDigest(params.Digest)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	sig, err := parseHexBytes("signature", params.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	payload, err := parseHexBytes("payload", params.Payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	s.mu.Lock()
	j, err := s.engine.Reveal(id, caller, digest, sig, payload)
	s.mu.Unlock()
	recordOutcome("reveal", err)
	if err != nil {
		s.writeJudgeError(w, req.ID, err)
		return
	}
	metrics.Judge().Settlements.Inc()
	writeResult(w, req.ID, s.judgeView(j))
}

func (s *Server) handleJudgeRelease(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params judgeActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseJudgeID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseBech32Address(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	s.mu.Lock()
	j, err := s.engine.Release(id, caller)
	s.mu.Unlock()
	recordOutcome("release", err)
	if err != nil {
		s.writeJudgeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.judgeView(j))
}

func (s *Server) handleJudgeReset(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params judgeIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseJudgeID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	s.mu.Lock()
	j, err := s.engine.Reset(id)
	s.mu.Unlock()
	recordOutcome("reset", err)
	if err != nil {
		s.writeJudgeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.judgeView(j))
}

func (s *Server) handleJudgeGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params judgeIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseJudgeID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	j, err := s.engine.Get(id)
	if err != nil {
		s.writeJudgeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, s.judgeView(j))
}

func (s *Server) handleJudgeBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params judgeIDParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseJudgeID(params.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
		return
	}
	balance, err := s.engine.Balance(id)
	if err != nil {
		s.writeJudgeError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, judgeBalanceResult{ID: hex.EncodeToString(id[:]), Balance: balance.String()})
}

func (s *Server) handleJudgeEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	params := judgeEventsParams{}
	if len(req.Params) > 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", "at most one parameter object expected")
		return
	}
	if len(req.Params) == 1 {
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeJudgeInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	if s.feed == nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeJudgeInternal, "internal", "event feed not configured")
		return
	}
	writeResult(w, req.ID, s.feed.List(params.Prefix, params.Limit))
}
