package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"escrowd/crypto"
	"escrowd/native/escrow"
	"escrowd/native/platform"
)

type escrowCreateParams struct {
	Buyer         string  `json:"buyer"`
	Seller        string  `json:"seller"`
	Asset         string  `json:"asset"`
	Amount        string  `json:"amount"`
	OrderID       uint32  `json:"orderId"`
	ReleaseWindow *uint64 `json:"releaseWindow,omitempty"`
	Signature     string  `json:"signature,omitempty"`
}

type escrowActorParams struct {
	OrderID   uint32 `json:"orderId"`
	Caller    string `json:"caller"`
	Signature string `json:"signature,omitempty"`
}

type escrowOrderParams struct {
	OrderID uint32 `json:"orderId"`
}

type escrowQuoteParams struct {
	Amount string `json:"amount"`
}

type escrowJSON struct {
	OrderID       uint32 `json:"orderId"`
	Buyer         string `json:"buyer"`
	Seller        string `json:"seller"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	CreatedAt     int64  `json:"createdAt"`
	ReleaseWindow uint64 `json:"releaseWindow"`
}

type escrowQuoteJSON struct {
	Gross string `json:"gross"`
	Fee   string `json:"fee"`
	Net   string `json:"net"`
}

func marshalEscrow(e *escrow.Escrow) escrowJSON {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return escrowJSON{
		OrderID:       e.OrderID,
		Buyer:         crypto.NewAddress(e.Buyer).String(),
		Seller:        crypto.NewAddress(e.Seller).String(),
		Asset:         e.Asset,
		Amount:        amount,
		Status:        e.Status.String(),
		CreatedAt:     e.CreatedAt,
		ReleaseWindow: e.ReleaseWindow,
	}
}

func parseAddress(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Bytes(), nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func decodeSingleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

// writeEscrowError maps the engine error taxonomy onto JSON-RPC error codes.
func writeEscrowError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, escrow.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeEscrowNotFound, "not_found", err.Error())
	case errors.Is(err, escrow.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeEscrowForbidden, "not_authorized", err.Error())
	case errors.Is(err, escrow.ErrAlreadyProcessed), errors.Is(err, escrow.ErrOrderExists), errors.Is(err, escrow.ErrWindowNotElapsed):
		writeError(w, http.StatusConflict, id, codeEscrowConflict, "conflict", err.Error())
	case errors.Is(err, escrow.ErrInvalidAmount), errors.Is(err, escrow.ErrSameParty):
		writeError(w, http.StatusBadRequest, id, codeEscrowInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, platform.ErrFeeTooHigh):
		writeError(w, http.StatusBadRequest, id, codeEscrowInvalidParams, "fee_too_high", err.Error())
	case errors.Is(err, platform.ErrNotInitialized):
		writeError(w, http.StatusServiceUnavailable, id, codeEscrowNotReady, "not_initialized", err.Error())
	case errors.Is(err, platform.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeEscrowForbidden, "not_authorized", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeEscrowInternal, "internal_error", err.Error())
	}
}

func (s *Server) handleEscrowCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowCreateParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	auth, err := authorizerFor(params.Signature, signingPayload("escrow_create", params.OrderID), buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	created, err := s.engine.Create(auth, buyer, seller, params.Asset, amount, params.OrderID, params.ReleaseWindow)
	s.mu.Unlock()
	s.metrics.ObserveOperation("create", err)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	s.log.Info("escrow created", "orderId", created.OrderID, "amount", created.Amount.String(), "asset", created.Asset)
	writeResult(w, req.ID, marshalEscrow(created))
}

func (s *Server) handleEscrowRelease(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	auth, err := authorizerFor(params.Signature, signingPayload("escrow_release", params.OrderID), caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	err = s.engine.Release(auth, params.OrderID)
	s.mu.Unlock()
	s.metrics.ObserveOperation("release", err)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	s.metrics.ObserveSettlement("release")
	s.log.Info("escrow released", "orderId", params.OrderID)
	writeResult(w, req.ID, map[string]string{"status": "released"})
}

func (s *Server) handleEscrowAutoRelease(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	// Time-gated release is intentionally open: any relayer may finalize a
	// stalled settlement once the window has elapsed.
	var params escrowOrderParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	err := s.engine.AutoRelease(params.OrderID)
	s.mu.Unlock()
	s.metrics.ObserveOperation("auto_release", err)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	s.metrics.ObserveSettlement("auto_release")
	s.log.Info("escrow auto-released", "orderId", params.OrderID)
	writeResult(w, req.ID, map[string]string{"status": "released"})
}

func (s *Server) handleEscrowRefund(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowActorParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	claimant, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	auth, err := authorizerFor(params.Signature, signingPayload("escrow_refund", params.OrderID), claimant)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	err = s.engine.Refund(auth, params.OrderID, claimant)
	s.mu.Unlock()
	s.metrics.ObserveOperation("refund", err)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	s.metrics.ObserveSettlement("refund")
	s.log.Info("escrow refunded", "orderId", params.OrderID)
	writeResult(w, req.ID, map[string]string{"status": "refunded"})
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowOrderParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.engine.Get(params.OrderID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, marshalEscrow(record))
}

func (s *Server) handleEscrowCanAutoRelease(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowOrderParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]bool{"eligible": s.engine.CanAutoRelease(params.OrderID)})
}

func (s *Server) handleEscrowQuote(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowQuoteParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	quote, err := s.engine.Quote(amount)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowQuoteJSON{
		Gross: quote.Gross.String(),
		Fee:   quote.Fee.String(),
		Net:   quote.Net.String(),
	})
}
