package rpc

import (
	"net/http"

	"escrowd/crypto"
)

type platformInitParams struct {
	Admin     string `json:"admin"`
	Wallet    string `json:"wallet"`
	FeeBps    uint32 `json:"feeBps"`
	Signature string `json:"signature,omitempty"`
}

type platformFeeParams struct {
	Caller    string `json:"caller"`
	FeeBps    uint32 `json:"feeBps"`
	Signature string `json:"signature,omitempty"`
}

type platformWalletParams struct {
	Caller    string `json:"caller"`
	Wallet    string `json:"wallet"`
	Signature string `json:"signature,omitempty"`
}

func (s *Server) handlePlatformInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params platformInitParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	admin, err := parseAddress(params.Admin)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	wallet, err := parseAddress(params.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	auth, err := authorizerFor(params.Signature, signingPayload("platform_initialize", 0), admin)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	err = s.platform.Initialize(auth, wallet, admin, params.FeeBps)
	s.mu.Unlock()
	s.metrics.ObserveOperation("platform_initialize", err)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	s.log.Info("platform config initialized", "feeBps", params.FeeBps, "wallet", params.Wallet)
	writeResult(w, req.ID, map[string]string{"status": "initialized"})
}

func (s *Server) handlePlatformUpdateFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params platformFeeParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	auth, err := authorizerFor(params.Signature, signingPayload("platform_updateFee", 0), caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	err = s.platform.UpdateFee(auth, params.FeeBps)
	s.mu.Unlock()
	s.metrics.ObserveOperation("platform_updateFee", err)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	s.log.Info("platform fee updated", "feeBps", params.FeeBps)
	writeResult(w, req.ID, map[string]uint32{"feeBps": params.FeeBps})
}

func (s *Server) handlePlatformUpdateWallet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params platformWalletParams
	if err := decodeSingleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	wallet, err := parseAddress(params.Wallet)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	auth, err := authorizerFor(params.Signature, signingPayload("platform_updateWallet", 0), caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	err = s.platform.UpdateWallet(auth, wallet)
	s.mu.Unlock()
	s.metrics.ObserveOperation("platform_updateWallet", err)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	s.log.Info("platform wallet updated", "wallet", params.Wallet)
	writeResult(w, req.ID, map[string]string{"wallet": params.Wallet})
}

func (s *Server) handlePlatformGetFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	feeBps, err := s.platform.Fee()
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint32{"feeBps": feeBps})
}

func (s *Server) handlePlatformGetWallet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	wallet, err := s.platform.Wallet()
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"wallet": crypto.NewAddress(wallet).String()})
}

func (s *Server) handlePlatformGetTotalFees(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	total, err := s.platform.TotalFees()
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalFees": total.String()})
}
