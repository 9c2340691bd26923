package rpc

import (
	"encoding/hex"
	"fmt"
	"strings"

	"escrowd/crypto"
	"escrowd/native/common"
)

// signatureAuthorizer proves identity through a recoverable secp256k1
// signature over the canonical request payload: the invocation is attributed
// to whichever address produced the signature.
type signatureAuthorizer struct {
	payload []byte
	sig     []byte
}

func (a signatureAuthorizer) Require(identity [20]byte) error {
	recovered, err := crypto.RecoverAddress(a.payload, a.sig)
	if err != nil {
		return err
	}
	if recovered.Bytes() != identity {
		return common.ErrIdentityMismatch
	}
	return nil
}

// authorizerFor builds the per-invocation identity proof. When the request
// carries a signature it is verified against the canonical payload;
// otherwise attribution falls back to the bearer-authenticated caller field.
func authorizerFor(sigHex string, payload []byte, caller [20]byte) (common.Authorizer, error) {
	trimmed := strings.TrimSpace(sigHex)
	if trimmed == "" {
		return common.NewCallerAuthorizer(caller), nil
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(trimmed, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	return signatureAuthorizer{payload: payload, sig: sig}, nil
}

// signingPayload is the canonical byte string callers sign for a mutating
// escrow operation.
func signingPayload(method string, orderID uint32) []byte {
	return []byte(fmt.Sprintf("%s|%d", method, orderID))
}
