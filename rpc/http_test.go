package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"escrowd/core/state"
	"escrowd/crypto"
	"escrowd/native/common"
	"escrowd/native/escrow"
	"escrowd/native/platform"
	"escrowd/storage"
)

const testToken = "rpc-test-token"

type rpcHarness struct {
	server  *Server
	state   *state.Manager
	clock   int64
	buyer   [20]byte
	seller  [20]byte
	admin   [20]byte
	wallet  [20]byte
	custody [20]byte
}

func newRPCHarness(t *testing.T) *rpcHarness {
	t.Helper()

	st := state.NewManager(storage.NewMemDB())
	pm := platform.NewManager(st)
	eng := escrow.NewEngine()
	eng.SetState(st)
	eng.SetLedger(st)
	eng.SetPlatform(pm)

	h := &rpcHarness{
		state:  st,
		clock:  1_700_000_000,
		buyer:  addr(0x01),
		seller: addr(0x02),
		admin:  addr(0x0A),
		wallet: addr(0x0B),
	}
	eng.SetNowFunc(func() int64 { return h.clock })

	require.NoError(t, pm.Initialize(common.NewCallerAuthorizer(h.admin), h.wallet, h.admin, 250))
	require.NoError(t, st.SetBalance(h.buyer, "USDC", big.NewInt(1_000_000)))
	custody, err := st.CustodyAddress("USDC")
	require.NoError(t, err)
	h.custody = custody

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.server = NewServer(eng, pm, logger)
	h.server.SetAuthToken(testToken)
	return h
}

func addr(tag byte) [20]byte {
	var a [20]byte
	for i := range a {
		a[i] = tag
	}
	return a
}

func bech(a [20]byte) string {
	return crypto.NewAddress(a).String()
}

func (h *rpcHarness) call(t *testing.T, token, method string, params interface{}) (*httptest.ResponseRecorder, RPCResponse) {
	t.Helper()
	var rawParams []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		require.NoError(t, err)
		rawParams = []json.RawMessage{encoded}
	}
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: method, Params: rawParams, ID: 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func (h *rpcHarness) create(t *testing.T, orderID uint32, amount string) {
	t.Helper()
	rec, resp := h.call(t, testToken, "escrow_create", escrowCreateParams{
		Buyer:   bech(h.buyer),
		Seller:  bech(h.seller),
		Asset:   "usdc",
		Amount:  amount,
		OrderID: orderID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)
}

func (h *rpcHarness) balance(t *testing.T, a [20]byte) int64 {
	t.Helper()
	bal, err := h.state.Balance(a, "USDC")
	require.NoError(t, err)
	return bal.Int64()
}

func TestRPCRejectsMissingToken(t *testing.T) {
	h := newRPCHarness(t)
	rec, resp := h.call(t, "", "escrow_create", escrowCreateParams{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestRPCRejectsWrongToken(t *testing.T) {
	h := newRPCHarness(t)
	rec, resp := h.call(t, "not-the-token", "escrow_release", escrowActorParams{OrderID: 1, Caller: bech(h.buyer)})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestRPCCreateAndGet(t *testing.T) {
	h := newRPCHarness(t)
	h.create(t, 7, "1000")

	_, resp := h.call(t, "", "escrow_get", escrowOrderParams{OrderID: 7})
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var record escrowJSON
	require.NoError(t, json.Unmarshal(raw, &record))

	require.Equal(t, uint32(7), record.OrderID)
	require.Equal(t, bech(h.buyer), record.Buyer)
	require.Equal(t, bech(h.seller), record.Seller)
	require.Equal(t, "USDC", record.Asset)
	require.Equal(t, "1000", record.Amount)
	require.Equal(t, "pending", record.Status)
	require.Equal(t, uint64(escrow.DefaultReleaseWindow), record.ReleaseWindow)

	require.Equal(t, int64(999_000), h.balance(t, h.buyer))
	require.Equal(t, int64(1000), h.balance(t, h.custody))
}

func TestRPCGetUnknownOrder(t *testing.T) {
	h := newRPCHarness(t)
	rec, resp := h.call(t, "", "escrow_get", escrowOrderParams{OrderID: 99})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeEscrowNotFound, resp.Error.Code)
}

func TestRPCCreateValidation(t *testing.T) {
	h := newRPCHarness(t)
	cases := []struct {
		name   string
		params escrowCreateParams
	}{
		{"zero amount", escrowCreateParams{Buyer: bech(h.buyer), Seller: bech(h.seller), Asset: "usdc", Amount: "0", OrderID: 1}},
		{"negative amount", escrowCreateParams{Buyer: bech(h.buyer), Seller: bech(h.seller), Asset: "usdc", Amount: "-5", OrderID: 1}},
		{"garbage amount", escrowCreateParams{Buyer: bech(h.buyer), Seller: bech(h.seller), Asset: "usdc", Amount: "ten", OrderID: 1}},
		{"same party", escrowCreateParams{Buyer: bech(h.buyer), Seller: bech(h.buyer), Asset: "usdc", Amount: "100", OrderID: 1}},
		{"bad buyer address", escrowCreateParams{Buyer: "nonsense", Seller: bech(h.seller), Asset: "usdc", Amount: "100", OrderID: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := h.call(t, testToken, "escrow_create", tc.params)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, codeEscrowInvalidParams, resp.Error.Code)
		})
	}
}

func TestRPCCreateDuplicateOrder(t *testing.T) {
	h := newRPCHarness(t)
	h.create(t, 3, "100")
	rec, resp := h.call(t, testToken, "escrow_create", escrowCreateParams{
		Buyer: bech(h.buyer), Seller: bech(h.seller), Asset: "usdc", Amount: "100", OrderID: 3,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, codeEscrowConflict, resp.Error.Code)
}

func TestRPCReleaseFlow(t *testing.T) {
	h := newRPCHarness(t)
	h.create(t, 1, "1000")

	rec, resp := h.call(t, testToken, "escrow_release", escrowActorParams{OrderID: 1, Caller: bech(h.buyer)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)

	// 250 bps of 1000 is 25 for the platform, 975 for the seller.
	require.Equal(t, int64(975), h.balance(t, h.seller))
	require.Equal(t, int64(25), h.balance(t, h.wallet))
	require.Equal(t, int64(0), h.balance(t, h.custody))

	_, totals := h.call(t, "", "platform_getTotalFees", nil)
	require.Nil(t, totals.Error)
	raw, err := json.Marshal(totals.Result)
	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Equal(t, "25", out["totalFees"])

	rec, resp = h.call(t, testToken, "escrow_release", escrowActorParams{OrderID: 1, Caller: bech(h.buyer)})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, codeEscrowConflict, resp.Error.Code)
}

func TestRPCReleaseBySellerForbidden(t *testing.T) {
	h := newRPCHarness(t)
	h.create(t, 1, "1000")
	rec, resp := h.call(t, testToken, "escrow_release", escrowActorParams{OrderID: 1, Caller: bech(h.seller)})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, codeEscrowForbidden, resp.Error.Code)
}

func TestRPCReleaseWithSignature(t *testing.T) {
	h := newRPCHarness(t)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	buyer := key.PubKey().Address().Bytes()
	require.NoError(t, h.state.SetBalance(buyer, "USDC", big.NewInt(1000)))

	_, resp := h.call(t, testToken, "escrow_create", escrowCreateParams{
		Buyer: bech(buyer), Seller: bech(h.seller), Asset: "usdc", Amount: "1000", OrderID: 5,
	})
	require.Nil(t, resp.Error)

	sig, err := key.Sign(signingPayload("escrow_release", 5))
	require.NoError(t, err)
	rec, resp := h.call(t, testToken, "escrow_release", escrowActorParams{
		OrderID:   5,
		Caller:    bech(buyer),
		Signature: hex.EncodeToString(sig),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)
}

func TestRPCReleaseWithForeignSignature(t *testing.T) {
	h := newRPCHarness(t)
	h.create(t, 5, "1000")

	stranger, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	sig, err := stranger.Sign(signingPayload("escrow_release", 5))
	require.NoError(t, err)

	rec, resp := h.call(t, testToken, "escrow_release", escrowActorParams{
		OrderID:   5,
		Caller:    bech(h.buyer),
		Signature: hex.EncodeToString(sig),
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, codeEscrowForbidden, resp.Error.Code)
}

func TestRPCAutoRelease(t *testing.T) {
	h := newRPCHarness(t)
	h.create(t, 1, "1000")

	_, eligible := h.call(t, "", "escrow_canAutoRelease", escrowOrderParams{OrderID: 1})
	require.Nil(t, eligible.Error)
	require.Equal(t, map[string]interface{}{"eligible": false}, eligible.Result)

	rec, resp := h.call(t, "", "escrow_autoRelease", escrowOrderParams{OrderID: 1})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, codeEscrowConflict, resp.Error.Code)

	h.clock += int64(escrow.DefaultReleaseWindow)

	_, eligible = h.call(t, "", "escrow_canAutoRelease", escrowOrderParams{OrderID: 1})
	require.Equal(t, map[string]interface{}{"eligible": true}, eligible.Result)

	rec, resp = h.call(t, "", "escrow_autoRelease", escrowOrderParams{OrderID: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)
	require.Equal(t, int64(975), h.balance(t, h.seller))
}

func TestRPCRefund(t *testing.T) {
	h := newRPCHarness(t)
	h.create(t, 1, "1000")

	rec, resp := h.call(t, testToken, "escrow_refund", escrowActorParams{OrderID: 1, Caller: bech(h.seller)})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, codeEscrowForbidden, resp.Error.Code)

	rec, resp = h.call(t, testToken, "escrow_refund", escrowActorParams{OrderID: 1, Caller: bech(h.admin)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)
	require.Equal(t, int64(1_000_000), h.balance(t, h.buyer))
	require.Equal(t, int64(0), h.balance(t, h.seller))
}

func TestRPCQuoteAndPlatformReads(t *testing.T) {
	h := newRPCHarness(t)

	_, resp := h.call(t, "", "escrow_quote", escrowQuoteParams{Amount: "1001"})
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var quote escrowQuoteJSON
	require.NoError(t, json.Unmarshal(raw, &quote))
	require.Equal(t, "1001", quote.Gross)
	require.Equal(t, "25", quote.Fee)
	require.Equal(t, "976", quote.Net)

	_, fee := h.call(t, "", "platform_getFee", nil)
	require.Nil(t, fee.Error)
	require.Equal(t, map[string]interface{}{"feeBps": float64(250)}, fee.Result)

	_, wallet := h.call(t, "", "platform_getWallet", nil)
	require.Nil(t, wallet.Error)
	require.Equal(t, map[string]interface{}{"wallet": bech(h.wallet)}, wallet.Result)
}

func TestRPCPlatformUpdates(t *testing.T) {
	h := newRPCHarness(t)

	rec, resp := h.call(t, testToken, "platform_updateFee", platformFeeParams{Caller: bech(h.seller), FeeBps: 100})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, codeEscrowForbidden, resp.Error.Code)

	rec, resp = h.call(t, testToken, "platform_updateFee", platformFeeParams{Caller: bech(h.admin), FeeBps: 1001})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeEscrowInvalidParams, resp.Error.Code)

	rec, resp = h.call(t, testToken, "platform_updateFee", platformFeeParams{Caller: bech(h.admin), FeeBps: 500})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)

	newWallet := addr(0x0C)
	rec, resp = h.call(t, testToken, "platform_updateWallet", platformWalletParams{Caller: bech(h.admin), Wallet: bech(newWallet)})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, resp.Error)

	_, fee := h.call(t, "", "platform_getFee", nil)
	require.Equal(t, map[string]interface{}{"feeBps": float64(500)}, fee.Result)
	_, wallet := h.call(t, "", "platform_getWallet", nil)
	require.Equal(t, map[string]interface{}{"wallet": bech(newWallet)}, wallet.Result)
}

func TestRPCUnknownMethod(t *testing.T) {
	h := newRPCHarness(t)
	rec, resp := h.call(t, "", "escrow_destroy", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestRPCInvalidJSON(t *testing.T) {
	h := newRPCHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, codeParseError, resp.Error.Code)
}

func TestRPCHealthz(t *testing.T) {
	h := newRPCHarness(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestRPCParamArity(t *testing.T) {
	h := newRPCHarness(t)
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: "escrow_get", ID: 1})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)

	var resp RPCResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, codeEscrowInvalidParams, resp.Error.Code)
}
