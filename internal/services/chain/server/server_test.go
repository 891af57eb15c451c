package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/cairn/internal/services/chain/api"
	"github.com/louisbranch/cairn/internal/services/chain/app"
	"github.com/louisbranch/cairn/internal/services/chain/storage/sqlite"
)

const testGenesis = `{"balances":{"alice":"100"}}`

func newTestService(t *testing.T) *app.Service {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/chain.db")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close journal: %v", err)
		}
	})
	service, err := app.New(context.Background(), store, []byte(testGenesis))
	if err != nil {
		t.Fatalf("boot service: %v", err)
	}
	return service
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewHandler(newTestService(t))
}

func doGet(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func doSubmit(t *testing.T, handler http.Handler, body map[string]any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal submit body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/blocks", bytes.NewReader(raw))
	for key, value := range header {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %s: %v", rr.Body.String(), err)
	}
}

func transferCall(to string, amount string) map[string]any {
	return map[string]any{
		"module": "balances",
		"method": "transfer",
		"params": map[string]any{"to": to, "amount": amount},
	}
}

func createClaimCall(content string) map[string]any {
	return map[string]any{
		"module": "proof_of_existence",
		"method": "create_claim",
		"params": map[string]any{"content": content},
	}
}

func extrinsic(caller string, call map[string]any) map[string]any {
	return map[string]any{"caller": caller, "call": call}
}

func TestNewServerRequiresHTTPAddr(t *testing.T) {
	if _, err := NewServer(Config{DBPath: t.TempDir() + "/chain.db"}); err == nil {
		t.Fatal("expected error for empty HTTP address")
	}
}

func TestNewServerRequiresDBPath(t *testing.T) {
	if _, err := NewServer(Config{HTTPAddr: "127.0.0.1:0"}); err == nil {
		t.Fatal("expected error for empty journal path")
	}
}

func TestListenAndServeNilServer(t *testing.T) {
	var s *Server
	if err := s.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected error for nil server")
	}
}

func TestHandlerUpEndpoint(t *testing.T) {
	rr := doGet(t, newTestHandler(t), "/up")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if strings.TrimSpace(rr.Body.String()) != "OK" {
		t.Fatalf("body = %q, want OK", rr.Body.String())
	}
}

func TestHeadEndpoint(t *testing.T) {
	rr := doGet(t, newTestHandler(t), "/v1/chain/head")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}

	var head api.HeadResponse
	decodeResponse(t, rr, &head)
	if head.Height != 0 {
		t.Fatalf("height = %d, want 0", head.Height)
	}
	if len(head.GenesisHash) != 64 {
		t.Fatalf("genesis hash = %q, want 64 hex chars", head.GenesisHash)
	}
}

func TestAccountEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rr := doGet(t, handler, "/v1/accounts/alice")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}
	var alice api.AccountResponse
	decodeResponse(t, rr, &alice)
	if alice.ID != "alice" || alice.Balance != "100" || alice.Nonce != 0 {
		t.Fatalf("alice = %+v", alice)
	}

	rr = doGet(t, handler, "/v1/accounts/zoe")
	var zoe api.AccountResponse
	decodeResponse(t, rr, &zoe)
	if zoe.Balance != "0" || zoe.Nonce != 0 {
		t.Fatalf("unknown account = %+v, want zero balance and nonce", zoe)
	}
}

func TestAccountEndpointRejectsNonGet(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/accounts/alice", nil)
	newTestHandler(t).ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
	if got := rr.Header().Get("Allow"); got != http.MethodGet {
		t.Fatalf("Allow = %q, want %q", got, http.MethodGet)
	}
}

func TestClaimEndpointUnclaimed(t *testing.T) {
	rr := doGet(t, newTestHandler(t), "/v1/claims/unclaimed-content")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rr.Code, http.StatusOK)
	}

	var claim api.ClaimResponse
	decodeResponse(t, rr, &claim)
	if claim.Claimed || claim.Holder != "" {
		t.Fatalf("claim = %+v, want unclaimed", claim)
	}
	if claim.Content != "unclaimed-content" {
		t.Fatalf("content = %q", claim.Content)
	}
}

func TestSubmitBlockAcceptsTransfers(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"extrinsics": []any{
			extrinsic("alice", transferCall("bob", "30")),
			extrinsic("alice", transferCall("charlie", "20")),
		},
	}, map[string]string{"X-Request-Id": "req-1"})

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Request-Id"); got != "req-1" {
		t.Fatalf("X-Request-Id = %q, want req-1", got)
	}

	var resp api.SubmitBlockResponse
	decodeResponse(t, rr, &resp)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	receipt := resp.Receipt
	if receipt.Height != 1 || receipt.Status != "accepted" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if receipt.ExtrinsicCount != 2 || receipt.FailedCount != 0 {
		t.Fatalf("counts = %d/%d", receipt.ExtrinsicCount, receipt.FailedCount)
	}
	if receipt.RequestID != "req-1" {
		t.Fatalf("request id = %q", receipt.RequestID)
	}

	var alice, bob, charlie api.AccountResponse
	decodeResponse(t, doGet(t, handler, "/v1/accounts/alice"), &alice)
	decodeResponse(t, doGet(t, handler, "/v1/accounts/bob"), &bob)
	decodeResponse(t, doGet(t, handler, "/v1/accounts/charlie"), &charlie)
	if alice.Balance != "50" || alice.Nonce != 2 {
		t.Fatalf("alice = %+v", alice)
	}
	if bob.Balance != "30" || charlie.Balance != "20" {
		t.Fatalf("bob = %+v, charlie = %+v", bob, charlie)
	}

	var head api.HeadResponse
	decodeResponse(t, doGet(t, handler, "/v1/chain/head"), &head)
	if head.Height != 1 {
		t.Fatalf("height = %d, want 1", head.Height)
	}
}

func TestSubmitBlockClaimLifecycle(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"extrinsics": []any{
			extrinsic("alice", createClaimCall("Hello, world!")),
		},
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}

	claimRR := doGet(t, handler, "/v1/claims/Hello,%20world!")
	var claim api.ClaimResponse
	decodeResponse(t, claimRR, &claim)
	if !claim.Claimed || claim.Holder != "alice" {
		t.Fatalf("claim = %+v, want alice holding", claim)
	}
	if claim.Content != "Hello, world!" {
		t.Fatalf("content = %q", claim.Content)
	}
}

func TestSubmitBlockRecordsFailedExtrinsic(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"extrinsics": []any{
			extrinsic("bob", transferCall("alice", "5")),
		},
	}, nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp api.SubmitBlockResponse
	decodeResponse(t, rr, &resp)
	if resp.Receipt.Status != "accepted" || resp.Receipt.FailedCount != 1 {
		t.Fatalf("receipt = %+v", resp.Receipt)
	}
	failed := resp.Receipt.Extrinsics[0]
	if failed.Status != "failed" || failed.ErrorCode != "BALANCES_INSUFFICIENT_FUNDS" {
		t.Fatalf("extrinsic = %+v", failed)
	}
}

func TestSubmitBlockRejectsPinnedHeight(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"height": 9,
		"extrinsics": []any{
			extrinsic("alice", transferCall("bob", "1")),
		},
	}, nil)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp api.SubmitBlockResponse
	decodeResponse(t, rr, &resp)
	if resp.Receipt.Status != "rejected" || resp.Receipt.Height != 1 || resp.Receipt.HeaderNumber != 9 {
		t.Fatalf("receipt = %+v", resp.Receipt)
	}
	if resp.Error == nil || resp.Error.Code != "CHAIN_BLOCK_NUMBER_MISMATCH" {
		t.Fatalf("error = %+v", resp.Error)
	}
	if resp.Error.Message != "Block number 9 does not match expected 1" {
		t.Fatalf("message = %q", resp.Error.Message)
	}

	// The rejected block still consumed height 1.
	var head api.HeadResponse
	decodeResponse(t, doGet(t, handler, "/v1/chain/head"), &head)
	if head.Height != 1 {
		t.Fatalf("height = %d, want 1", head.Height)
	}
}

func TestSubmitBlockLocalizesErrors(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"height":     9,
		"extrinsics": []any{},
	}, map[string]string{"Accept-Language": "pt-BR"})

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp api.SubmitBlockResponse
	decodeResponse(t, rr, &resp)
	if resp.Error == nil {
		t.Fatal("expected rejection error")
	}
	if resp.Error.Message != "O número de bloco 9 não corresponde ao esperado 1" {
		t.Fatalf("message = %q", resp.Error.Message)
	}
}

func TestSubmitBlockRejectsMalformedEnvelope(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"extrinsics": []any{
			extrinsic("alice", map[string]any{"module": "staking", "method": "bond"}),
		},
	}, nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp api.ErrorResponse
	decodeResponse(t, rr, &resp)
	if resp.Error.Code != "CALL_INVALID" {
		t.Fatalf("error code = %q", resp.Error.Code)
	}

	// Nothing executed, so no height was consumed and no nonce burned.
	var head api.HeadResponse
	decodeResponse(t, doGet(t, handler, "/v1/chain/head"), &head)
	if head.Height != 0 {
		t.Fatalf("height = %d, want 0", head.Height)
	}
}

func TestSubmitBlockRejectsMissingCaller(t *testing.T) {
	rr := doSubmit(t, newTestHandler(t), map[string]any{
		"extrinsics": []any{
			extrinsic("", transferCall("bob", "1")),
		},
	}, nil)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
}

func TestBlockByHeightEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"extrinsics": []any{
			extrinsic("alice", transferCall("bob", "30")),
		},
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rr.Code)
	}

	blockRR := doGet(t, handler, "/v1/blocks/1")
	if blockRR.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", blockRR.Code, blockRR.Body.String())
	}
	var receipt api.BlockReceipt
	decodeResponse(t, blockRR, &receipt)
	if receipt.Height != 1 || len(receipt.Extrinsics) != 1 {
		t.Fatalf("receipt = %+v", receipt)
	}
	if receipt.Extrinsics[0].Method != "transfer" || receipt.Extrinsics[0].Module != "balances" {
		t.Fatalf("extrinsic = %+v", receipt.Extrinsics[0])
	}

	missing := doGet(t, handler, "/v1/blocks/7")
	if missing.Code != http.StatusNotFound {
		t.Fatalf("missing block status = %d", missing.Code)
	}
	var errResp api.ErrorResponse
	decodeResponse(t, missing, &errResp)
	if errResp.Error.Code != "NOT_FOUND" {
		t.Fatalf("error code = %q", errResp.Error.Code)
	}

	garbled := doGet(t, handler, "/v1/blocks/later")
	if garbled.Code != http.StatusNotFound {
		t.Fatalf("garbled height status = %d", garbled.Code)
	}
}

func TestListBlocksEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	for i := 0; i < 3; i++ {
		rr := doSubmit(t, handler, map[string]any{
			"extrinsics": []any{
				extrinsic("alice", transferCall("bob", "1")),
			},
		}, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("submit %d status = %d", i, rr.Code)
		}
	}

	rr := doGet(t, handler, "/v1/blocks?after=1&limit=1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp api.BlocksResponse
	decodeResponse(t, rr, &resp)
	if len(resp.Blocks) != 1 || resp.Blocks[0].Height != 2 {
		t.Fatalf("blocks = %+v", resp.Blocks)
	}

	bad := doGet(t, handler, "/v1/blocks?after=later")
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("bad query status = %d", bad.Code)
	}
}

func TestAccountExtrinsicsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	rr := doSubmit(t, handler, map[string]any{
		"extrinsics": []any{
			extrinsic("alice", transferCall("bob", "30")),
			extrinsic("bob", transferCall("alice", "10")),
		},
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit status = %d", rr.Code)
	}

	historyRR := doGet(t, handler, "/v1/accounts/alice/extrinsics")
	if historyRR.Code != http.StatusOK {
		t.Fatalf("status code = %d, body %s", historyRR.Code, historyRR.Body.String())
	}
	var resp api.AccountExtrinsicsResponse
	decodeResponse(t, historyRR, &resp)
	if len(resp.Extrinsics) != 1 {
		t.Fatalf("extrinsics = %+v", resp.Extrinsics)
	}
	if resp.Extrinsics[0].Height != 1 || resp.Extrinsics[0].Extrinsic.Caller != "alice" {
		t.Fatalf("history row = %+v", resp.Extrinsics[0])
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := NewServer(Config{
		HTTPAddr: "127.0.0.1:0",
		DBPath:   t.TempDir() + "/chain.db",
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe(ctx)
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop on cancel")
	}
}
