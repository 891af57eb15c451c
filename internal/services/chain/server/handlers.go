package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	errori18n "github.com/louisbranch/cairn/internal/platform/errors/i18n"
	"github.com/louisbranch/cairn/internal/platform/i18n/catalog"
	"github.com/louisbranch/cairn/internal/services/chain/api"
	"github.com/louisbranch/cairn/internal/services/chain/app"
	"github.com/louisbranch/cairn/internal/services/chain/codec"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/runtime"
)

const maxSubmitBodyBytes = 1 << 20

type handler struct {
	service *app.Service
	hub     *feedHub
	grant   GrantConfig
}

// NewHandler creates node routes for tests and embedded use. Producer
// grants are not enforced.
func NewHandler(service *app.Service) http.Handler {
	return newHandler(service, newFeedHub(), GrantConfig{})
}

// NewHandlerWithGrant creates node routes with block submission gated on
// producer grant verification.
func NewHandlerWithGrant(service *app.Service, grant GrantConfig) http.Handler {
	return newHandler(service, newFeedHub(), grant)
}

func newHandler(service *app.Service, hub *feedHub, grant GrantConfig) http.Handler {
	h := &handler{service: service, hub: hub, grant: grant}

	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/v1/chain/head", h.handleHead)
	mux.HandleFunc("/v1/accounts/", h.handleAccounts)
	mux.HandleFunc("/v1/claims/", h.handleClaim)
	mux.HandleFunc("/v1/blocks", h.handleBlocks)
	mux.HandleFunc("/v1/blocks/", h.handleBlockByHeight)

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleFeedConn(conn, h.hub, h.service)
	})
	mux.HandleFunc("/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func (h *handler) handleHead(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	head := h.service.Head()
	writeJSON(w, http.StatusOK, api.HeadResponse{
		Height:      uint64(head.Height),
		GenesisHash: head.GenesisHash,
	})
}

func (h *handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	id, tail := rest, ""
	if idx := strings.Index(rest, "/"); idx >= 0 {
		id, tail = rest[:idx], rest[idx:]
	}
	if id == "" {
		writeError(w, r, apperrors.New(apperrors.CodeNotFound, "account id is required"))
		return
	}

	switch tail {
	case "":
		account := h.service.Account(ledger.AccountID(id))
		writeJSON(w, http.StatusOK, api.AccountResponse{
			ID:      string(account.ID),
			Balance: ledger.FormatBalance(account.Balance),
			Nonce:   uint64(account.Nonce),
		})
	case "/extrinsics":
		limit, ok := queryInt(w, r, "limit")
		if !ok {
			return
		}
		extrinsics, err := h.service.AccountExtrinsics(r.Context(), id, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp := api.AccountExtrinsicsResponse{}
		for _, ext := range extrinsics {
			resp.Extrinsics = append(resp.Extrinsics, api.AccountExtrinsic{
				Height:    ext.Height,
				Extrinsic: api.ExtrinsicFromStorage(ext.Extrinsic),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, r, apperrors.New(apperrors.CodeNotFound, "unknown account route"))
	}
}

func (h *handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	// Everything after the prefix is the claimed content, slashes included.
	content := strings.TrimPrefix(r.URL.Path, "/v1/claims/")
	if content == "" {
		writeError(w, r, apperrors.New(apperrors.CodeNotFound, "claim content is required"))
		return
	}

	claim := h.service.Claim(ledger.Content(content))
	writeJSON(w, http.StatusOK, api.ClaimResponse{
		Content: string(claim.Content),
		Holder:  string(claim.Holder),
		Claimed: claim.Claimed,
	})
}

func (h *handler) handleBlocks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListBlocks(w, r)
	case http.MethodPost:
		h.handleSubmitBlock(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *handler) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	after, ok := queryUint(w, r, "after")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}

	receipts, err := h.service.Receipts(r.Context(), after, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := api.BlocksResponse{}
	for _, receipt := range receipts {
		resp.Blocks = append(resp.Blocks, api.ReceiptFromStorage(receipt))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleSubmitBlock(w http.ResponseWriter, r *http.Request) {
	submittedBy := ""
	if h.grant.enabled() {
		claims, err := ValidateProducerGrant(bearerToken(r), h.service.Head().GenesisHash, h.grant)
		if err != nil {
			writeError(w, r, err)
			return
		}
		submittedBy = claims.Subject
	}

	var req api.SubmitBlockRequest
	body := http.MaxBytesReader(w, r.Body, maxSubmitBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, r, apperrors.Wrap(apperrors.CodeCallInvalid, "invalid block payload", err))
		return
	}

	extrinsics := make([]runtime.Extrinsic, len(req.Extrinsics))
	for i, submit := range req.Extrinsics {
		caller := strings.TrimSpace(submit.Caller)
		if caller == "" {
			writeError(w, r, apperrors.New(apperrors.CodeCallInvalid, "extrinsic caller is required"))
			return
		}
		call, err := codec.Decode(submit.Call)
		if err != nil {
			writeError(w, r, err)
			return
		}
		extrinsics[i] = runtime.Extrinsic{Caller: ledger.AccountID(caller), Call: call}
	}

	var height *ledger.BlockNumber
	if req.Height != nil {
		pinned := ledger.BlockNumber(*req.Height)
		height = &pinned
	}

	requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-Id", requestID)

	receipt, err := h.service.SubmitBlock(r.Context(), app.SubmitParams{
		Height:      height,
		Extrinsics:  extrinsics,
		SubmittedBy: submittedBy,
		RequestID:   requestID,
	})
	if err != nil && receipt.Status == "" {
		// Nothing executed: the submission failed before touching the chain.
		writeError(w, r, err)
		return
	}

	resp := api.SubmitBlockResponse{Receipt: api.ReceiptFromStorage(receipt)}
	status := http.StatusOK
	if err != nil {
		code := apperrors.CodeOf(err)
		status = code.HTTPStatus()
		resp.Error = &api.Error{Code: string(code), Message: localizedMessage(r, err)}
	}

	h.hub.broadcastReceipt(receipt)
	writeJSON(w, status, resp)
}

func (h *handler) handleBlockByHeight(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/blocks/")
	height, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		writeError(w, r, apperrors.New(apperrors.CodeNotFound, "block height must be a number"))
		return
	}

	receipt, err := h.service.Receipt(r.Context(), height)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ReceiptFromStorage(receipt))
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func queryUint(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeCallInvalid, "query parameter must be a number", map[string]string{"Field": name}))
		return 0, false
	}
	return value, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, apperrors.WithMetadata(apperrors.CodeCallInvalid, "query parameter must be a number", map[string]string{"Field": name}))
		return 0, false
	}
	return value, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("chain api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Printf("chain api: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, api.ErrorResponse{Error: api.Error{
		Code:    string(code),
		Message: localizedMessage(r, err),
	}})
}

// localizedMessage renders the catalog message for the request locale.
// Internal error text never reaches the response body.
func localizedMessage(r *http.Request, err error) string {
	locale := catalog.Default().MatchLocale(r.Header.Get("Accept-Language"))
	return errori18n.GetCatalog(locale).Format(string(apperrors.CodeOf(err)), apperrors.MetadataOf(err))
}
