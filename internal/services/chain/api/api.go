// Package api defines the JSON wire types of the chain node HTTP API.
// The server and the client share these shapes.
package api

import (
	"encoding/json"
	"time"

	"github.com/louisbranch/cairn/internal/services/chain/codec"
	"github.com/louisbranch/cairn/internal/services/chain/storage"
)

// HeadResponse describes the chain tip.
type HeadResponse struct {
	Height      uint64 `json:"height"`
	GenesisHash string `json:"genesis_hash"`
}

// AccountResponse is the live view of one account. Balances are base-10
// strings.
type AccountResponse struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

// ClaimResponse is the live view of one content claim.
type ClaimResponse struct {
	Content string `json:"content"`
	Holder  string `json:"holder,omitempty"`
	Claimed bool   `json:"claimed"`
}

// SubmitExtrinsic is one caller-attributed call in a block submission.
type SubmitExtrinsic struct {
	Caller string             `json:"caller"`
	Call   codec.CallEnvelope `json:"call"`
}

// SubmitBlockRequest asks the node to execute one block.
type SubmitBlockRequest struct {
	// Height pins the block header number. Omitted means the next height.
	Height     *uint64           `json:"height,omitempty"`
	Extrinsics []SubmitExtrinsic `json:"extrinsics"`
}

// SubmitBlockResponse returns the receipt for a submission. Error is set
// when the block was rejected.
type SubmitBlockResponse struct {
	Receipt BlockReceipt `json:"receipt"`
	Error   *Error       `json:"error,omitempty"`
}

// BlockReceipt mirrors a journaled block receipt.
type BlockReceipt struct {
	Height         uint64             `json:"height"`
	HeaderNumber   uint64             `json:"header_number"`
	Status         string             `json:"status"`
	ErrorCode      string             `json:"error_code,omitempty"`
	ExtrinsicCount int                `json:"extrinsic_count"`
	FailedCount    int                `json:"failed_count"`
	SubmittedBy    string             `json:"submitted_by,omitempty"`
	RequestID      string             `json:"request_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	Extrinsics     []ExtrinsicReceipt `json:"extrinsics,omitempty"`
}

// ExtrinsicReceipt mirrors one journaled extrinsic outcome.
type ExtrinsicReceipt struct {
	Index        int             `json:"index"`
	Caller       string          `json:"caller"`
	Module       string          `json:"module"`
	Method       string          `json:"method"`
	Params       json.RawMessage `json:"params,omitempty"`
	Status       string          `json:"status"`
	ErrorCode    string          `json:"error_code,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// BlocksResponse lists journaled receipts.
type BlocksResponse struct {
	Blocks []BlockReceipt `json:"blocks"`
}

// AccountExtrinsic is one journaled extrinsic with the block height it ran in.
type AccountExtrinsic struct {
	Height    uint64           `json:"height"`
	Extrinsic ExtrinsicReceipt `json:"extrinsic"`
}

// AccountExtrinsicsResponse lists the journaled extrinsics of one caller.
type AccountExtrinsicsResponse struct {
	Extrinsics []AccountExtrinsic `json:"extrinsics"`
}

// ErrorResponse is the error body of non-2xx responses.
type ErrorResponse struct {
	Error Error `json:"error"`
}

// Error carries a machine-readable code and a localized message.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Feed frame types pushed over the websocket feed.
const (
	FeedFrameHead    = "chain.head"
	FeedFrameReceipt = "chain.receipt"
	FeedFrameError   = "chain.error"
)

// FeedFrame is one websocket feed message.
type FeedFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ReceiptFromStorage converts a journaled receipt into its wire form.
func ReceiptFromStorage(receipt storage.BlockReceipt) BlockReceipt {
	out := BlockReceipt{
		Height:         receipt.Height,
		HeaderNumber:   receipt.HeaderNumber,
		Status:         receipt.Status,
		ErrorCode:      receipt.ErrorCode,
		ExtrinsicCount: receipt.ExtrinsicCount,
		FailedCount:    receipt.FailedCount,
		SubmittedBy:    receipt.SubmittedBy,
		RequestID:      receipt.RequestID,
		CreatedAt:      receipt.CreatedAt,
	}
	for _, ext := range receipt.Extrinsics {
		out.Extrinsics = append(out.Extrinsics, ExtrinsicFromStorage(ext))
	}
	return out
}

// ExtrinsicFromStorage converts a journaled extrinsic into its wire form.
func ExtrinsicFromStorage(ext storage.ExtrinsicReceipt) ExtrinsicReceipt {
	return ExtrinsicReceipt{
		Index:        ext.Index,
		Caller:       ext.Caller,
		Module:       ext.Module,
		Method:       ext.Method,
		Params:       ext.Params,
		Status:       ext.Status,
		ErrorCode:    ext.ErrorCode,
		ErrorMessage: ext.ErrorMessage,
	}
}
