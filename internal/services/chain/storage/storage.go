// Package storage defines the persistence records and interfaces for the
// chain journal. The journal is not the source of truth for chain state;
// it is the record of submitted blocks the node replays at boot to rebuild
// the runtime.
package storage

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
)

// ErrNotFound indicates a requested persistence record is missing.
// Callers use this to differentiate between legitimate "no such entity"
// states and transport or data corruption failures.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// Block receipt statuses.
const (
	// BlockStatusAccepted marks a block whose extrinsics all dispatched,
	// successfully or not.
	BlockStatusAccepted = "accepted"
	// BlockStatusRejected marks a block rejected for a header mismatch.
	// Rejected blocks still consume a chain height.
	BlockStatusRejected = "rejected"
)

// Extrinsic receipt statuses.
const (
	ExtrinsicStatusApplied = "applied"
	ExtrinsicStatusFailed  = "failed"
)

// BlockReceipt captures the outcome of one submitted block. Height is the
// chain height the block consumed, which for rejected blocks differs from
// the header number the producer sent.
type BlockReceipt struct {
	Height         uint64
	HeaderNumber   uint64
	Status         string
	ErrorCode      string
	ExtrinsicCount int
	FailedCount    int
	SubmittedBy    string
	RequestID      string
	CreatedAt      time.Time
	Extrinsics     []ExtrinsicReceipt
}

// ExtrinsicReceipt captures the outcome of one extrinsic inside a block.
// Params holds the wire-encoded call parameters so the block can be
// re-executed verbatim during replay.
type ExtrinsicReceipt struct {
	Index        int
	Caller       string
	Module       string
	Method       string
	Params       json.RawMessage
	Status       string
	ErrorCode    string
	ErrorMessage string
}

// GenesisRecord pins the genesis document the journal was built from.
type GenesisRecord struct {
	Hash      string
	Document  json.RawMessage
	CreatedAt time.Time
}

// ReceiptJournal owns the ordered record of executed blocks.
type ReceiptJournal interface {
	// AppendReceipt stores a block receipt with its extrinsic receipts.
	AppendReceipt(ctx context.Context, receipt BlockReceipt) error
	// Head returns the receipt with the highest height.
	Head(ctx context.Context) (BlockReceipt, error)
	// ReceiptByHeight returns the receipt that consumed height.
	ReceiptByHeight(ctx context.Context, height uint64) (BlockReceipt, error)
	// ListReceipts returns receipts with heights above afterHeight in
	// ascending order. A non-positive limit returns all of them.
	ListReceipts(ctx context.Context, afterHeight uint64, limit int) ([]BlockReceipt, error)
	// ListAccountExtrinsics returns the extrinsics submitted by caller,
	// ordered by height then index. A non-positive limit returns all.
	ListAccountExtrinsics(ctx context.Context, caller string, limit int) ([]AccountExtrinsic, error)
}

// AccountExtrinsic pairs an extrinsic receipt with the height of the block
// holding it.
type AccountExtrinsic struct {
	Height    uint64
	Extrinsic ExtrinsicReceipt
}

// GenesisStore pins the genesis document for the journal lifetime.
type GenesisStore interface {
	Genesis(ctx context.Context) (GenesisRecord, error)
	SaveGenesis(ctx context.Context, record GenesisRecord) error
}
