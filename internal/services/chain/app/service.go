// Package app hosts the chain node service. It owns the runtime and the
// journal, serializes block execution, and rebuilds runtime state from the
// journal at boot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	apperrors "github.com/louisbranch/cairn/internal/platform/errors"
	"github.com/louisbranch/cairn/internal/services/chain/codec"
	"github.com/louisbranch/cairn/internal/services/chain/domain/ledger"
	"github.com/louisbranch/cairn/internal/services/chain/domain/runtime"
	"github.com/louisbranch/cairn/internal/services/chain/storage"
)

// Journal is the persistence surface the service needs.
type Journal interface {
	storage.ReceiptJournal
	storage.GenesisStore
}

// Service owns the runtime and serializes block execution. All state
// mutations go through SubmitBlock under one mutex; reads of live runtime
// state take the same mutex.
type Service struct {
	mu          sync.Mutex
	runtime     *runtime.Runtime
	journal     Journal
	collector   *reportCollector
	genesisHash string
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the receipt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New boots a chain service: it pins or verifies the genesis document,
// replays the journal into a fresh runtime, and leaves the service ready
// to accept blocks. An empty genesisDoc means no initial balances.
func New(ctx context.Context, journal Journal, genesisDoc []byte, opts ...Option) (*Service, error) {
	if journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if len(genesisDoc) == 0 {
		genesisDoc = []byte(`{"balances":{}}`)
	}

	genesis, err := ParseGenesis(genesisDoc)
	if err != nil {
		return nil, err
	}

	collector := &reportCollector{}
	svc := &Service{
		runtime:     runtime.New(runtime.WithObserver(collector)),
		journal:     journal,
		collector:   collector,
		genesisHash: genesis.Hash(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}

	if err := svc.pinGenesis(ctx, genesisDoc); err != nil {
		return nil, err
	}
	genesis.Apply(svc.runtime)

	if err := svc.replay(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

// pinGenesis stores the genesis on first boot and verifies it on every
// boot after that. A journal built from one allocation cannot be replayed
// onto another.
func (s *Service) pinGenesis(ctx context.Context, genesisDoc []byte) error {
	stored, err := s.journal.Genesis(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		record := storage.GenesisRecord{
			Hash:      s.genesisHash,
			Document:  genesisDoc,
			CreatedAt: s.now(),
		}
		if err := s.journal.SaveGenesis(ctx, record); err != nil {
			return fmt.Errorf("pin genesis: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("load genesis: %w", err)
	case stored.Hash != s.genesisHash:
		return apperrors.WithMetadata(apperrors.CodeGenesisMismatch,
			"genesis document does not match journal", map[string]string{
				"Stored":   stored.Hash,
				"Provided": s.genesisHash,
			})
	default:
		return nil
	}
}

// replay re-executes every journaled block in order. Rejected blocks are
// replayed too: they consumed a height, and reproducing the rejection is
// what keeps heights and nonces aligned with the journal.
func (s *Service) replay(ctx context.Context) error {
	receipts, err := s.journal.ListReceipts(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}

	for _, receipt := range receipts {
		if err := ctx.Err(); err != nil {
			return err
		}

		block := runtime.Block{Header: runtime.Header{BlockNumber: ledger.BlockNumber(receipt.HeaderNumber)}}
		if receipt.Status == storage.BlockStatusAccepted {
			for _, ext := range receipt.Extrinsics {
				call, err := codec.Decode(codec.CallEnvelope{
					Module: ext.Module,
					Method: ext.Method,
					Params: ext.Params,
				})
				if err != nil {
					return fmt.Errorf("replay block %d extrinsic %d: %w", receipt.Height, ext.Index, err)
				}
				block.Extrinsics = append(block.Extrinsics, runtime.Extrinsic{
					Caller: ledger.AccountID(ext.Caller),
					Call:   call,
				})
			}
		}

		execErr := s.runtime.ExecuteBlock(block)
		s.collector.take()

		if rejected := receipt.Status == storage.BlockStatusRejected; rejected != (execErr != nil) {
			return fmt.Errorf("replay block %d: journal status %q does not match execution outcome", receipt.Height, receipt.Status)
		}
		if got := uint64(s.runtime.System().BlockNumber()); got != receipt.Height {
			return fmt.Errorf("replay block %d: chain height diverged to %d", receipt.Height, got)
		}
	}
	return nil
}

// SubmitParams carries one block submission.
type SubmitParams struct {
	// Height pins the block header number. Nil means the next height.
	Height      *ledger.BlockNumber
	Extrinsics  []runtime.Extrinsic
	SubmittedBy string
	RequestID   string
}

// SubmitBlock executes a block against the runtime and journals its
// receipt. Rejected blocks are journaled too and the rejection error is
// returned alongside the receipt. Extrinsic failures do not fail the
// submission; they are recorded on the receipt.
func (s *Service) SubmitBlock(ctx context.Context, params SubmitParams) (storage.BlockReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	header := s.runtime.System().BlockNumber() + 1
	if params.Height != nil {
		header = *params.Height
	}

	// Encode the wire envelopes up front so an unencodable call fails the
	// submission before any state changes.
	envelopes := make([]codec.CallEnvelope, len(params.Extrinsics))
	for i, ext := range params.Extrinsics {
		env, err := codec.Encode(ext.Call)
		if err != nil {
			return storage.BlockReceipt{}, err
		}
		envelopes[i] = env
	}

	execErr := s.runtime.ExecuteBlock(runtime.Block{
		Header:     runtime.Header{BlockNumber: header},
		Extrinsics: params.Extrinsics,
	})
	reports := s.collector.take()

	receipt := storage.BlockReceipt{
		Height:         uint64(s.runtime.System().BlockNumber()),
		HeaderNumber:   uint64(header),
		Status:         storage.BlockStatusAccepted,
		ExtrinsicCount: len(params.Extrinsics),
		SubmittedBy:    params.SubmittedBy,
		RequestID:      params.RequestID,
		CreatedAt:      s.now(),
	}

	if execErr != nil {
		// Extrinsics of a rejected block never ran, so the receipt keeps
		// the submitted count but no per-extrinsic rows.
		receipt.Status = storage.BlockStatusRejected
		receipt.ErrorCode = string(apperrors.CodeOf(execErr))
	} else {
		for i, report := range reports {
			ext := storage.ExtrinsicReceipt{
				Index:  report.Index,
				Caller: string(report.Caller),
				Module: envelopes[i].Module,
				Method: envelopes[i].Method,
				Params: envelopes[i].Params,
				Status: storage.ExtrinsicStatusApplied,
			}
			if report.Err != nil {
				ext.Status = storage.ExtrinsicStatusFailed
				ext.ErrorCode = string(apperrors.CodeOf(report.Err))
				ext.ErrorMessage = report.Err.Error()
				receipt.FailedCount++
				log.Printf("extrinsic failed: block=%d index=%d caller=%s method=%s err=%v",
					report.Block, report.Index, report.Caller, report.Method, report.Err)
			}
			receipt.Extrinsics = append(receipt.Extrinsics, ext)
		}
	}

	// A journal failure here leaves runtime state ahead of the journal;
	// the node must restart and rebuild from the journal.
	if err := s.journal.AppendReceipt(ctx, receipt); err != nil {
		return storage.BlockReceipt{}, fmt.Errorf("journal receipt %d: %w", receipt.Height, err)
	}

	return receipt, execErr
}

// HeadInfo describes the current chain tip.
type HeadInfo struct {
	Height      ledger.BlockNumber
	GenesisHash string
}

// Head returns the current chain height and the pinned genesis hash.
func (s *Service) Head() HeadInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HeadInfo{
		Height:      s.runtime.System().BlockNumber(),
		GenesisHash: s.genesisHash,
	}
}

// AccountInfo is the live view of one account.
type AccountInfo struct {
	ID      ledger.AccountID
	Balance ledger.Balance
	Nonce   ledger.Nonce
}

// Account returns the live balance and nonce for id. Unknown accounts
// report zero for both.
func (s *Service) Account(id ledger.AccountID) AccountInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AccountInfo{
		ID:      id,
		Balance: s.runtime.Balances().Balance(id),
		Nonce:   s.runtime.System().Nonce(id),
	}
}

// ClaimInfo is the live view of one content claim.
type ClaimInfo struct {
	Content ledger.Content
	Holder  ledger.AccountID
	Claimed bool
}

// Claim returns the live holder of a content claim.
func (s *Service) Claim(content ledger.Content) ClaimInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	holder, ok := s.runtime.ProofOfExistence().ClaimHolder(content)
	return ClaimInfo{Content: content, Holder: holder, Claimed: ok}
}

// Receipt returns the journaled receipt for height.
func (s *Service) Receipt(ctx context.Context, height uint64) (storage.BlockReceipt, error) {
	return s.journal.ReceiptByHeight(ctx, height)
}

// Receipts returns journaled receipts above afterHeight in ascending
// order. A non-positive limit returns all of them.
func (s *Service) Receipts(ctx context.Context, afterHeight uint64, limit int) ([]storage.BlockReceipt, error) {
	return s.journal.ListReceipts(ctx, afterHeight, limit)
}

// AccountExtrinsics returns the journaled extrinsics submitted by caller.
func (s *Service) AccountExtrinsics(ctx context.Context, caller string, limit int) ([]storage.AccountExtrinsic, error) {
	return s.journal.ListAccountExtrinsics(ctx, caller, limit)
}

// reportCollector buffers extrinsic reports for the block being executed.
// Access is serialized by the service mutex.
type reportCollector struct {
	reports []runtime.Report
}

func (c *reportCollector) ExtrinsicApplied(report runtime.Report) {
	c.reports = append(c.reports, report)
}

func (c *reportCollector) take() []runtime.Report {
	reports := c.reports
	c.reports = nil
	return reports
}
