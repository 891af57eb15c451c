package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/cairn/internal/services/chain/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/chain.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func sampleReceipt(height uint64) storage.BlockReceipt {
	return storage.BlockReceipt{
		Height:         height,
		HeaderNumber:   height,
		Status:         storage.BlockStatusAccepted,
		ExtrinsicCount: 2,
		FailedCount:    1,
		SubmittedBy:    "producer-1",
		RequestID:      "req-1",
		CreatedAt:      time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		Extrinsics: []storage.ExtrinsicReceipt{
			{
				Index:  0,
				Caller: "alice",
				Module: "balances",
				Method: "transfer",
				Params: []byte(`{"to":"bob","amount":"30"}`),
				Status: storage.ExtrinsicStatusApplied,
			},
			{
				Index:        1,
				Caller:       "bob",
				Module:       "proof_of_existence",
				Method:       "create_claim",
				Params:       []byte(`{"content":"doc"}`),
				Status:       storage.ExtrinsicStatusFailed,
				ErrorCode:    "POE_ALREADY_CLAIMED",
				ErrorMessage: "content is already claimed",
			},
		},
	}
}

func TestAppendReceiptAndHead(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendReceipt(ctx, sampleReceipt(1)); err != nil {
		t.Fatalf("append receipt 1: %v", err)
	}
	if err := store.AppendReceipt(ctx, sampleReceipt(2)); err != nil {
		t.Fatalf("append receipt 2: %v", err)
	}

	head, err := store.Head(ctx)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Height != 2 {
		t.Fatalf("head height = %d, want 2", head.Height)
	}
	if head.Status != storage.BlockStatusAccepted {
		t.Fatalf("head status = %s", head.Status)
	}
	if len(head.Extrinsics) != 2 {
		t.Fatalf("head extrinsics = %d, want 2", len(head.Extrinsics))
	}

	failed := head.Extrinsics[1]
	if failed.Status != storage.ExtrinsicStatusFailed {
		t.Fatalf("extrinsic status = %s", failed.Status)
	}
	if failed.ErrorCode != "POE_ALREADY_CLAIMED" {
		t.Fatalf("extrinsic error code = %s", failed.ErrorCode)
	}
	if string(failed.Params) != `{"content":"doc"}` {
		t.Fatalf("extrinsic params = %s", failed.Params)
	}
}

func TestHeadEmptyJournal(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Head(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReceiptByHeight(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendReceipt(ctx, sampleReceipt(1)); err != nil {
		t.Fatalf("append receipt: %v", err)
	}

	receipt, err := store.ReceiptByHeight(ctx, 1)
	if err != nil {
		t.Fatalf("receipt by height: %v", err)
	}
	if receipt.Height != 1 || receipt.SubmittedBy != "producer-1" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if got := receipt.CreatedAt; !got.Equal(time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("created at = %v", got)
	}

	if _, err := store.ReceiptByHeight(ctx, 9); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAppendReceiptRejectsDuplicateHeight(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendReceipt(ctx, sampleReceipt(1)); err != nil {
		t.Fatalf("append receipt: %v", err)
	}
	if err := store.AppendReceipt(ctx, sampleReceipt(1)); err == nil {
		t.Fatal("expected duplicate height to fail")
	}

	// The failed append must not leave orphan extrinsic rows behind.
	receipt, err := store.ReceiptByHeight(ctx, 1)
	if err != nil {
		t.Fatalf("receipt by height: %v", err)
	}
	if len(receipt.Extrinsics) != 2 {
		t.Fatalf("extrinsics = %d, want 2", len(receipt.Extrinsics))
	}
}

func TestListReceipts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for height := uint64(1); height <= 4; height++ {
		if err := store.AppendReceipt(ctx, sampleReceipt(height)); err != nil {
			t.Fatalf("append receipt %d: %v", height, err)
		}
	}

	all, err := store.ListReceipts(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list receipts: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("receipts = %d, want 4", len(all))
	}
	for i, receipt := range all {
		if receipt.Height != uint64(i+1) {
			t.Fatalf("receipt %d height = %d", i, receipt.Height)
		}
		if len(receipt.Extrinsics) != 2 {
			t.Fatalf("receipt %d extrinsics = %d", i, len(receipt.Extrinsics))
		}
	}

	page, err := store.ListReceipts(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list receipts page: %v", err)
	}
	if len(page) != 2 || page[0].Height != 2 || page[1].Height != 3 {
		t.Fatalf("page = %+v", page)
	}
}

func TestListAccountExtrinsics(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendReceipt(ctx, sampleReceipt(1)); err != nil {
		t.Fatalf("append receipt 1: %v", err)
	}
	if err := store.AppendReceipt(ctx, sampleReceipt(2)); err != nil {
		t.Fatalf("append receipt 2: %v", err)
	}

	aliceExts, err := store.ListAccountExtrinsics(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("list account extrinsics: %v", err)
	}
	if len(aliceExts) != 2 {
		t.Fatalf("alice extrinsics = %d, want 2", len(aliceExts))
	}
	if aliceExts[0].Height != 1 || aliceExts[1].Height != 2 {
		t.Fatalf("heights = %d, %d", aliceExts[0].Height, aliceExts[1].Height)
	}
	for _, ae := range aliceExts {
		if ae.Extrinsic.Caller != "alice" {
			t.Fatalf("caller = %s, want alice", ae.Extrinsic.Caller)
		}
	}

	limited, err := store.ListAccountExtrinsics(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited = %d, want 1", len(limited))
	}

	none, err := store.ListAccountExtrinsics(ctx, "nobody", 0)
	if err != nil {
		t.Fatalf("list none: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("none = %d, want 0", len(none))
	}
}

func TestGenesisRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Genesis(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	record := storage.GenesisRecord{
		Hash:      "abc123",
		Document:  []byte(`{"balances":{"alice":"100"}}`),
		CreatedAt: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.SaveGenesis(ctx, record); err != nil {
		t.Fatalf("save genesis: %v", err)
	}

	got, err := store.Genesis(ctx)
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}
	if got.Hash != "abc123" {
		t.Fatalf("hash = %s", got.Hash)
	}
	if string(got.Document) != `{"balances":{"alice":"100"}}` {
		t.Fatalf("document = %s", got.Document)
	}

	if err := store.SaveGenesis(ctx, record); err == nil {
		t.Fatal("expected second genesis save to fail")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("   "); err == nil {
		t.Fatal("expected error for blank path")
	}
}
