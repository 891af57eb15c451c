package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/cairn/internal/services/chain/storage"
)

const selectBlockColumns = `
SELECT height, header_number, status, error_code, extrinsic_count, failed_count, submitted_by, request_id, created_at
FROM blocks`

// AppendReceipt stores a block receipt and its extrinsic receipts in a
// single transaction so a crash never leaves a block without its extrinsics.
func (s *Store) AppendReceipt(ctx context.Context, receipt storage.BlockReceipt) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append receipt: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO blocks (height, header_number, status, error_code, extrinsic_count, failed_count, submitted_by, request_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(receipt.Height),
		int64(receipt.HeaderNumber),
		receipt.Status,
		receipt.ErrorCode,
		receipt.ExtrinsicCount,
		receipt.FailedCount,
		receipt.SubmittedBy,
		receipt.RequestID,
		toMillis(receipt.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert block %d: %w", receipt.Height, err)
	}

	for _, ext := range receipt.Extrinsics {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO extrinsics (block_height, idx, caller, module, method, params, status, error_code, error_message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int64(receipt.Height),
			ext.Index,
			ext.Caller,
			ext.Module,
			ext.Method,
			string(ext.Params),
			ext.Status,
			ext.ErrorCode,
			ext.ErrorMessage,
		); err != nil {
			return fmt.Errorf("insert extrinsic %d/%d: %w", receipt.Height, ext.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append receipt: %w", err)
	}
	return nil
}

// Head returns the receipt with the highest height.
func (s *Store) Head(ctx context.Context) (storage.BlockReceipt, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectBlockColumns+" ORDER BY height DESC LIMIT 1")
	receipt, err := scanBlock(row)
	if err != nil {
		return storage.BlockReceipt{}, err
	}
	return s.withExtrinsics(ctx, receipt)
}

// ReceiptByHeight returns the receipt that consumed height.
func (s *Store) ReceiptByHeight(ctx context.Context, height uint64) (storage.BlockReceipt, error) {
	row := s.sqlDB.QueryRowContext(ctx, selectBlockColumns+" WHERE height = ?", int64(height))
	receipt, err := scanBlock(row)
	if err != nil {
		return storage.BlockReceipt{}, err
	}
	return s.withExtrinsics(ctx, receipt)
}

// ListReceipts returns receipts with heights above afterHeight in ascending
// order. A non-positive limit returns all of them.
func (s *Store) ListReceipts(ctx context.Context, afterHeight uint64, limit int) ([]storage.BlockReceipt, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		selectBlockColumns+" WHERE height > ? ORDER BY height LIMIT ?",
		int64(afterHeight), limit)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var receipts []storage.BlockReceipt
	for rows.Next() {
		receipt, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocks: %w", err)
	}

	for i := range receipts {
		receipts[i], err = s.withExtrinsics(ctx, receipts[i])
		if err != nil {
			return nil, err
		}
	}
	return receipts, nil
}

// ListAccountExtrinsics returns the extrinsics submitted by caller, ordered
// by height then index. A non-positive limit returns all of them.
func (s *Store) ListAccountExtrinsics(ctx context.Context, caller string, limit int) ([]storage.AccountExtrinsic, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT block_height, idx, caller, module, method, params, status, error_code, error_message
FROM extrinsics
WHERE caller = ?
ORDER BY block_height, idx
LIMIT ?`, caller, limit)
	if err != nil {
		return nil, fmt.Errorf("list account extrinsics: %w", err)
	}
	defer rows.Close()

	var results []storage.AccountExtrinsic
	for rows.Next() {
		var height int64
		var params string
		var ext storage.ExtrinsicReceipt
		if err := rows.Scan(&height, &ext.Index, &ext.Caller, &ext.Module, &ext.Method,
			&params, &ext.Status, &ext.ErrorCode, &ext.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan account extrinsic: %w", err)
		}
		if params != "" {
			ext.Params = json.RawMessage(params)
		}
		results = append(results, storage.AccountExtrinsic{Height: uint64(height), Extrinsic: ext})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account extrinsics: %w", err)
	}
	return results, nil
}

func (s *Store) withExtrinsics(ctx context.Context, receipt storage.BlockReceipt) (storage.BlockReceipt, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT idx, caller, module, method, params, status, error_code, error_message
FROM extrinsics
WHERE block_height = ?
ORDER BY idx`, int64(receipt.Height))
	if err != nil {
		return storage.BlockReceipt{}, fmt.Errorf("list extrinsics for block %d: %w", receipt.Height, err)
	}
	defer rows.Close()

	for rows.Next() {
		var params string
		var ext storage.ExtrinsicReceipt
		if err := rows.Scan(&ext.Index, &ext.Caller, &ext.Module, &ext.Method,
			&params, &ext.Status, &ext.ErrorCode, &ext.ErrorMessage); err != nil {
			return storage.BlockReceipt{}, fmt.Errorf("scan extrinsic: %w", err)
		}
		if params != "" {
			ext.Params = json.RawMessage(params)
		}
		receipt.Extrinsics = append(receipt.Extrinsics, ext)
	}
	if err := rows.Err(); err != nil {
		return storage.BlockReceipt{}, fmt.Errorf("iterate extrinsics: %w", err)
	}
	return receipt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (storage.BlockReceipt, error) {
	var receipt storage.BlockReceipt
	var height, headerNumber, createdAt int64
	err := row.Scan(&height, &headerNumber, &receipt.Status, &receipt.ErrorCode,
		&receipt.ExtrinsicCount, &receipt.FailedCount, &receipt.SubmittedBy,
		&receipt.RequestID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.BlockReceipt{}, storage.ErrNotFound
		}
		return storage.BlockReceipt{}, fmt.Errorf("scan block: %w", err)
	}
	receipt.Height = uint64(height)
	receipt.HeaderNumber = uint64(headerNumber)
	receipt.CreatedAt = fromMillis(createdAt)
	return receipt, nil
}
