package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/cairn/internal/services/chain/storage"
)

// Genesis returns the pinned genesis document.
func (s *Store) Genesis(ctx context.Context) (storage.GenesisRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT hash, document, created_at FROM genesis WHERE id = 1")

	var record storage.GenesisRecord
	var document string
	var createdAt int64
	if err := row.Scan(&record.Hash, &document, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GenesisRecord{}, storage.ErrNotFound
		}
		return storage.GenesisRecord{}, fmt.Errorf("scan genesis: %w", err)
	}
	record.Document = json.RawMessage(document)
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// SaveGenesis pins the genesis document. The journal holds at most one
// genesis row; saving a second one fails.
func (s *Store) SaveGenesis(ctx context.Context, record storage.GenesisRecord) error {
	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO genesis (id, hash, document, created_at) VALUES (1, ?, ?, ?)",
		record.Hash, string(record.Document), toMillis(record.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert genesis: %w", err)
	}
	return nil
}
