package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/snapflowio/pgsource/logger"
)

// SQLiteStore keeps offsets in an embedded SQLite database, for readers that
// have no Postgres to write checkpoints to.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

func NewSQLiteStore(ctx context.Context, dsn, table string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// a single connection keeps ":memory:" databases shared between calls
	db.SetMaxOpenConns(1)

	if table == "" {
		table = DefaultTable
	}

	s := &SQLiteStore{db: db, table: quoteQualified(table)}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		partition_key TEXT PRIMARY KEY,
		offset_data TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.table)

	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create checkpoint table: %w", err)
	}

	logger.Info("[checkpoint] sqlite store ready", "dsn", dsn, "table", s.table)
	return s, nil
}

func (s *SQLiteStore) Save(ctx context.Context, partition map[string]string, offset map[string]any) error {
	key, err := PartitionKey(partition)
	if err != nil {
		return err
	}

	data, err := encodeOffset(offset)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (partition_key, offset_data, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (partition_key)
		DO UPDATE SET offset_data = excluded.offset_data, updated_at = excluded.updated_at`, s.table)

	if _, err := s.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("save offset: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, partition map[string]string) (map[string]any, error) {
	key, err := PartitionKey(partition)
	if err != nil {
		return nil, err
	}

	var data string
	query := fmt.Sprintf(`SELECT offset_data FROM %s WHERE partition_key = ?`, s.table)
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load offset: %w", err)
	}

	return decodeOffset([]byte(data))
}

func (s *SQLiteStore) Delete(ctx context.Context, partition map[string]string) error {
	key, err := PartitionKey(partition)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE partition_key = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete offset: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
