package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/snapflowio/pgsource/logger"
)

const DefaultTable = "cdc_offsets"

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps offsets in a Postgres table, one row per partition.
type PostgresStore struct {
	db    querier
	pool  *pgxpool.Pool
	table string
}

func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create checkpoint pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping checkpoint database: %w", err)
	}

	s := newPostgresStore(pool, table)
	s.pool = pool

	if err := s.init(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func newPostgresStore(db querier, table string) *PostgresStore {
	if table == "" {
		table = DefaultTable
	}

	return &PostgresStore{db: db, table: quoteQualified(table)}
}

func (s *PostgresStore) init(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, s.createTableQuery()); err != nil {
		return fmt.Errorf("create checkpoint table: %w", err)
	}

	logger.Info("[checkpoint] postgres store ready", "table", s.table)
	return nil
}

func (s *PostgresStore) createTableQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		partition_key TEXT PRIMARY KEY,
		partition JSONB NOT NULL,
		offset_data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, s.table)
}

func (s *PostgresStore) upsertQuery() string {
	return fmt.Sprintf(`INSERT INTO %s (partition_key, partition, offset_data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (partition_key)
		DO UPDATE SET offset_data = EXCLUDED.offset_data, updated_at = EXCLUDED.updated_at`, s.table)
}

func (s *PostgresStore) selectQuery() string {
	return fmt.Sprintf(`SELECT offset_data FROM %s WHERE partition_key = $1`, s.table)
}

func (s *PostgresStore) deleteQuery() string {
	return fmt.Sprintf(`DELETE FROM %s WHERE partition_key = $1`, s.table)
}

func (s *PostgresStore) Save(ctx context.Context, partition map[string]string, offset map[string]any) error {
	key, err := PartitionKey(partition)
	if err != nil {
		return err
	}

	partitionJSON, err := encodePartition(partition)
	if err != nil {
		return err
	}

	offsetJSON, err := encodeOffset(offset)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, s.upsertQuery(), key, string(partitionJSON), string(offsetJSON)); err != nil {
		return fmt.Errorf("save offset: %w", err)
	}

	return nil
}

func (s *PostgresStore) Load(ctx context.Context, partition map[string]string) (map[string]any, error) {
	key, err := PartitionKey(partition)
	if err != nil {
		return nil, err
	}

	var data string
	if err := s.db.QueryRow(ctx, s.selectQuery(), key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load offset: %w", err)
	}

	return decodeOffset([]byte(data))
}

func (s *PostgresStore) Delete(ctx context.Context, partition map[string]string) error {
	key, err := PartitionKey(partition)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, s.deleteQuery(), key); err != nil {
		return fmt.Errorf("delete offset: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// quoteQualified quotes each dot-separated part of a table name.
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

var _ Store = (*PostgresStore)(nil)
