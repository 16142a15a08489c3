package slot

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Executor runs a simple-protocol query and returns all of its results.
type Executor interface {
	Exec(ctx context.Context, sql string) ([]*pgconn.Result, error)
}

// Conn adapts a pgconn connection, replication connections included, to
// Executor.
type Conn struct {
	*pgconn.PgConn
}

func (c Conn) Exec(ctx context.Context, sql string) ([]*pgconn.Result, error) {
	return c.PgConn.Exec(ctx, sql).ReadAll()
}

// ReadInfo looks up the slot described by cfg.
func ReadInfo(ctx context.Context, exec Executor, cfg Config) (*Info, error) {
	if cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.QueryTimeout)
		defer cancel()
	}

	results, err := exec.Exec(ctx, InfoQuery(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("slot info query: %w", err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotExists, cfg.Name)
	}

	info, err := DecodeInfo(results[0])
	if err != nil {
		return nil, fmt.Errorf("slot %s: %w", cfg.Name, err)
	}

	return info, nil
}
