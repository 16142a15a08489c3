package checkpoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/position"
)

var commitTime = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

// flakyStore fails the first failures calls of every operation with err.
type flakyStore struct {
	Store
	err      error
	failures int
	calls    int
}

func (s *flakyStore) fail() error {
	s.calls++
	if s.calls <= s.failures {
		return s.err
	}
	return nil
}

func (s *flakyStore) Save(ctx context.Context, partition map[string]string, offset map[string]any) error {
	if err := s.fail(); err != nil {
		return err
	}
	return s.Store.Save(ctx, partition, offset)
}

func (s *flakyStore) Load(ctx context.Context, partition map[string]string) (map[string]any, error) {
	if err := s.fail(); err != nil {
		return nil, err
	}
	return s.Store.Load(ctx, partition)
}

func newTracker(t *testing.T) *position.Tracker {
	t.Helper()
	tr, err := position.New("pg1", "inventory")
	require.NoError(t, err)
	return tr
}

func fastRetry() Config {
	return NewConfig(WithRetry(3, time.Millisecond))
}

func TestCommitter_CommitAndRestore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	src := newTracker(t)
	src.StartSnapshot()
	src.Update(pg.LSN(0x1_0000_0100), commitTime, 55, position.NewTableID("public", "orders"), 40)
	src.MarkLastSnapshotRecord()

	lsn, err := NewCommitter(src, store, fastRetry()).Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, pg.LSN(0x1_0000_0100), lsn)

	dst := newTracker(t)
	c := NewCommitter(dst, store, fastRetry())
	restored, err := c.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, restored)

	assert.Equal(t, src.Offset(), dst.Offset())
	assert.Equal(t, position.SnapshotLastRecord, dst.SnapshotState())
	assert.Equal(t, pg.LSN(0x1_0000_0100), c.Committed())
}

func TestCommitter_RestoreEmpty(t *testing.T) {
	tr := newTracker(t)
	restored, err := NewCommitter(tr, NewMemoryStore(), fastRetry()).Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, restored)
	assert.False(t, tr.HasLastKnownPosition())
}

func TestCommitter_RestoreCorrupt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, map[string]string{"server": "pg1"}, map[string]any{"lsn": "0/64", "txId": 55}))

	_, err := NewCommitter(newTracker(t), store, fastRetry()).Restore(ctx)
	require.ErrorIs(t, err, position.ErrCorruptCheckpoint)
	require.ErrorIs(t, err, position.ErrMalformedField)
}

func TestCommitter_RetriesTransientErrors(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore(), err: &pgconn.PgError{Code: "40001"}, failures: 2}

	tr := newTracker(t)
	tr.Update(100, commitTime, 55, position.TableID{}, 0)

	_, err := NewCommitter(tr, store, fastRetry()).Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, store.calls)
}

func TestCommitter_DoesNotRetryPermanentErrors(t *testing.T) {
	boom := errors.New("permission denied")
	store := &flakyStore{Store: NewMemoryStore(), err: boom, failures: 5}

	tr := newTracker(t)
	tr.Update(100, commitTime, 55, position.TableID{}, 0)
	c := NewCommitter(tr, store, fastRetry())

	lsn, err := c.Commit(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, pg.InvalidLSN, lsn)
}

func TestCommitter_Reset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tr := newTracker(t)
	tr.Update(100, commitTime, 55, position.TableID{}, 0)

	c := NewCommitter(tr, store, fastRetry())
	_, err := c.Commit(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Reset(ctx))

	stored, err := store.Load(ctx, tr.Partition())
	require.NoError(t, err)
	assert.Nil(t, stored)
	assert.Equal(t, pg.InvalidLSN, c.Committed())
}

func TestCommitter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	require.NoError(t, RegisterMetrics(reg))

	tr, err := position.New("metrics-server", "inventory")
	require.NoError(t, err)
	tr.StartSnapshot()
	tr.Update(0x200, commitTime, 55, position.TableID{}, 0)

	_, err = NewCommitter(tr, NewMemoryStore(), fastRetry()).Commit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(CommitsTotal.WithLabelValues("metrics-server")))
	assert.Equal(t, float64(0x200), testutil.ToFloat64(CommittedLSN.WithLabelValues("metrics-server")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SnapshotInEffect.WithLabelValues("metrics-server")))
}

func TestIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"connection closed", errors.New("conn: connection closed"), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"other", errors.New("syntax error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransientError(tt.err))
		})
	}
}
