package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/logger"
	"github.com/snapflowio/pgsource/position"
)

// Committer moves offsets between a position tracker and a store for one
// reader session. Like the tracker it belongs to the reader's goroutine.
type Committer struct {
	tracker   *position.Tracker
	store     Store
	attempts  uint
	delay     time.Duration
	committed pg.LSN
}

func NewCommitter(tracker *position.Tracker, store Store, cfg Config) *Committer {
	cfg.SetDefault()

	return &Committer{
		tracker:  tracker,
		store:    store,
		attempts: cfg.RetryAttempts,
		delay:    cfg.RetryDelay,
	}
}

// Restore seeds the tracker from the stored offset. It reports false when
// nothing is stored, in which case the reader starts from scratch. A corrupt
// offset is returned as an error and not retried.
func (c *Committer) Restore(ctx context.Context) (bool, error) {
	server := c.tracker.ServerName()

	var stored map[string]any
	err := c.do(ctx, "load", func() error {
		var err error
		stored, err = c.store.Load(ctx, c.tracker.Partition())
		return err
	})
	if err != nil {
		RestoresTotal.WithLabelValues(server, OutcomeFailed).Inc()
		return false, fmt.Errorf("load offset: %w", err)
	}

	if err := c.tracker.Load(stored); err != nil {
		if errors.Is(err, position.ErrNoCheckpoint) {
			RestoresTotal.WithLabelValues(server, OutcomeEmpty).Inc()
			logger.Info("[checkpoint] no stored offset", "server", server)
			return false, nil
		}

		RestoresTotal.WithLabelValues(server, OutcomeFailed).Inc()
		return false, fmt.Errorf("restore offset: %w", err)
	}

	c.committed = c.tracker.LSN()
	RestoresTotal.WithLabelValues(server, OutcomeRestored).Inc()
	logger.Info("[checkpoint] offset restored", "server", server, "position", c.tracker.String())
	return true, nil
}

// Commit stores the tracker's current offset and returns the position it
// covers, which is safe to acknowledge to the server.
func (c *Committer) Commit(ctx context.Context) (pg.LSN, error) {
	server := c.tracker.ServerName()
	partition := c.tracker.Partition()
	offset := c.tracker.Offset()
	lsn := c.tracker.LSN()
	inSnapshot := c.tracker.IsSnapshotInEffect()

	err := c.do(ctx, "save", func() error {
		return c.store.Save(ctx, partition, offset)
	})
	if err != nil {
		CommitFailuresTotal.WithLabelValues(server).Inc()
		return c.committed, fmt.Errorf("commit offset: %w", err)
	}

	c.committed = lsn
	CommitsTotal.WithLabelValues(server).Inc()
	CommittedLSN.WithLabelValues(server).Set(float64(lsn))
	SnapshotInEffect.WithLabelValues(server).Set(boolToFloat(inSnapshot))

	logger.Debug("[checkpoint] offset committed", "server", server, "lsn", lsn.String(), "snapshot", inSnapshot)
	return lsn, nil
}

// Reset drops the stored offset so the next session starts over.
func (c *Committer) Reset(ctx context.Context) error {
	err := c.do(ctx, "delete", func() error {
		return c.store.Delete(ctx, c.tracker.Partition())
	})
	if err != nil {
		return fmt.Errorf("reset offset: %w", err)
	}

	c.committed = pg.InvalidLSN
	logger.Warn("[checkpoint] stored offset removed", "server", c.tracker.ServerName())
	return nil
}

// Committed returns the position of the last successful commit or restore.
func (c *Committer) Committed() pg.LSN {
	return c.committed
}

func (c *Committer) do(ctx context.Context, op string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransientError),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("[checkpoint] store operation failed, retrying",
				"operation", op,
				"attempt", n+1,
				"error", err,
				"server", c.tracker.ServerName())
		}),
	)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
