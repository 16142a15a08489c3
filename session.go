package pgsource

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/snapflowio/pgsource/checkpoint"
	"github.com/snapflowio/pgsource/config"
	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/logger"
	"github.com/snapflowio/pgsource/position"
	"github.com/snapflowio/pgsource/replication"
	"github.com/snapflowio/pgsource/slot"
	"github.com/snapflowio/pgsource/snapshot"
)

// Session ties the position tracker of one reader to its checkpoint store.
// It is not safe for concurrent use: the goroutine reading the replication
// stream owns it.
type Session struct {
	cfg        *config.Config
	tracker    *position.Tracker
	store      checkpoint.Store
	committer  *checkpoint.Committer
	positioner *replication.Positioner
	restored   bool
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	store      checkpoint.Store
	registerer prometheus.Registerer
	xmin       int64
}

// WithStore uses store instead of opening the one described by the config.
func WithStore(store checkpoint.Store) SessionOption {
	return func(o *sessionOptions) {
		o.store = store
	}
}

// WithRegisterer exports the checkpoint metrics through reg instead of the
// default registerer.
func WithRegisterer(reg prometheus.Registerer) SessionOption {
	return func(o *sessionOptions) {
		o.registerer = reg
	}
}

// WithSlotXmin sets the xmin of the replication slot's snapshot.
func WithSlotXmin(xmin int64) SessionOption {
	return func(o *sessionOptions) {
		o.xmin = xmin
	}
}

func NewSession(ctx context.Context, cfg config.Config, opts ...SessionOption) (*Session, error) {
	cfg.SetDefault()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logger.SetLevel(cfg.Logger.LogLevel)
	logger.Info("[session] starting", "config", cfg.String())

	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkpoint.RegisterMetrics(o.registerer); err != nil {
		return nil, err
	}

	tracker, err := position.New(cfg.ServerName, cfg.Database,
		position.WithConnector(cfg.Connector),
		position.WithVersion(cfg.Version))
	if err != nil {
		return nil, fmt.Errorf("create position tracker: %w", err)
	}

	store := o.store
	if store == nil {
		store, err = checkpoint.Open(ctx, cfg.Checkpoint)
		if err != nil {
			return nil, fmt.Errorf("open checkpoint store: %w", err)
		}
	}

	s := &Session{
		cfg:        &cfg,
		tracker:    tracker,
		store:      store,
		committer:  checkpoint.NewCommitter(tracker, store, cfg.Checkpoint),
		positioner: replication.NewPositioner(tracker, replication.WithXmin(o.xmin)),
	}

	s.restored, err = s.committer.Restore(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return s, nil
}

func (s *Session) Tracker() *position.Tracker {
	return s.tracker
}

// Restored reports whether the session resumed from a stored offset.
func (s *Session) Restored() bool {
	return s.restored
}

// ShouldSnapshot reports whether an initial snapshot has to run or resume:
// either nothing was stored, or the stored offset is inside a snapshot.
func (s *Session) ShouldSnapshot() bool {
	return !s.restored || s.tracker.IsSnapshotInEffect()
}

// StartLSN picks the streaming start position for the given slot.
func (s *Session) StartLSN(info *slot.Info) (pg.LSN, bool) {
	return slot.StartLSN(info, s.tracker.RecoveryState())
}

// ResumeLSN reads the configured slot and picks the streaming start position.
// It reports false while the stored offset is inside a snapshot.
func (s *Session) ResumeLSN(ctx context.Context, exec slot.Executor) (pg.LSN, bool, error) {
	info, err := slot.ReadInfo(ctx, exec, s.cfg.Slot)
	if err != nil {
		return pg.InvalidLSN, false, err
	}

	lsn, ok := s.StartLSN(info)
	return lsn, ok, nil
}

// HandleCopyData advances the tracker with one replication CopyData payload.
func (s *Session) HandleCopyData(data []byte) (any, error) {
	return s.positioner.HandleCopyData(data)
}

// SnapshotMarker returns a marker that brackets snapshot events on the
// session's tracker.
func (s *Session) SnapshotMarker(handler snapshot.Handler, opts ...snapshot.Option) *snapshot.Marker {
	return snapshot.NewMarker(s.tracker, handler, opts...)
}

// Commit stores the current offset and returns the standby status update
// acknowledging it to the server.
func (s *Session) Commit(ctx context.Context) ([]byte, error) {
	lsn, err := s.committer.Commit(ctx)
	if err != nil {
		return nil, err
	}

	return replication.EncodeStandbyStatusUpdate(lsn, time.Now())
}

func (s *Session) Close() error {
	logger.Info("[session] closing", "position", s.tracker.String())
	return s.store.Close()
}
