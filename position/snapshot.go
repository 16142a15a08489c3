package position

import "github.com/snapflowio/pgsource/logger"

// SnapshotState is the snapshot phase the tracker is in.
type SnapshotState uint8

const (
	SnapshotStreaming SnapshotState = iota
	SnapshotActive
	SnapshotLastRecord
)

func (s SnapshotState) String() string {
	switch s {
	case SnapshotStreaming:
		return "streaming"
	case SnapshotActive:
		return "active"
	case SnapshotLastRecord:
		return "last_record"
	default:
		return "unknown"
	}
}

func (t *Tracker) SnapshotState() SnapshotState {
	return t.snapshot
}

func (t *Tracker) StartSnapshot() {
	t.snapshot = SnapshotActive
	logger.Debug("[position] snapshot started", "server", t.serverName, "db", t.dbName)
}

func (t *Tracker) CompleteSnapshot() {
	t.snapshot = SnapshotStreaming
	logger.Debug("[position] snapshot completed", "server", t.serverName, "db", t.dbName)
}

// MarkLastSnapshotRecord flags the current record as the final one of the
// snapshot. Outside a snapshot it has no effect.
func (t *Tracker) MarkLastSnapshotRecord() *Tracker {
	if t.snapshot == SnapshotStreaming {
		logger.Warn("[position] last snapshot record marked outside of a snapshot", "server", t.serverName)
		return t
	}

	t.snapshot = SnapshotLastRecord
	return t
}

// IsSnapshotInEffect reports whether the current record belongs to the
// snapshot. The final snapshot record still counts as in effect; only the
// first record after CompleteSnapshot observes false.
func (t *Tracker) IsSnapshotInEffect() bool {
	return t.snapshot != SnapshotStreaming
}
