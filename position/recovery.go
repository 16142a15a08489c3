package position

import (
	"time"

	"github.com/snapflowio/pgsource/internal/pg"
)

// RecoveryState is a read-only copy of what is needed to decide where to
// resume streaming.
type RecoveryState struct {
	CommitTime       time.Time
	LSN              pg.LSN
	TxID             int64
	Xmin             int64
	SnapshotInEffect bool
}

func (r RecoveryState) HasLastKnownPosition() bool {
	return r.LSN.IsValid()
}

func (t *Tracker) RecoveryState() RecoveryState {
	return RecoveryState{
		LSN:              t.lsn,
		TxID:             t.txID,
		Xmin:             t.xmin,
		CommitTime:       fromMicros(t.commitMicros),
		SnapshotInEffect: t.IsSnapshotInEffect(),
	}
}
