package slot

import (
	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/logger"
	"github.com/snapflowio/pgsource/position"
)

// StartLSN picks the position to start streaming from. It reports false
// while the stored offset says a snapshot is still in effect: the snapshot
// has to be resumed before streaming starts. Otherwise the later of the
// stored position and the slot's confirmed flush position wins, since the
// server never replays anything before confirmed_flush_lsn.
func StartLSN(info *Info, state position.RecoveryState) (pg.LSN, bool) {
	if state.SnapshotInEffect {
		logger.Info("[slot] snapshot in effect, streaming deferred", "slot", info.Name, "lsn", state.LSN.String())
		return pg.InvalidLSN, false
	}

	start := info.ConfirmedFlushLSN
	if state.LSN > start {
		start = state.LSN
	}

	logger.Debug("[slot] resume position selected", "slot", info.Name, "checkpointLSN", state.LSN.String(), "confirmedFlushLSN", info.ConfirmedFlushLSN.String(), "start", start.String())
	return start, true
}
