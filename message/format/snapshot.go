package format

import (
	"time"

	"github.com/snapflowio/pgsource/internal/pg"
)

type SnapshotEventType string

const (
	SnapshotEventTypeBegin SnapshotEventType = "BEGIN"
	SnapshotEventTypeData  SnapshotEventType = "DATA"
	SnapshotEventTypeEnd   SnapshotEventType = "END"
)

// Snapshot is one event of the initial snapshot. Data events carry a row;
// IsLast marks the final row of the whole snapshot.
type Snapshot struct {
	ServerTime time.Time
	Data       map[string]any
	EventType  SnapshotEventType
	Table      string
	Schema     string
	LSN        pg.LSN
	TotalRows  int64
	IsLast     bool
}
