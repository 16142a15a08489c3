package position

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/logger"
)

// Offset returns a fresh map holding only the position fields that are
// currently known, plus the snapshot markers while a snapshot is active.
// It is the value stored under Partition and later fed back to Load.
func (t *Tracker) Offset() map[string]any {
	offset := make(map[string]any, 6)
	if t.commitMicros != 0 {
		offset[TimestampKey] = t.commitMicros
	}
	if t.txID != 0 {
		offset[TxIDKey] = t.txID
	}
	if t.lsn.IsValid() {
		offset[LSNKey] = t.lsn.Int64()
	}
	if t.xmin != 0 {
		offset[XminKey] = t.xmin
	}
	if t.snapshot != SnapshotStreaming {
		offset[SnapshotKey] = true
		offset[LastSnapshotRecordKey] = t.snapshot == SnapshotLastRecord
	}
	return offset
}

// Load restores the position from a previously stored offset. Any subset of
// the position fields is accepted, since Offset omits whatever is unknown.
// The snapshot phase is resumed when the offset carries the snapshot key,
// whatever its value. An offset holding none of the offset keys is corrupt.
// On error the tracker is left unchanged.
func (t *Tracker) Load(stored map[string]any) error {
	if len(stored) == 0 {
		return ErrNoCheckpoint
	}

	lsn, hasLSN, err := int64Field(stored, LSNKey)
	if err != nil {
		return err
	}

	txID, hasTxID, err := int64Field(stored, TxIDKey)
	if err != nil {
		return err
	}

	xmin, hasXmin, err := int64Field(stored, XminKey)
	if err != nil {
		return err
	}

	commitMicros, hasTimestamp, err := int64Field(stored, TimestampKey)
	if err != nil {
		return err
	}

	_, hasSnapshot := stored[SnapshotKey]
	if !hasLSN && !hasTxID && !hasXmin && !hasTimestamp && !hasSnapshot {
		return fmt.Errorf("%w: %w: none of %s, %s, %s, %s or %s",
			ErrCorruptCheckpoint, ErrMissingField, LSNKey, TxIDKey, XminKey, TimestampKey, SnapshotKey)
	}

	state := SnapshotStreaming
	if hasSnapshot {
		state = SnapshotActive
		last, err := boolField(stored, LastSnapshotRecordKey)
		if err != nil {
			return err
		}
		if last {
			state = SnapshotLastRecord
		}
	}

	t.lsn = pg.LSNFromInt64(lsn)
	t.txID = txID
	t.xmin = xmin
	t.commitMicros = commitMicros
	t.snapshot = state

	logger.Debug("[position] offset loaded", "server", t.serverName, "lsn", t.lsn.String(), "txId", t.txID, "snapshot", t.snapshot.String())
	return nil
}

func malformedField(key string, v any) error {
	return fmt.Errorf("%w: %w: %s has %T value %v", ErrCorruptCheckpoint, ErrMalformedField, key, v, v)
}

// int64Field reads an optional numeric field. A nil value counts as absent.
func int64Field(m map[string]any, key string) (int64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	n, ok := toInt64(v)
	if !ok {
		return 0, false, malformedField(key, v)
	}

	return n, true, nil
}

func boolField(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, nil
	}

	b, ok := v.(bool)
	if !ok {
		return false, malformedField(key, v)
	}

	return b, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case pg.LSN:
		// same bit pattern Offset stores for positions past MaxInt64
		return n.Int64(), true
	case float64:
		return floatToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}

	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}

	return int64(f), true
}
