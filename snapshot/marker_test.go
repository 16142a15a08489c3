package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/message/format"
	"github.com/snapflowio/pgsource/position"
)

var serverTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func row(table string, last bool) *format.Snapshot {
	return &format.Snapshot{
		EventType:  format.SnapshotEventTypeData,
		ServerTime: serverTime,
		Schema:     "public",
		Table:      table,
		LSN:        0x500,
		Data:       map[string]any{"id": 1},
		IsLast:     last,
	}
}

func TestMarker_BracketsSnapshot(t *testing.T) {
	tr, err := position.New("pg1", "inventory")
	require.NoError(t, err)

	var envelopes []position.Envelope
	m := NewMarker(tr, func(_ *format.Snapshot, env position.Envelope) error {
		envelopes = append(envelopes, env)
		return nil
	}, WithTransaction(77, 40))

	require.NoError(t, m.Handle(&format.Snapshot{EventType: format.SnapshotEventTypeBegin, LSN: 0x500}))
	assert.True(t, tr.IsSnapshotInEffect())

	require.NoError(t, m.Handle(row("orders", false)))
	require.NoError(t, m.Handle(row("customers", true)))
	assert.True(t, tr.IsSnapshotInEffect())

	require.NoError(t, m.Handle(&format.Snapshot{EventType: format.SnapshotEventTypeEnd, TotalRows: 2}))
	assert.False(t, tr.IsSnapshotInEffect())
	assert.Equal(t, int64(2), m.Rows())

	require.Len(t, envelopes, 2)
	assert.Equal(t, "orders", envelopes[0].Table)
	assert.False(t, *envelopes[0].LastSnapshotRecord)
	assert.True(t, *envelopes[0].Snapshot)
	assert.Equal(t, "customers", envelopes[1].Table)
	assert.True(t, *envelopes[1].LastSnapshotRecord)
	assert.Equal(t, int64(77), *envelopes[1].TxID)
	assert.Equal(t, int64(40), *envelopes[1].Xmin)
	assert.Equal(t, pg.LSN(0x500).Int64(), *envelopes[1].LSN)

	assert.NotContains(t, tr.Offset(), position.SnapshotKey)
}

func TestMarker_OutOfSequence(t *testing.T) {
	tr, err := position.New("pg1", "inventory")
	require.NoError(t, err)
	m := NewMarker(tr, nil)

	require.ErrorIs(t, m.Handle(row("orders", false)), ErrOutOfSequence)
	require.ErrorIs(t, m.Handle(&format.Snapshot{EventType: format.SnapshotEventTypeEnd}), ErrOutOfSequence)

	require.NoError(t, m.Handle(&format.Snapshot{EventType: format.SnapshotEventTypeBegin}))
	require.ErrorIs(t, m.Handle(&format.Snapshot{EventType: format.SnapshotEventTypeBegin}), ErrOutOfSequence)

	require.Error(t, m.Handle(&format.Snapshot{EventType: "OTHER"}))
}

func TestMarker_HandlerError(t *testing.T) {
	tr, err := position.New("pg1", "inventory")
	require.NoError(t, err)

	boom := errors.New("boom")
	m := NewMarker(tr, func(*format.Snapshot, position.Envelope) error { return boom })

	require.NoError(t, m.Handle(&format.Snapshot{EventType: format.SnapshotEventTypeBegin}))
	require.ErrorIs(t, m.Handle(row("orders", false)), boom)
}
