package snapshot

import (
	"errors"
	"fmt"

	"github.com/snapflowio/pgsource/logger"
	"github.com/snapflowio/pgsource/message/format"
	"github.com/snapflowio/pgsource/position"
)

var ErrOutOfSequence = errors.New("snapshot event out of sequence")

// Handler receives every snapshot row together with its source envelope.
type Handler func(event *format.Snapshot, source position.Envelope) error

type Option func(*Marker)

// WithTransaction sets the id and xmin of the exported snapshot transaction
// reported with every snapshot row.
func WithTransaction(txID, xmin int64) Option {
	return func(m *Marker) {
		m.txID = txID
		m.xmin = xmin
	}
}

// Marker brackets the rows of an initial snapshot on a position tracker:
// BEGIN starts the snapshot, the row flagged IsLast is marked as the last
// snapshot record and END completes it.
type Marker struct {
	tracker *position.Tracker
	handler Handler
	txID    int64
	xmin    int64
	rows    int64
	active  bool
}

func NewMarker(tracker *position.Tracker, handler Handler, opts ...Option) *Marker {
	m := &Marker{
		tracker: tracker,
		handler: handler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Marker) Handle(event *format.Snapshot) error {
	switch event.EventType {
	case format.SnapshotEventTypeBegin:
		return m.begin(event)
	case format.SnapshotEventTypeData:
		return m.data(event)
	case format.SnapshotEventTypeEnd:
		return m.end(event)
	default:
		return fmt.Errorf("unknown snapshot event type: %q", event.EventType)
	}
}

func (m *Marker) begin(event *format.Snapshot) error {
	if m.active {
		return fmt.Errorf("%w: BEGIN while snapshot is active", ErrOutOfSequence)
	}

	m.active = true
	m.rows = 0
	m.tracker.StartSnapshot()

	logger.Info("[snapshot] snapshot started", "server", m.tracker.ServerName(), "lsn", event.LSN.String())
	return nil
}

func (m *Marker) data(event *format.Snapshot) error {
	if !m.active {
		return fmt.Errorf("%w: DATA before BEGIN", ErrOutOfSequence)
	}

	m.tracker.Update(event.LSN, event.ServerTime, m.txID, position.NewTableID(event.Schema, event.Table), m.xmin)
	if event.IsLast {
		m.tracker.MarkLastSnapshotRecord()
	}

	env, err := m.tracker.Envelope()
	if err != nil {
		return fmt.Errorf("snapshot envelope: %w", err)
	}

	m.rows++

	if m.handler == nil {
		return nil
	}

	return m.handler(event, env)
}

func (m *Marker) end(event *format.Snapshot) error {
	if !m.active {
		return fmt.Errorf("%w: END before BEGIN", ErrOutOfSequence)
	}

	m.active = false
	m.tracker.CompleteSnapshot()

	logger.Info("[snapshot] snapshot completed", "server", m.tracker.ServerName(), "rows", m.rows, "totalRows", event.TotalRows)
	return nil
}

// Rows returns the number of rows handled in the current or last snapshot.
func (m *Marker) Rows() int64 {
	return m.rows
}
