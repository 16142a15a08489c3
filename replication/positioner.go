package replication

import (
	"fmt"

	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/logger"
	"github.com/snapflowio/pgsource/message"
	"github.com/snapflowio/pgsource/message/format"
	"github.com/snapflowio/pgsource/position"
)

type PositionerOption func(*Positioner)

// WithXmin sets the xmin of the replication slot's snapshot, reported with
// every change.
func WithXmin(xmin int64) PositionerOption {
	return func(p *Positioner) {
		p.xmin = xmin
	}
}

// Positioner advances a position tracker from the replication stream. It
// must run on the goroutine that owns the tracker.
type Positioner struct {
	tracker *position.Tracker
	decoder *message.Decoder
	tx      *format.Begin
	xmin    int64
}

func NewPositioner(tracker *position.Tracker, opts ...PositionerOption) *Positioner {
	p := &Positioner{
		tracker: tracker,
		decoder: message.NewDecoder(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// HandleCopyData handles one CopyData payload of the replication stream and
// returns the decoded message, or nil when there is nothing to emit.
func (p *Positioner) HandleCopyData(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, message.ErrEmptyMessage
	}

	switch data[0] {
	case message.XLogDataByteID:
		xld, err := ParseXLogData(data[1:])
		if err != nil {
			return nil, fmt.Errorf("parse xlog data: %w", err)
		}
		return p.HandleXLogData(xld)
	case message.PrimaryKeepaliveMessageByteID:
		pkm, err := ParsePrimaryKeepalive(data[1:])
		if err != nil {
			return nil, fmt.Errorf("parse keepalive: %w", err)
		}
		p.HandleKeepalive(pkm)
		return &pkm, nil
	default:
		return nil, fmt.Errorf("%w: %c", message.ErrByteNotSupported, data[0])
	}
}

func (p *Positioner) HandleXLogData(xld XLogData) (any, error) {
	msg, err := p.decoder.Decode(xld.WALData)
	if err != nil {
		return nil, err
	}

	switch m := msg.(type) {
	case *format.Begin:
		p.tx = m
	case *format.Commit:
		p.tx = nil
	case *format.Change:
		p.advance(xld, m.XID, position.NewTableID(m.TableNamespace, m.TableName))
	case *format.Truncate:
		for _, rel := range m.Relations {
			p.advance(xld, m.XID, position.NewTableID(rel.Namespace, rel.Name))
		}
	}

	return msg, nil
}

func (p *Positioner) HandleKeepalive(pkm PrimaryKeepalive) {
	p.tracker.Heartbeat(pkm.ServerTime.UnixMicro(), position.TableID{})
}

func (p *Positioner) advance(xld XLogData, streamedXID uint32, table position.TableID) {
	commitTime := xld.ServerTime
	xid := streamedXID

	if p.tx != nil {
		commitTime = p.tx.CommitTime
		if xid == 0 {
			xid = p.tx.XID
		}
	}

	p.tracker.Update(xld.WALStart, commitTime, int64(xid), table, p.xmin)

	if logger.IsDebugEnabled() {
		logger.Debug("[positioner] position advanced", "lsn", xld.WALStart.String(), "txId", xid, "table", table.String())
	}
}

// LSN returns the position of the last change handed to the tracker.
func (p *Positioner) LSN() pg.LSN {
	return p.tracker.LSN()
}
