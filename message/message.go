package message

import (
	"fmt"

	"github.com/snapflowio/pgsource/message/format"
)

const (
	StreamAbortByte  Type = 'A'
	BeginByte        Type = 'B'
	CommitByte       Type = 'C'
	DeleteByte       Type = 'D'
	StreamStopByte   Type = 'E'
	InsertByte       Type = 'I'
	LogicalByte      Type = 'M'
	OriginByte       Type = 'O'
	RelationByte     Type = 'R'
	StreamStartByte  Type = 'S'
	TruncateByte     Type = 'T'
	UpdateByte       Type = 'U'
	TypeByte         Type = 'Y'
	StreamCommitByte Type = 'c'
)

const (
	XLogDataByteID                = 'w'
	PrimaryKeepaliveMessageByteID = 'k'
)

var (
	ErrByteNotSupported = fmt.Errorf("message byte not supported")
	ErrEmptyMessage     = fmt.Errorf("empty message")
)

type Type uint8

// Decoder decodes pgoutput messages of a single replication stream. It
// remembers relations and whether a streamed transaction is open, so one
// Decoder must not be shared between streams.
type Decoder struct {
	relations           map[uint32]*format.Relation
	streamedTransaction bool
}

func NewDecoder() *Decoder {
	return &Decoder{relations: make(map[uint32]*format.Relation)}
}

// Decode returns nil without error for messages that only change the
// decoder's own state.
func (d *Decoder) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}

	switch Type(data[0]) {
	case BeginByte:
		return format.NewBegin(data)
	case CommitByte:
		return format.NewCommit(data)
	case InsertByte:
		return format.NewChange(format.OpInsert, data, d.streamedTransaction, d.relations)
	case UpdateByte:
		return format.NewChange(format.OpUpdate, data, d.streamedTransaction, d.relations)
	case DeleteByte:
		return format.NewChange(format.OpDelete, data, d.streamedTransaction, d.relations)
	case TruncateByte:
		return format.NewTruncate(data, d.streamedTransaction, d.relations)
	case RelationByte:
		msg, err := format.NewRelation(data, d.streamedTransaction)
		if err == nil {
			d.relations[msg.OID] = msg
		}

		return msg, err
	case StreamStartByte:
		d.streamedTransaction = true
		return nil, nil
	case StreamStopByte, StreamAbortByte, StreamCommitByte:
		d.streamedTransaction = false
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %c", ErrByteNotSupported, data[0])
	}
}

func (d *Decoder) Relation(oid uint32) (*format.Relation, bool) {
	rel, ok := d.relations[oid]
	return rel, ok
}
