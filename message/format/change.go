package format

import (
	"encoding/binary"
	"fmt"
)

type Op string

const (
	OpInsert   Op = "INSERT"
	OpUpdate   Op = "UPDATE"
	OpDelete   Op = "DELETE"
	OpTruncate Op = "TRUNCATE"
)

// Change is the header of an insert, update or delete message. Tuple data is
// not decoded.
type Change struct {
	Op             Op
	TableNamespace string
	TableName      string
	OID            uint32
	XID            uint32
}

func NewChange(op Op, data []byte, streamedTransaction bool, relation map[uint32]*Relation) (*Change, error) {
	msg := &Change{Op: op}

	skipByte := 1
	if streamedTransaction {
		if len(data) < skipByte+8 {
			return nil, fmt.Errorf("streamed transaction %s message length must be at least %d bytes, but got %d", op, skipByte+8, len(data))
		}

		msg.XID = binary.BigEndian.Uint32(data[skipByte:])
		skipByte += 4
	}

	if len(data) < skipByte+4 {
		return nil, fmt.Errorf("%s message length must be at least %d bytes, but got %d", op, skipByte+4, len(data))
	}

	msg.OID = binary.BigEndian.Uint32(data[skipByte:])

	rel, ok := relation[msg.OID]
	if !ok {
		return nil, fmt.Errorf("relation %d not found", msg.OID)
	}

	msg.TableNamespace = rel.Namespace
	msg.TableName = rel.Name

	return msg, nil
}

type Truncate struct {
	Relations []*Relation
	XID       uint32
	Options   uint8
}

func NewTruncate(data []byte, streamedTransaction bool, relation map[uint32]*Relation) (*Truncate, error) {
	msg := &Truncate{}

	skipByte := 1
	if streamedTransaction {
		if len(data) < skipByte+4 {
			return nil, fmt.Errorf("streamed transaction truncate message length must be at least 5 bytes, but got %d", len(data))
		}

		msg.XID = binary.BigEndian.Uint32(data[skipByte:])
		skipByte += 4
	}

	if len(data) < skipByte+5 {
		return nil, fmt.Errorf("truncate message length must be at least %d bytes, but got %d", skipByte+5, len(data))
	}

	count := int(binary.BigEndian.Uint32(data[skipByte:]))
	skipByte += 4

	msg.Options = data[skipByte]
	skipByte++

	if len(data) < skipByte+count*4 {
		return nil, fmt.Errorf("truncate message declares %d relations but has %d bytes", count, len(data)-skipByte)
	}

	msg.Relations = make([]*Relation, 0, count)
	for i := 0; i < count; i++ {
		oid := binary.BigEndian.Uint32(data[skipByte:])
		skipByte += 4

		rel, ok := relation[oid]
		if !ok {
			return nil, fmt.Errorf("relation %d not found", oid)
		}

		msg.Relations = append(msg.Relations, rel)
	}

	return msg, nil
}
