package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type Column struct {
	Name         string
	DataType     uint32
	TypeModifier uint32
	Flags        uint8
}

func (c Column) IsKey() bool {
	return c.Flags&1 == 1
}

type Relation struct {
	Namespace     string
	Name          string
	Columns       []Column
	OID           uint32
	XID           uint32
	ColumnNumbers uint16
	ReplicaID     uint8
}

func NewRelation(data []byte, streamedTransaction bool) (*Relation, error) {
	msg := &Relation{}
	if err := msg.decode(data, streamedTransaction); err != nil {
		return nil, err
	}

	return msg, nil
}

func (m *Relation) decode(data []byte, streamedTransaction bool) error {
	skipByte := 1

	if streamedTransaction {
		if len(data) < 12 {
			return fmt.Errorf("streamed transaction relation message length must be at least 12 bytes, but got %d", len(data))
		}

		m.XID = binary.BigEndian.Uint32(data[skipByte:])
		skipByte += 4
	}

	if len(data) < skipByte+4 {
		return fmt.Errorf("relation message length must be at least %d bytes, but got %d", skipByte+4, len(data))
	}

	m.OID = binary.BigEndian.Uint32(data[skipByte:])
	skipByte += 4

	var usedByteCount int
	m.Namespace, usedByteCount = decodeString(data[skipByte:])
	if usedByteCount < 0 {
		return fmt.Errorf("relation message namespace decode error")
	}

	skipByte += usedByteCount

	m.Name, usedByteCount = decodeString(data[skipByte:])
	if usedByteCount < 0 {
		return fmt.Errorf("relation message name decode error")
	}

	skipByte += usedByteCount

	if len(data) < skipByte+3 {
		return fmt.Errorf("relation message truncated after name")
	}

	m.ReplicaID = data[skipByte]
	skipByte++

	m.ColumnNumbers = binary.BigEndian.Uint16(data[skipByte:])
	skipByte += 2

	m.Columns = make([]Column, m.ColumnNumbers)
	for i := range m.Columns {
		if len(data) < skipByte+1 {
			return fmt.Errorf("relation message columns[%d] truncated", i)
		}

		col := Column{}
		col.Flags = data[skipByte]
		skipByte++

		col.Name, usedByteCount = decodeString(data[skipByte:])
		if usedByteCount < 0 {
			return fmt.Errorf("relation message columns[%d].name decode error", i)
		}

		skipByte += usedByteCount

		if len(data) < skipByte+8 {
			return fmt.Errorf("relation message columns[%d] truncated", i)
		}

		col.DataType = binary.BigEndian.Uint32(data[skipByte:])
		skipByte += 4

		col.TypeModifier = binary.BigEndian.Uint32(data[skipByte:])
		skipByte += 4

		m.Columns[i] = col
	}

	return nil
}

func decodeString(data []byte) (string, int) {
	end := bytes.IndexByte(data, byte(0))
	if end == -1 {
		return "", -1
	}

	return string(data[:end]), end + 1
}
