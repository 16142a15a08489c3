package message

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapflowio/pgsource/internal/pg"
	"github.com/snapflowio/pgsource/message/format"
)

func relationMsg(oid uint32, namespace, name string) []byte {
	data := []byte{byte(RelationByte)}
	data = binary.BigEndian.AppendUint32(data, oid)
	data = append(data, namespace...)
	data = append(data, 0)
	data = append(data, name...)
	data = append(data, 0)
	data = append(data, 'd')
	data = binary.BigEndian.AppendUint16(data, 1)
	data = append(data, 1)
	data = append(data, "id"...)
	data = append(data, 0)
	data = binary.BigEndian.AppendUint32(data, 23)
	data = binary.BigEndian.AppendUint32(data, 0xFFFFFFFF)
	return data
}

func beginMsg(finalLSN pg.LSN, commit time.Time, xid uint32) []byte {
	data := []byte{byte(BeginByte)}
	data = binary.BigEndian.AppendUint64(data, uint64(finalLSN))
	data = binary.BigEndian.AppendUint64(data, uint64(pg.TimeToPgMicros(commit)))
	data = binary.BigEndian.AppendUint32(data, xid)
	return data
}

func changeMsg(op Type, oid uint32) []byte {
	data := []byte{byte(op)}
	data = binary.BigEndian.AppendUint32(data, oid)
	return append(data, 'N', 0, 0)
}

func TestDecoder_Begin(t *testing.T) {
	commit := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	msg, err := NewDecoder().Decode(beginMsg(0x1000, commit, 77))
	require.NoError(t, err)

	begin, ok := msg.(*format.Begin)
	require.True(t, ok)
	assert.Equal(t, pg.LSN(0x1000), begin.FinalLSN)
	assert.True(t, begin.CommitTime.Equal(commit))
	assert.Equal(t, uint32(77), begin.XID)
}

func TestDecoder_Commit(t *testing.T) {
	commit := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	data := []byte{byte(CommitByte), 0}
	data = binary.BigEndian.AppendUint64(data, 0x1000)
	data = binary.BigEndian.AppendUint64(data, 0x1040)
	data = binary.BigEndian.AppendUint64(data, uint64(pg.TimeToPgMicros(commit)))

	msg, err := NewDecoder().Decode(data)
	require.NoError(t, err)

	c, ok := msg.(*format.Commit)
	require.True(t, ok)
	assert.Equal(t, pg.LSN(0x1000), c.CommitLSN)
	assert.Equal(t, pg.LSN(0x1040), c.EndLSN)
	assert.True(t, c.CommitTime.Equal(commit))
	assert.Zero(t, c.Flags)
}

func TestDecoder_ChangeResolvesRelation(t *testing.T) {
	d := NewDecoder()

	msg, err := d.Decode(relationMsg(16384, "public", "orders"))
	require.NoError(t, err)
	rel := msg.(*format.Relation)
	assert.Equal(t, "orders", rel.Name)
	require.Len(t, rel.Columns, 1)
	assert.True(t, rel.Columns[0].IsKey())

	for _, op := range []Type{InsertByte, UpdateByte, DeleteByte} {
		msg, err = d.Decode(changeMsg(op, 16384))
		require.NoError(t, err)

		change := msg.(*format.Change)
		assert.Equal(t, "public", change.TableNamespace)
		assert.Equal(t, "orders", change.TableName)
	}
}

func TestDecoder_ChangeUnknownRelation(t *testing.T) {
	_, err := NewDecoder().Decode(changeMsg(InsertByte, 1))
	require.Error(t, err)
}

func TestDecoder_StreamedTransaction(t *testing.T) {
	d := NewDecoder()

	start := []byte{byte(StreamStartByte)}
	start = binary.BigEndian.AppendUint32(start, 900)
	start = append(start, 1)
	msg, err := d.Decode(start)
	require.NoError(t, err)
	assert.Nil(t, msg)

	rel := []byte{byte(RelationByte)}
	rel = binary.BigEndian.AppendUint32(rel, 900)
	rel = append(rel, relationMsg(5, "public", "orders")[1:]...)
	_, err = d.Decode(rel)
	require.NoError(t, err)

	insert := []byte{byte(InsertByte)}
	insert = binary.BigEndian.AppendUint32(insert, 900)
	insert = binary.BigEndian.AppendUint32(insert, 5)
	insert = append(insert, 'N', 0, 0)
	msg, err = d.Decode(insert)
	require.NoError(t, err)
	assert.Equal(t, uint32(900), msg.(*format.Change).XID)

	_, err = d.Decode([]byte{byte(StreamStopByte)})
	require.NoError(t, err)

	msg, err = d.Decode(changeMsg(InsertByte, 5))
	require.NoError(t, err)
	assert.Zero(t, msg.(*format.Change).XID)
}

func TestDecoder_Truncate(t *testing.T) {
	d := NewDecoder()
	_, err := d.Decode(relationMsg(1, "public", "orders"))
	require.NoError(t, err)
	_, err = d.Decode(relationMsg(2, "public", "customers"))
	require.NoError(t, err)

	data := []byte{byte(TruncateByte)}
	data = binary.BigEndian.AppendUint32(data, 2)
	data = append(data, 0)
	data = binary.BigEndian.AppendUint32(data, 1)
	data = binary.BigEndian.AppendUint32(data, 2)

	msg, err := d.Decode(data)
	require.NoError(t, err)

	truncate := msg.(*format.Truncate)
	require.Len(t, truncate.Relations, 2)
	assert.Equal(t, "customers", truncate.Relations[1].Name)
}

func TestDecoder_Errors(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode(nil)
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = d.Decode([]byte{byte(TypeByte)})
	require.ErrorIs(t, err, ErrByteNotSupported)

	_, err = d.Decode([]byte{byte(BeginByte), 0, 0})
	require.Error(t, err)
}
