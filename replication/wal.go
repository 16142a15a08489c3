package replication

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgproto3"

	"github.com/snapflowio/pgsource/internal/pg"
)

const StandbyStatusUpdateByteID = 'r'

type XLogData struct {
	ServerTime   time.Time
	WALData      []byte
	WALStart     pg.LSN
	ServerWALEnd pg.LSN
}

func ParseXLogData(buf []byte) (XLogData, error) {
	var xld XLogData
	if len(buf) < 24 {
		return xld, fmt.Errorf("XLogData must be at least 24 bytes, got %d", len(buf))
	}

	xld.WALStart = pg.LSN(binary.BigEndian.Uint64(buf))
	xld.ServerWALEnd = pg.LSN(binary.BigEndian.Uint64(buf[8:]))
	xld.ServerTime = pg.TimeFromPgMicros(int64(binary.BigEndian.Uint64(buf[16:])))
	xld.WALData = buf[24:]

	return xld, nil
}

type PrimaryKeepalive struct {
	ServerTime     time.Time
	ServerWALEnd   pg.LSN
	ReplyRequested bool
}

func ParsePrimaryKeepalive(buf []byte) (PrimaryKeepalive, error) {
	var pkm PrimaryKeepalive
	if len(buf) != 17 {
		return pkm, fmt.Errorf("PrimaryKeepaliveMessage must be 17 bytes, got %d", len(buf))
	}

	pkm.ServerWALEnd = pg.LSN(binary.BigEndian.Uint64(buf))
	pkm.ServerTime = pg.TimeFromPgMicros(int64(binary.BigEndian.Uint64(buf[8:])))
	pkm.ReplyRequested = buf[16] != 0

	return pkm, nil
}

// EncodeStandbyStatusUpdate builds the CopyData frame acknowledging walPos as
// written, flushed and applied.
func EncodeStandbyStatusUpdate(walPos pg.LSN, now time.Time) ([]byte, error) {
	data := make([]byte, 0, 34)
	data = append(data, StandbyStatusUpdateByteID)
	data = binary.BigEndian.AppendUint64(data, uint64(walPos))
	data = binary.BigEndian.AppendUint64(data, uint64(walPos))
	data = binary.BigEndian.AppendUint64(data, uint64(walPos))
	data = binary.BigEndian.AppendUint64(data, uint64(pg.TimeToPgMicros(now)))
	data = append(data, 0)

	cd := &pgproto3.CopyData{Data: data}
	return cd.Encode(nil)
}
