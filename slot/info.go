package slot

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq"

	"github.com/snapflowio/pgsource/internal/pg"
)

const (
	Logical  Type = "logical"
	Physical Type = "physical"
)

var (
	ErrSlotNotExists = errors.New("slot does not exist")
	ErrNotLogical    = errors.New("slot is not logical")
)

var typeMap = pgtype.NewMap()

type Type string

type Info struct {
	Name              string `json:"name"`
	Type              Type   `json:"type"`
	WalStatus         string `json:"walStatus"`
	RestartLSN        pg.LSN `json:"restartLSN"`
	ConfirmedFlushLSN pg.LSN `json:"confirmedFlushLSN"`
	CurrentLSN        pg.LSN `json:"currentLSN"`
	RetainedWALSize   pg.LSN `json:"retainedWALSize"`
	Lag               pg.LSN `json:"lag"`
	Xmin              int64  `json:"xmin"`
	CatalogXmin       int64  `json:"catalogXmin"`
	ActivePID         int32  `json:"activePID"`
	Active            bool   `json:"active"`
}

// InfoQuery selects the columns DecodeInfo understands for one slot.
func InfoQuery(name string) string {
	return fmt.Sprintf("SELECT slot_name, slot_type, active, active_pid, restart_lsn, confirmed_flush_lsn, wal_status, xmin, catalog_xmin, PG_CURRENT_WAL_LSN() AS current_lsn FROM pg_replication_slots WHERE slot_name = %s;", pq.QuoteLiteral(name))
}

// DecodeInfo decodes the text-format result of InfoQuery.
func DecodeInfo(result *pgconn.Result) (*Info, error) {
	if result == nil || len(result.Rows) == 0 {
		return nil, ErrSlotNotExists
	}

	var slotInfo Info
	for i, fd := range result.FieldDescriptions {
		v, err := decodeTextColumnData(result.Rows[0][i], fd.DataTypeOID)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", fd.Name, err)
		}

		if v == nil {
			continue
		}

		switch fd.Name {
		case "slot_name":
			slotInfo.Name = v.(string)
		case "slot_type":
			slotInfo.Type = Type(v.(string))
		case "active":
			slotInfo.Active = v.(bool)
		case "active_pid":
			slotInfo.ActivePID = v.(int32)
		case "restart_lsn":
			slotInfo.RestartLSN, _ = pg.ParseLSN(v.(string))
		case "confirmed_flush_lsn":
			slotInfo.ConfirmedFlushLSN, _ = pg.ParseLSN(v.(string))
		case "wal_status":
			slotInfo.WalStatus = v.(string)
		case "current_lsn":
			slotInfo.CurrentLSN, _ = pg.ParseLSN(v.(string))
		case "xmin":
			slotInfo.Xmin = toXid(v)
		case "catalog_xmin":
			slotInfo.CatalogXmin = toXid(v)
		}
	}

	if slotInfo.Type != Logical {
		return nil, fmt.Errorf("%w: '%s' is %s", ErrNotLogical, slotInfo.Name, slotInfo.Type)
	}

	slotInfo.RetainedWALSize = slotInfo.CurrentLSN - slotInfo.RestartLSN
	slotInfo.Lag = slotInfo.CurrentLSN - slotInfo.ConfirmedFlushLSN

	return &slotInfo, nil
}

func decodeTextColumnData(data []byte, dataType uint32) (any, error) {
	if data == nil {
		return nil, nil
	}

	if dt, ok := typeMap.TypeForOID(dataType); ok {
		return dt.Codec.DecodeValue(typeMap, dataType, pgtype.TextFormatCode, data)
	}

	return string(data), nil
}

func toXid(v any) int64 {
	switch x := v.(type) {
	case uint32:
		return int64(x)
	case int64:
		return x
	case int32:
		return int64(x)
	default:
		return 0
	}
}
