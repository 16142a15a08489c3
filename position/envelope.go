package position

import "fmt"

// Envelope is the source metadata attached to every emitted change event.
type Envelope struct {
	Version            string `json:"version,omitempty"`
	Connector          string `json:"connector,omitempty"`
	Name               string `json:"name"`
	DB                 string `json:"db"`
	TsUsec             *int64 `json:"ts_usec,omitempty"`
	TxID               *int64 `json:"txId,omitempty"`
	LSN                *int64 `json:"lsn,omitempty"`
	Schema             string `json:"schema"`
	Table              string `json:"table"`
	Snapshot           *bool  `json:"snapshot,omitempty"`
	LastSnapshotRecord *bool  `json:"last_snapshot_record,omitempty"`
	Xmin               *int64 `json:"xmin,omitempty"`
}

// Envelope combines the source identity, the current table and the current
// offset. It fails until an update has established a table context.
func (t *Tracker) Envelope() (Envelope, error) {
	if t.schemaName == "" || t.tableName == "" {
		return Envelope{}, fmt.Errorf("%w: envelope requires a table context, got schema=%q table=%q", ErrPreconditionViolation, t.schemaName, t.tableName)
	}

	env := Envelope{
		Version:   t.version,
		Connector: t.connector,
		Name:      t.serverName,
		DB:        t.dbName,
		Schema:    t.schemaName,
		Table:     t.tableName,
	}

	for key, v := range t.Offset() {
		switch key {
		case TimestampKey:
			env.TsUsec = int64Ptr(v)
		case TxIDKey:
			env.TxID = int64Ptr(v)
		case LSNKey:
			env.LSN = int64Ptr(v)
		case XminKey:
			env.Xmin = int64Ptr(v)
		case SnapshotKey:
			env.Snapshot = boolPtr(v)
		case LastSnapshotRecordKey:
			env.LastSnapshotRecord = boolPtr(v)
		}
	}

	return env, nil
}

// Map flattens the envelope into wire field names, omitting unset fields.
func (e Envelope) Map() map[string]any {
	m := map[string]any{
		ServerNameKey:   e.Name,
		DatabaseNameKey: e.DB,
		SchemaNameKey:   e.Schema,
		TableNameKey:    e.Table,
	}
	if e.Version != "" {
		m[VersionKey] = e.Version
	}
	if e.Connector != "" {
		m[ConnectorKey] = e.Connector
	}
	if e.TsUsec != nil {
		m[TimestampKey] = *e.TsUsec
	}
	if e.TxID != nil {
		m[TxIDKey] = *e.TxID
	}
	if e.LSN != nil {
		m[LSNKey] = *e.LSN
	}
	if e.Xmin != nil {
		m[XminKey] = *e.Xmin
	}
	if e.Snapshot != nil {
		m[SnapshotKey] = *e.Snapshot
	}
	if e.LastSnapshotRecord != nil {
		m[LastSnapshotRecordKey] = *e.LastSnapshotRecord
	}
	return m
}

type FieldKind string

const (
	FieldString  FieldKind = "string"
	FieldInt64   FieldKind = "int64"
	FieldBoolean FieldKind = "boolean"
)

type Field struct {
	Name     string
	Kind     FieldKind
	Optional bool
}

// EnvelopeFields lists the envelope fields in their published order.
var EnvelopeFields = []Field{
	{Name: VersionKey, Kind: FieldString, Optional: true},
	{Name: ConnectorKey, Kind: FieldString, Optional: true},
	{Name: ServerNameKey, Kind: FieldString},
	{Name: DatabaseNameKey, Kind: FieldString},
	{Name: TimestampKey, Kind: FieldInt64, Optional: true},
	{Name: TxIDKey, Kind: FieldInt64, Optional: true},
	{Name: LSNKey, Kind: FieldInt64, Optional: true},
	{Name: SchemaNameKey, Kind: FieldString, Optional: true},
	{Name: TableNameKey, Kind: FieldString, Optional: true},
	{Name: SnapshotKey, Kind: FieldBoolean, Optional: true},
	{Name: LastSnapshotRecordKey, Kind: FieldBoolean, Optional: true},
	{Name: XminKey, Kind: FieldInt64, Optional: true},
}

func int64Ptr(v any) *int64 {
	n, ok := v.(int64)
	if !ok {
		return nil
	}
	return &n
}

func boolPtr(v any) *bool {
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}
