// Package position tracks where a logical replication reader is in the
// source's write-ahead log and whether it is inside the initial snapshot.
//
// A Tracker is owned by a single reader. It does no locking: all mutations
// must happen on the reader's goroutine, and readers on other goroutines must
// synchronize with it themselves.
package position

import (
	"fmt"
	"strings"
	"time"

	"github.com/snapflowio/pgsource/internal/pg"
)

type TableID struct {
	Schema string
	Table  string
}

func NewTableID(schema, table string) TableID {
	return TableID{Schema: schema, Table: table}
}

func (t TableID) String() string {
	return t.Schema + "." + t.Table
}

func (t TableID) IsZero() bool {
	return t.Schema == "" && t.Table == ""
}

type Option func(*Tracker)

// WithConnector sets the connector name reported in every envelope.
func WithConnector(name string) Option {
	return func(t *Tracker) {
		t.connector = name
	}
}

// WithVersion sets the connector version reported in every envelope.
func WithVersion(version string) Option {
	return func(t *Tracker) {
		t.version = version
	}
}

type Tracker struct {
	// Identity
	serverName string
	dbName     string
	partition  map[string]string
	connector  string
	version    string

	// Position; zero means unknown
	lsn          pg.LSN
	txID         int64
	xmin         int64
	commitMicros int64

	// Snapshot
	snapshot SnapshotState

	// Current record
	schemaName string
	tableName  string
}

func New(serverName, dbName string, opts ...Option) (*Tracker, error) {
	if strings.TrimSpace(serverName) == "" {
		return nil, fmt.Errorf("%w: server name cannot be empty", ErrInvalidArgument)
	}

	if strings.TrimSpace(dbName) == "" {
		return nil, fmt.Errorf("%w: database name cannot be empty", ErrInvalidArgument)
	}

	t := &Tracker{
		serverName: serverName,
		dbName:     dbName,
		partition:  map[string]string{ServerPartitionKey: serverName},
		snapshot:   SnapshotStreaming,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Partition returns the key under which this source's offsets are stored.
// All databases of one server share a partition.
func (t *Tracker) Partition() map[string]string {
	return map[string]string{ServerPartitionKey: t.partition[ServerPartitionKey]}
}

// Update records the position of a consumed change event. Zero values mean
// "not supplied" and clear the corresponding field. The table context is only
// replaced by its non-empty components.
func (t *Tracker) Update(lsn pg.LSN, commitTime time.Time, txID int64, table TableID, xmin int64) *Tracker {
	t.lsn = lsn
	t.commitMicros = toMicros(commitTime)
	t.txID = txID
	t.xmin = xmin
	t.setTable(table)
	return t
}

// Heartbeat records an event that carries a commit timestamp but no new log
// position. LSN, txId and xmin are left untouched.
func (t *Tracker) Heartbeat(commitMicros int64, table TableID) *Tracker {
	t.commitMicros = commitMicros
	t.setTable(table)
	return t
}

func (t *Tracker) setTable(table TableID) {
	if table.Schema != "" {
		t.schemaName = table.Schema
	}

	if table.Table != "" {
		t.tableName = table.Table
	}
}

func (t *Tracker) ServerName() string {
	return t.serverName
}

func (t *Tracker) DatabaseName() string {
	return t.dbName
}

func (t *Tracker) LSN() pg.LSN {
	return t.lsn
}

func (t *Tracker) TxID() int64 {
	return t.txID
}

func (t *Tracker) Xmin() int64 {
	return t.xmin
}

func (t *Tracker) CommitMicros() int64 {
	return t.commitMicros
}

// Table returns the table context of the current record.
func (t *Tracker) Table() TableID {
	return TableID{Schema: t.schemaName, Table: t.tableName}
}

func (t *Tracker) HasLastKnownPosition() bool {
	return t.lsn.IsValid()
}

func (t *Tracker) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "position[server=%s db=%s", t.serverName, t.dbName)
	if t.lsn.IsValid() {
		fmt.Fprintf(&sb, " lsn=%s", t.lsn)
	}
	if t.txID != 0 {
		fmt.Fprintf(&sb, " txId=%d", t.txID)
	}
	if t.xmin != 0 {
		fmt.Fprintf(&sb, " xmin=%d", t.xmin)
	}
	if t.commitMicros != 0 {
		fmt.Fprintf(&sb, " ts_usec=%d", t.commitMicros)
	}
	fmt.Fprintf(&sb, " snapshot=%s", t.snapshot)
	if t.schemaName != "" {
		fmt.Fprintf(&sb, " schema=%s", t.schemaName)
	}
	if t.tableName != "" {
		fmt.Fprintf(&sb, " table=%s", t.tableName)
	}
	sb.WriteByte(']')
	return sb.String()
}

func toMicros(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.UnixMicro()
}

func fromMicros(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}
