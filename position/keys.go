package position

// Wire names of the partition, offset and envelope fields. Renaming any of
// these breaks stored offsets and downstream consumers.
const (
	ServerPartitionKey    = "server"
	ServerNameKey         = "name"
	DatabaseNameKey       = "db"
	TimestampKey          = "ts_usec"
	TxIDKey               = "txId"
	XminKey               = "xmin"
	LSNKey                = "lsn"
	SchemaNameKey         = "schema"
	TableNameKey          = "table"
	SnapshotKey           = "snapshot"
	LastSnapshotRecordKey = "last_snapshot_record"
	VersionKey            = "version"
	ConnectorKey          = "connector"
)
