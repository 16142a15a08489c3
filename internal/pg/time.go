package pg

import "time"

// Postgres timestamps on the replication protocol count microseconds from
// 2000-01-01 UTC.
const microsFromUnixEpochToY2K = int64(946684800) * 1_000_000

func TimeFromPgMicros(microsSinceY2K int64) time.Time {
	return time.UnixMicro(microsSinceY2K + microsFromUnixEpochToY2K).UTC()
}

func TimeToPgMicros(t time.Time) int64 {
	return t.UnixMicro() - microsFromUnixEpochToY2K
}
