package position

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RequiresTableContext(t *testing.T) {
	tr := newTracker(t)
	_, err := tr.Envelope()
	require.ErrorIs(t, err, ErrPreconditionViolation)

	tr.Update(100, commitTime, 55, TableID{Schema: "public"}, 40)
	_, err = tr.Envelope()
	require.ErrorIs(t, err, ErrPreconditionViolation)
}

func TestEnvelope_Streaming(t *testing.T) {
	tr := newTracker(t)
	tr.Update(100, commitTime, 55, NewTableID("public", "orders"), 40)

	env, err := tr.Envelope()
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"name":    "pg1",
		"db":      "inventory",
		"schema":  "public",
		"table":   "orders",
		"ts_usec": commitTime.UnixMicro(),
		"txId":    int64(55),
		"lsn":     int64(100),
		"xmin":    int64(40),
	}, env.Map())
}

func TestEnvelope_Snapshot(t *testing.T) {
	tr, err := New("pg1", "inventory", WithConnector("postgresql"), WithVersion("1.4.0"))
	require.NoError(t, err)

	tr.StartSnapshot()
	tr.Update(100, commitTime, 55, NewTableID("public", "orders"), 0)
	tr.MarkLastSnapshotRecord()

	env, err := tr.Envelope()
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "postgresql", got["connector"])
	assert.Equal(t, "1.4.0", got["version"])
	assert.Equal(t, true, got["snapshot"])
	assert.Equal(t, true, got["last_snapshot_record"])
	assert.NotContains(t, got, "xmin")
}

func TestEnvelope_MatchesOffset(t *testing.T) {
	tr := newTracker(t)
	tr.StartSnapshot()
	tr.Update(100, commitTime, 55, NewTableID("public", "orders"), 40)

	env, err := tr.Envelope()
	require.NoError(t, err)

	m := env.Map()
	for key, v := range tr.Offset() {
		assert.Equal(t, v, m[key], key)
	}
}

func TestEnvelopeFields_CoverWireNames(t *testing.T) {
	names := make([]string, 0, len(EnvelopeFields))
	for _, f := range EnvelopeFields {
		names = append(names, f.Name)
	}

	assert.ElementsMatch(t, []string{
		"version", "connector", "name", "db", "ts_usec", "txId",
		"lsn", "schema", "table", "snapshot", "last_snapshot_record", "xmin",
	}, names)
}
