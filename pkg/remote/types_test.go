package remote

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBILogEntryDecode(t *testing.T) {
	raw := `{
		"id": "00000123.1",
		"op": "del",
		"object": "o",
		"instance": "v1",
		"timestamp": "2016-04-01T12:00:00Z",
		"ver": {"pool": -1, "epoch": 7}
	}`

	var entry BILogEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	require.Equal(t, "00000123.1", entry.ID)
	require.Equal(t, OpDelete, entry.Op)
	require.Equal(t, "o", entry.Object)
	require.Equal(t, "v1", entry.Instance)
	require.Equal(t, int64(-1), entry.Ver.Pool)
	require.Equal(t, uint64(7), entry.Ver.Epoch)
}

func TestModifyOpDecode(t *testing.T) {
	cases := map[string]ModifyOp{
		`"write"`:    OpAdd,
		`"add"`:      OpAdd,
		`"link_olh"`: OpLinkOLH,
		`"del"`:      OpDelete,
		`"delete"`:   OpDelete,
		`"weird"`:    OpUnknown,
	}
	for raw, want := range cases {
		var op ModifyOp
		require.NoError(t, json.Unmarshal([]byte(raw), &op))
		require.Equal(t, want, op, raw)
	}
}

func TestLogTimeLayouts(t *testing.T) {
	cases := []string{
		`"2016-04-01T12:00:00Z"`,
		`"2016-04-01 12:00:00.000000Z"`,
		`"2016-04-01T12:00:00.000Z"`,
	}
	want := time.Date(2016, 4, 1, 12, 0, 0, 0, time.UTC)
	for _, raw := range cases {
		var lt LogTime
		require.NoError(t, json.Unmarshal([]byte(raw), &lt), raw)
		require.True(t, lt.Equal(want), raw)
	}

	var empty LogTime
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	require.True(t, empty.IsZero())

	var bad LogTime
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestBucketListEntryDecode(t *testing.T) {
	raw := `{
		"IsDeleteMarker": false,
		"Key": "o",
		"VersionId": "v1",
		"IsLatest": true,
		"LastModified": "2016-04-01T12:00:00.000Z",
		"ETag": "abc",
		"Size": 1024,
		"VersionedEpoch": 3,
		"RgwxTag": "tag"
	}`

	var entry BucketListEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	require.Equal(t, "o", entry.Key)
	require.Equal(t, "v1", entry.VersionID)
	require.True(t, entry.IsLatest)
	require.Equal(t, uint64(3), entry.VersionedEpoch)
	require.Equal(t, uint64(1024), entry.Size)
}

func TestInstanceKey(t *testing.T) {
	require.Equal(t, "b1:inst-A", InstanceKey("b1", "inst-A", -1))
	require.Equal(t, "b1:inst-A:0", InstanceKey("b1", "inst-A", 0))
	require.Equal(t, "b1:inst-A:12", InstanceKey("b1", "inst-A", 12))
}

func TestLogShardIDStableAndBounded(t *testing.T) {
	first := LogShardID("b1", 0, 128)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, LogShardID("b1", 0, 128))
	}
	for _, bucket := range []string{"b1", "b2", "bucket-with-long-name"} {
		for shard := -1; shard < 16; shard++ {
			id := LogShardID(bucket, shard, 8)
			require.GreaterOrEqual(t, id, 0)
			require.Less(t, id, 8)
		}
	}
	// shard id participates in placement
	require.NotEqual(t, LogShardID("b1", 0, 1<<16), LogShardID("b1", 1, 1<<16))
}
