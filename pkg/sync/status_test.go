package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zonestor/zone_syncer/pkg/store"
)

func TestStatusOids(t *testing.T) {
	require.Equal(t, "datalog.sync-status.z1", ZoneStatusOid("z1"))
	require.Equal(t, "datalog.sync-status.shard.z1.3", ShardStatusOid("z1", 3))
	require.Equal(t, "data.full-sync.index.z1.0", FullSyncIndexOid("z1", 0))
	require.Equal(t, "bucket.sync-status.z1:b1:inst-A:0", BucketStatusOid("z1", "b1:inst-A:0"))
	require.Equal(t, "bucket.sync-status.z1:b1:inst-A", BucketStatusOid("z1", "b1:inst-A"))
}

func TestZoneInfoRoundTrip(t *testing.T) {
	ctx := context.Background()
	statuses := NewStatusStore(store.NewMemStore())

	_, err := statuses.ReadZoneInfo(ctx, "z1")
	require.True(t, store.IsNotFound(err))

	info := &ZoneSyncInfo{NumShards: 3, State: ZoneStateBuildingFullSyncMaps, InstanceID: "ab12cd34"}
	require.NoError(t, statuses.WriteZoneInfo(ctx, "z1", info))

	got, err := statuses.ReadZoneInfo(ctx, "z1")
	require.NoError(t, err)
	require.Equal(t, info, got)
}

func TestShardMarkerRoundTrip(t *testing.T) {
	ctx := context.Background()
	statuses := NewStatusStore(store.NewMemStore())

	marker := &DatalogShardMarker{
		State:          DatalogFullSync,
		Marker:         "b1:inst-A:0",
		NextStepMarker: "1_1234.1",
		Pos:            17,
		TotalEntries:   42,
		Timestamp:      time.Date(2016, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, statuses.WriteShardMarker(ctx, "z1", 2, marker))

	got, err := statuses.ReadShardMarker(ctx, "z1", 2)
	require.NoError(t, err)
	require.Equal(t, marker, got)
}

func TestBucketShardStatusAttrs(t *testing.T) {
	ctx := context.Background()
	statuses := NewStatusStore(store.NewMemStore())

	// absent object reads as a zero Init status, not an error
	status, err := statuses.ReadBucketShardStatus(ctx, "z1", "b1:inst-A:0")
	require.NoError(t, err)
	require.Equal(t, BucketStateInit, status.State)

	status = &BucketShardStatus{
		State:      BucketStateFullSync,
		FullMarker: BucketFullMarker{Position: ObjKey{Name: "obj-9", Instance: "v3"}, Count: 9},
		IncMarker:  BucketIncMarker{Position: "00000005.5"},
	}
	require.NoError(t, statuses.CreateBucketShardStatusObject(ctx, "z1", "b1:inst-A:0"))
	require.NoError(t, statuses.WriteBucketShardAttrs(ctx, "z1", "b1:inst-A:0", status.EncodeAllAttrs()))

	got, err := statuses.ReadBucketShardStatus(ctx, "z1", "b1:inst-A:0")
	require.NoError(t, err)
	require.Equal(t, status, got)

	// phases commit their attrs independently
	require.NoError(t, statuses.WriteBucketShardAttrs(ctx, "z1", "b1:inst-A:0",
		EncodeIncMarkerAttr(BucketIncMarker{Position: "00000123.1"})))
	got, err = statuses.ReadBucketShardStatus(ctx, "z1", "b1:inst-A:0")
	require.NoError(t, err)
	require.Equal(t, BucketStateFullSync, got.State)
	require.Equal(t, "00000123.1", got.IncMarker.Position)

	require.NoError(t, statuses.WriteBucketShardAttrs(ctx, "z1", "b1:inst-A:0",
		EncodeStateAttr(BucketStateIncrementalSync)))
	got, err = statuses.ReadBucketShardStatus(ctx, "z1", "b1:inst-A:0")
	require.NoError(t, err)
	require.Equal(t, BucketStateIncrementalSync, got.State)
	require.Equal(t, got.FullMarker, status.FullMarker)
}

func TestFullSyncIndex(t *testing.T) {
	ctx := context.Background()
	statuses := NewStatusStore(store.NewMemStore())

	keys := map[string]string{"b1:inst-A:0": "", "b1:inst-A:1": "", "b2:inst-B": ""}
	require.NoError(t, statuses.AppendFullSyncIndex(ctx, "z1", 1, keys))

	count, err := statuses.CountFullSyncIndex(ctx, "z1", 1)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)

	entries, err := statuses.ListFullSyncIndex(ctx, "z1", 1, "", 100)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "b1:inst-A:0", entries[0].Key)
}

func TestParseBucketShard(t *testing.T) {
	name, id, shard, err := parseBucketShard("b1:inst-A:7")
	require.NoError(t, err)
	require.Equal(t, "b1", name)
	require.Equal(t, "inst-A", id)
	require.Equal(t, 7, shard)

	name, id, shard, err = parseBucketShard("b2:inst-B")
	require.NoError(t, err)
	require.Equal(t, "b2", name)
	require.Equal(t, "inst-B", id)
	require.Equal(t, -1, shard)

	_, _, _, err = parseBucketShard("b1:inst:notanumber")
	require.Error(t, err)
}
