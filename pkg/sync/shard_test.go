package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/zonestor/zone_syncer/pkg/remote"
)

func TestDatalogShardFullSync(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := remote.NewMockLogClient(ctrl)
	ops := newFakeObjectOps()
	env := newTestEnv(client, ops)

	// full-sync index built by the zone driver
	require.NoError(t, env.Status.AppendFullSyncIndex(ctx, "z1", 0,
		map[string]string{"b1:inst-A:0": "", "b2:inst-B": ""}))

	// bucket shards already past full sync, their incremental turn is a no-op
	seedIncrementalStatus(t, env, "b1:inst-A:0", "")
	seedIncrementalStatus(t, env, "b2:inst-B", "")
	client.EXPECT().ListBucketIndexLog(gomock.Any(), "b1:inst-A:0", "").Return(nil, nil)
	client.EXPECT().ListBucketIndexLog(gomock.Any(), "b2:inst-B", "").Return(nil, nil)

	shard := NewDatalogShardSync(env, 0, DatalogShardMarker{
		State:          DatalogFullSync,
		NextStepMarker: "1_100.1",
		TotalEntries:   2,
	})
	require.NoError(t, shard.fullSync(ctx))

	marker, err := env.Status.ReadShardMarker(ctx, "z1", 0)
	require.NoError(t, err)
	require.Equal(t, DatalogIncrementalSync, marker.State)
	require.Equal(t, "1_100.1", marker.Marker)
	require.Empty(t, marker.NextStepMarker)
	require.Equal(t, uint64(2), marker.TotalEntries)
}

func TestSingleEntryDedupRetry(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := remote.NewMockLogClient(ctrl)
	ops := newFakeObjectOps()
	env := newTestEnv(client, ops)

	shard := NewDatalogShardSync(env, 0, DatalogShardMarker{State: DatalogIncrementalSync})
	shard.tracker = shard.newMarkerTracker()

	// L1 is in flight for the bucket shard key
	require.True(t, shard.tracker.IndexKeyToMarker("b1:inst-A:0", "L1"))
	shard.tracker.Start("L1", 0, time.Time{})

	// L2 arrives while L1's sync is running: rejected, key flagged for retry
	seedIncrementalStatus(t, env, "b1:inst-A:0", "")
	calls := 0
	l2Accepted := false
	client.EXPECT().ListBucketIndexLog(gomock.Any(), "b1:inst-A:0", "").DoAndReturn(
		func(context.Context, string, string) ([]remote.BILogEntry, error) {
			calls++
			if calls == 1 {
				l2Accepted = shard.tracker.IndexKeyToMarker("b1:inst-A:0", "L2")
			}
			return nil, nil
		}).Times(2)

	group := newTaskGroup()
	require.NoError(t, shard.dispatchSingleEntry(ctx, group, "b1:inst-A:0", "L1"))
	require.Empty(t, group.DrainAll())

	// L2 was rejected, and the in-flight worker absorbed its work by
	// re-running once
	require.False(t, l2Accepted)
	require.Equal(t, 2, calls)
	require.False(t, shard.tracker.NeedRetry("b1:inst-A:0"))

	// L1's finish committed the shard marker
	marker, err := env.Status.ReadShardMarker(ctx, "z1", 0)
	require.NoError(t, err)
	require.Equal(t, "L1", marker.Marker)
}

func TestWakeupCancelsIdleWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl := gomock.NewController(t)
	client := remote.NewMockLogClient(ctrl)
	ops := newFakeObjectOps()
	env := newTestEnv(client, ops)

	// head equals the sync marker, the loop idles until woken up
	client.EXPECT().GetDatalogShardInfo(gomock.Any(), 2).Return(
		&remote.ShardInfo{Marker: "1_50.1"}, nil).AnyTimes()

	seedIncrementalStatus(t, env, "b2:inst-B:0", "")
	dispatched := make(chan struct{}, 4)
	client.EXPECT().ListBucketIndexLog(gomock.Any(), "b2:inst-B:0", "").DoAndReturn(
		func(context.Context, string, string) ([]remote.BILogEntry, error) {
			dispatched <- struct{}{}
			return nil, nil
		}).AnyTimes()

	shard := NewDatalogShardSync(env, 2, DatalogShardMarker{
		State:  DatalogIncrementalSync,
		Marker: "1_50.1",
	})

	done := make(chan error, 1)
	go func() {
		done <- shard.Run(ctx)
	}()

	// let the loop reach its idle wait, then notify out of band
	time.Sleep(100 * time.Millisecond)
	shard.AppendModifiedShards([]string{"b2:inst-B:0"})
	shard.Wakeup()

	select {
	case <-dispatched:
		// woken well before the 20s interval and the key was dispatched with
		// an empty entry marker
	case <-time.After(5 * time.Second):
		t.Fatal("wakeup did not cancel the idle wait")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shard did not stop on cancel")
	}

	// no durable marker was written for the out-of-band kick
	_, err := env.Status.ReadShardMarker(ctx, "z1", 2)
	require.Error(t, err)
}

func TestDatalogShardIncrementalConsumesEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrl := gomock.NewController(t)
	client := remote.NewMockLogClient(ctrl)
	ops := newFakeObjectOps()
	env := newTestEnv(client, ops)

	seedIncrementalStatus(t, env, "b1:inst-A:0", "")

	client.EXPECT().GetDatalogShardInfo(gomock.Any(), 0).Return(
		&remote.ShardInfo{Marker: "1_20.1"}, nil).AnyTimes()
	client.EXPECT().ListDatalogShard(gomock.Any(), 0, "").Return(
		&remote.DatalogShardResult{
			Marker: "1_20.1",
			Entries: []remote.DatalogLogEntry{
				{LogID: "1_20.1", Entry: remote.DatalogEntry{Key: "b1:inst-A:0"}},
			},
		}, nil)

	synced := make(chan struct{}, 4)
	client.EXPECT().ListBucketIndexLog(gomock.Any(), "b1:inst-A:0", "").DoAndReturn(
		func(context.Context, string, string) ([]remote.BILogEntry, error) {
			synced <- struct{}{}
			return nil, nil
		}).AnyTimes()

	shard := NewDatalogShardSync(env, 0, DatalogShardMarker{State: DatalogIncrementalSync})

	done := make(chan error, 1)
	go func() {
		done <- shard.Run(ctx)
	}()

	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		t.Fatal("datalog entry was not dispatched")
	}

	// the log id commits as the shard marker once the bucket sync finished
	require.Eventually(t, func() bool {
		marker, err := env.Status.ReadShardMarker(ctx, "z1", 0)
		return err == nil && marker.Marker == "1_20.1"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shard did not stop on cancel")
	}
}
