package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemStoreObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.ReadObject(ctx, "missing")
	require.True(t, IsNotFound(err))

	require.NoError(t, s.WriteObject(ctx, "datalog.sync-status.z1", `{"state":0}`))
	data, err := s.ReadObject(ctx, "datalog.sync-status.z1")
	require.NoError(t, err)
	require.Equal(t, `{"state":0}`, data)
}

func TestMemStoreOmapListFromMarker(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	entries := map[string]string{
		"b1:inst-A:0": "",
		"b1:inst-A:1": "",
		"b2:inst-B":   "",
	}
	require.NoError(t, s.OmapSet(ctx, "data.full-sync.index.z1.0", entries))

	listed, err := s.OmapList(ctx, "data.full-sync.index.z1.0", "", 2)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "b1:inst-A:0", listed[0].Key)
	require.Equal(t, "b1:inst-A:1", listed[1].Key)

	// resume after marker excludes the marker itself
	listed, err = s.OmapList(ctx, "data.full-sync.index.z1.0", "b1:inst-A:1", 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "b2:inst-B", listed[0].Key)

	count, err := s.OmapCount(ctx, "data.full-sync.index.z1.0")
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
}

func TestMemStoreOmapListMissingObject(t *testing.T) {
	listed, err := NewMemStore().OmapList(context.Background(), "nope", "", 10)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestMemStoreAttrs(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, err := s.ReadAttrs(ctx, "bucket.sync-status.z1:b1:inst")
	require.True(t, IsNotFound(err))

	require.NoError(t, s.WriteObject(ctx, "bucket.sync-status.z1:b1:inst", ""))
	require.NoError(t, s.WriteAttrs(ctx, "bucket.sync-status.z1:b1:inst", map[string]string{"state": "1"}))
	require.NoError(t, s.WriteAttrs(ctx, "bucket.sync-status.z1:b1:inst", map[string]string{"inc_marker": `{"position":"m"}`}))

	attrs, err := s.ReadAttrs(ctx, "bucket.sync-status.z1:b1:inst")
	require.NoError(t, err)
	require.Equal(t, "1", attrs["state"])
	require.Equal(t, `{"position":"m"}`, attrs["inc_marker"])
}

func TestMemStoreLock(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	oid := "datalog.sync-status.z1"

	require.NoError(t, s.Lock(ctx, oid, "sync_lock", "cookie-a", 30*time.Second))
	// reentrant with the same cookie
	require.NoError(t, s.Lock(ctx, oid, "sync_lock", "cookie-a", 30*time.Second))
	// another owner is rejected
	require.ErrorIs(t, s.Lock(ctx, oid, "sync_lock", "cookie-b", 30*time.Second), ErrLocked)

	// rewriting the object invalidates the lock
	require.NoError(t, s.WriteObject(ctx, oid, "{}"))
	require.NoError(t, s.Lock(ctx, oid, "sync_lock", "cookie-b", 30*time.Second))

	require.NoError(t, s.Unlock(ctx, oid, "sync_lock", "cookie-b"))
	require.NoError(t, s.Lock(ctx, oid, "sync_lock", "cookie-c", 30*time.Second))
}
