package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPLogClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewLogClient(NewConnection(server.URL, 5*time.Second))
}

func TestGetDatalogInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/log", r.URL.Path)
		require.Equal(t, "data", r.URL.Query().Get("type"))
		w.Write([]byte(`{"num_objects": 128}`))
	})

	info, err := client.GetDatalogInfo(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint32(128), info.NumShards)
}

func TestGetDatalogShardInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/log", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "data", q.Get("type"))
		require.Equal(t, "5", q.Get("id"))
		require.True(t, q.Has("info"))
		w.Write([]byte(`{"marker": "1_99.1", "last_update": "2016-04-01T12:00:00Z"}`))
	})

	info, err := client.GetDatalogShardInfo(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "1_99.1", info.Marker)
	require.False(t, info.LastUpdate.IsZero())
}

func TestListDatalogShard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "1_10.1", q.Get("marker"))
		require.Equal(t, "true", q.Get("extra-info"))
		w.Write([]byte(`{
			"marker": "1_12.1",
			"truncated": false,
			"entries": [
				{"log_id": "1_11.1", "log_timestamp": "2016-04-01T12:00:00Z", "entry": {"key": "b1:inst-A:0"}},
				{"log_id": "1_12.1", "log_timestamp": "2016-04-01T12:00:01Z", "entry": {"key": "b2:inst-B"}}
			]
		}`))
	})

	result, err := client.ListDatalogShard(context.Background(), 0, "1_10.1")
	require.NoError(t, err)
	require.Equal(t, "1_12.1", result.Marker)
	require.False(t, result.Truncated)
	require.Len(t, result.Entries, 2)
	require.Equal(t, "b1:inst-A:0", result.Entries[0].Entry.Key)
}

func TestGetBucketIndexInfo(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "bucket-index", q.Get("type"))
		require.Equal(t, "b1:inst-A:0", q.Get("bucket-instance"))
		require.True(t, q.Has("info"))
		w.Write([]byte(`{"bucket_ver": "1", "master_ver": "2", "max_marker": "00000010.7"}`))
	})

	info, err := client.GetBucketIndexInfo(context.Background(), "b1:inst-A:0")
	require.NoError(t, err)
	require.Equal(t, "00000010.7", info.MaxMarker)
}

func TestListBucketShard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/b1", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "b1:inst-A:0", q.Get("rgwx-bucket-instance"))
		require.Equal(t, "true", q.Get("objs-container"))
		require.Equal(t, "obj-5", q.Get("key-marker"))
		w.Write([]byte(`{
			"Name": "b1",
			"IsTruncated": true,
			"Entries": [{"Key": "obj-6", "VersionId": "", "VersionedEpoch": 0}]
		}`))
	})

	result, err := client.ListBucketShard(context.Background(), "b1", "b1:inst-A:0", "obj-5", "")
	require.NoError(t, err)
	require.True(t, result.IsTruncated)
	require.Len(t, result.Entries, 1)
}

func TestListBucketInstances(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/metadata/bucket.instance", r.URL.Path)
		w.Write([]byte(`["b1:inst-A", "b2:inst-B"]`))
	})

	keys, err := client.ListBucketInstances(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"b1:inst-A", "b2:inst-B"}, keys)
}

func TestNotFoundSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.GetBucketIndexInfo(context.Background(), "b1:inst-A:0")
	require.True(t, IsNotFound(err))
}

func TestErrorStatusSurfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.GetDatalogInfo(context.Background())
	require.Error(t, err)
	require.False(t, IsNotFound(err))
}
