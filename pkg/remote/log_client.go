package remote

import (
	"context"
	"hash/fnv"
	"net/url"
	"strconv"
)

// LogClient is the admin log surface of a peer zone consumed by the sync
// engine. The concrete client speaks the REST admin API; tests mock it.
type LogClient interface {
	// datalog
	GetDatalogInfo(ctx context.Context) (*DatalogInfo, error)
	GetDatalogShardInfo(ctx context.Context, shardID int) (*ShardInfo, error)
	ListDatalogShard(ctx context.Context, shardID int, marker string) (*DatalogShardResult, error)

	// bucket index log
	GetBucketIndexInfo(ctx context.Context, instanceKey string) (*BucketIndexInfo, error)
	ListBucketIndexLog(ctx context.Context, instanceKey string, marker string) ([]BILogEntry, error)

	// bucket instance metadata
	ListBucketInstances(ctx context.Context) ([]string, error)
	GetBucketInstanceInfo(ctx context.Context, key string) (*BucketInstanceInfo, error)

	// versioned listing of one bucket shard
	ListBucketShard(ctx context.Context, bucketName string, instanceKey string,
		keyMarker string, versionIDMarker string) (*BucketListResult, error)
}

type HTTPLogClient struct {
	conn *Connection
}

func NewLogClient(conn *Connection) *HTTPLogClient {
	return &HTTPLogClient{conn: conn}
}

func (c *HTTPLogClient) GetDatalogInfo(ctx context.Context) (*DatalogInfo, error) {
	params := url.Values{}
	params.Set("type", "data")

	var info DatalogInfo
	if err := c.conn.getJSON(ctx, "/admin/log", params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPLogClient) GetDatalogShardInfo(ctx context.Context, shardID int) (*ShardInfo, error) {
	params := url.Values{}
	params.Set("type", "data")
	params.Set("id", shardParam(shardID))
	params.Set("info", "")

	var info ShardInfo
	if err := c.conn.getJSON(ctx, "/admin/log", params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPLogClient) ListDatalogShard(ctx context.Context, shardID int, marker string) (*DatalogShardResult, error) {
	params := url.Values{}
	params.Set("type", "data")
	params.Set("id", shardParam(shardID))
	params.Set("marker", marker)
	params.Set("extra-info", "true")

	var result DatalogShardResult
	if err := c.conn.getJSON(ctx, "/admin/log", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPLogClient) GetBucketIndexInfo(ctx context.Context, instanceKey string) (*BucketIndexInfo, error) {
	params := url.Values{}
	params.Set("type", "bucket-index")
	params.Set("bucket-instance", instanceKey)
	params.Set("info", "")

	var info BucketIndexInfo
	if err := c.conn.getJSON(ctx, "/admin/log", params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPLogClient) ListBucketIndexLog(ctx context.Context, instanceKey string, marker string) ([]BILogEntry, error) {
	params := url.Values{}
	params.Set("type", "bucket-index")
	params.Set("bucket-instance", instanceKey)
	params.Set("marker", marker)
	params.Set("format", "json")

	var result []BILogEntry
	if err := c.conn.getJSON(ctx, "/admin/log", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPLogClient) ListBucketInstances(ctx context.Context) ([]string, error) {
	var result []string
	if err := c.conn.getJSON(ctx, "/admin/metadata/bucket.instance", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPLogClient) GetBucketInstanceInfo(ctx context.Context, key string) (*BucketInstanceInfo, error) {
	params := url.Values{}
	params.Set("key", key)

	var info BucketInstanceInfo
	if err := c.conn.getJSON(ctx, "/admin/metadata/bucket.instance", params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *HTTPLogClient) ListBucketShard(ctx context.Context, bucketName string, instanceKey string,
	keyMarker string, versionIDMarker string) (*BucketListResult, error) {
	params := url.Values{}
	params.Set("rgwx-bucket-instance", instanceKey)
	params.Set("versions", "")
	params.Set("format", "json")
	params.Set("objs-container", "true")
	params.Set("key-marker", keyMarker)
	params.Set("version-id-marker", versionIDMarker)

	var result BucketListResult
	if err := c.conn.getJSON(ctx, "/"+bucketName, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LogShardID mirrors the source-side placement of a bucket shard into a
// datalog shard, so that full-sync index shards line up with the peer's
// datalog sharding.
func LogShardID(bucketName string, shardID int, numShards uint32) int {
	h := fnv.New32a()
	h.Write([]byte(bucketName))
	if shardID >= 0 {
		h.Write([]byte(":" + strconv.Itoa(shardID)))
	}
	return int(h.Sum32() % numShards)
}
