package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LogTime parses the peer's timestamp renderings: RFC3339 and the admin log
// dump format. Sub-second precision is kept when present, seconds otherwise.
type LogTime struct {
	time.Time
}

var logTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000000Z",
	"2006-01-02 15:04:05Z",
	"2006-01-02T15:04:05.000Z",
}

func (t *LogTime) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range logTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp: %s", raw)
}

func (t LogTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(time.RFC3339))
}

// DatalogInfo is the answer to /admin/log?type=data.
type DatalogInfo struct {
	NumShards uint32 `json:"num_objects"`
}

// ShardInfo is the head position of one datalog shard.
type ShardInfo struct {
	Marker     string  `json:"marker"`
	LastUpdate LogTime `json:"last_update"`
}

type DatalogEntry struct {
	Key       string  `json:"key"`
	Timestamp LogTime `json:"timestamp"`
}

type DatalogLogEntry struct {
	LogID        string       `json:"log_id"`
	LogTimestamp LogTime      `json:"log_timestamp"`
	Entry        DatalogEntry `json:"entry"`
}

type DatalogShardResult struct {
	Marker    string            `json:"marker"`
	Truncated bool              `json:"truncated"`
	Entries   []DatalogLogEntry `json:"entries"`
}

// ModifyOp is an object-level mutation kind carried by the bucket index log.
type ModifyOp int

const (
	OpUnknown ModifyOp = iota
	OpAdd
	OpLinkOLH
	OpDelete
)

func (op ModifyOp) String() string {
	switch op {
	case OpAdd:
		return "write"
	case OpLinkOLH:
		return "link_olh"
	case OpDelete:
		return "del"
	default:
		return "unknown"
	}
}

func (op *ModifyOp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch strings.ToLower(raw) {
	case "write", "add":
		*op = OpAdd
	case "link_olh":
		*op = OpLinkOLH
	case "del", "delete":
		*op = OpDelete
	default:
		*op = OpUnknown
	}
	return nil
}

func (op ModifyOp) MarshalJSON() ([]byte, error) {
	return json.Marshal(op.String())
}

type ObjVersion struct {
	Pool  int64  `json:"pool"`
	Epoch uint64 `json:"epoch"`
}

// BILogEntry is one bucket index log record.
type BILogEntry struct {
	ID        string     `json:"id"`
	Op        ModifyOp   `json:"op"`
	Object    string     `json:"object"`
	Instance  string     `json:"instance"`
	Timestamp LogTime    `json:"timestamp"`
	Ver       ObjVersion `json:"ver"`
}

// BucketIndexInfo is the head of a bucket shard's index log.
type BucketIndexInfo struct {
	BucketVer string `json:"bucket_ver"`
	MasterVer string `json:"master_ver"`
	MaxMarker string `json:"max_marker"`
}

type BucketInfo struct {
	BucketName string `json:"bucket_name"`
	BucketID   string `json:"bucket_id"`
	NumShards  int    `json:"num_shards"`
}

// BucketInstanceInfo is the metadata record of one bucket instance.
type BucketInstanceInfo struct {
	Key   string  `json:"key"`
	Mtime LogTime `json:"mtime"`
	Data  struct {
		BucketInfo BucketInfo `json:"bucket_info"`
	} `json:"data"`
}

type BucketEntryOwner struct {
	ID          string `json:"ID"`
	DisplayName string `json:"DisplayName"`
}

// BucketListEntry is one entry of a versioned bucket shard listing.
type BucketListEntry struct {
	IsDeleteMarker bool             `json:"IsDeleteMarker"`
	Key            string           `json:"Key"`
	VersionID      string           `json:"VersionId"`
	IsLatest       bool             `json:"IsLatest"`
	LastModified   LogTime          `json:"LastModified"`
	ETag           string           `json:"ETag"`
	Size           uint64           `json:"Size"`
	StorageClass   string           `json:"StorageClass"`
	Owner          BucketEntryOwner `json:"Owner"`
	VersionedEpoch uint64           `json:"VersionedEpoch"`
	RgwxTag        string           `json:"RgwxTag"`
}

type BucketListResult struct {
	Name            string            `json:"Name"`
	Prefix          string            `json:"Prefix"`
	KeyMarker       string            `json:"KeyMarker"`
	VersionIDMarker string            `json:"VersionIdMarker"`
	MaxKeys         int               `json:"MaxKeys"`
	IsTruncated     bool              `json:"IsTruncated"`
	Entries         []BucketListEntry `json:"Entries"`
}

// InstanceKey renders "<bucket>:<bucket_id>[:<shard_id>]", the wire form of a
// bucket shard identifier.
func InstanceKey(bucketName string, bucketID string, shardID int) string {
	key := bucketName + ":" + bucketID
	if shardID >= 0 {
		key = fmt.Sprintf("%s:%d", key, shardID)
	}
	return key
}
