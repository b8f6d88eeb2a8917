package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zonestor/zone_syncer/pkg/store"
	"github.com/zonestor/zone_syncer/pkg/xerror"
)

const (
	datalogSyncStatusOidPrefix   = "datalog.sync-status"
	datalogSyncStatusShardPrefix = "datalog.sync-status.shard"
	datalogFullSyncIndexPrefix   = "data.full-sync.index"
	bucketStatusOidPrefix        = "bucket.sync-status"

	lockName      = "sync_lock"
	lockDuration  = 30 * time.Second
	lockCookieLen = 16
)

func ZoneStatusOid(sourceZone string) string {
	return fmt.Sprintf("%s.%s", datalogSyncStatusOidPrefix, sourceZone)
}

func ShardStatusOid(sourceZone string, shardID int) string {
	return fmt.Sprintf("%s.%s.%d", datalogSyncStatusShardPrefix, sourceZone, shardID)
}

func FullSyncIndexOid(sourceZone string, shardID int) string {
	return fmt.Sprintf("%s.%s.%d", datalogFullSyncIndexPrefix, sourceZone, shardID)
}

func BucketStatusOid(sourceZone string, instanceKey string) string {
	return fmt.Sprintf("%s.%s:%s", bucketStatusOidPrefix, sourceZone, instanceKey)
}

type ZoneSyncState int

const (
	ZoneStateInit ZoneSyncState = iota
	ZoneStateBuildingFullSyncMaps
	ZoneStateSync
)

func (s ZoneSyncState) String() string {
	switch s {
	case ZoneStateInit:
		return "Init"
	case ZoneStateBuildingFullSyncMaps:
		return "BuildingFullSyncMaps"
	case ZoneStateSync:
		return "Sync"
	default:
		return fmt.Sprintf("Unknown ZoneSyncState: %d", s)
	}
}

// ZoneSyncInfo is the per-source-zone sync record.
type ZoneSyncInfo struct {
	NumShards  uint32        `json:"num_shards"`
	State      ZoneSyncState `json:"state"`
	InstanceID string        `json:"instance_id"`
}

type DatalogShardState int

const (
	DatalogFullSync DatalogShardState = iota
	DatalogIncrementalSync
)

func (s DatalogShardState) String() string {
	switch s {
	case DatalogFullSync:
		return "FullSync"
	case DatalogIncrementalSync:
		return "IncrementalSync"
	default:
		return fmt.Sprintf("Unknown DatalogShardState: %d", s)
	}
}

// DatalogShardMarker is the durable progress of one datalog shard.
// NextStepMarker holds the shard head captured before full sync started; it
// becomes the incremental starting marker on transition.
type DatalogShardMarker struct {
	State          DatalogShardState `json:"state"`
	Marker         string            `json:"marker"`
	NextStepMarker string            `json:"next_step_marker"`
	Pos            uint64            `json:"pos"`
	TotalEntries   uint64            `json:"total_entries"`
	Timestamp      time.Time         `json:"timestamp"`
}

// ObjKey names an object, optionally a specific version instance.
type ObjKey struct {
	Name     string `json:"name"`
	Instance string `json:"instance"`
}

func (k ObjKey) String() string {
	if k.Instance == "" {
		return k.Name
	}
	return k.Name + "[" + k.Instance + "]"
}

type BucketShardState int

const (
	BucketStateInit BucketShardState = iota
	BucketStateFullSync
	BucketStateIncrementalSync
)

func (s BucketShardState) String() string {
	switch s {
	case BucketStateInit:
		return "Init"
	case BucketStateFullSync:
		return "FullSync"
	case BucketStateIncrementalSync:
		return "IncrementalSync"
	default:
		return fmt.Sprintf("Unknown BucketShardState: %d", s)
	}
}

type BucketFullMarker struct {
	Position ObjKey `json:"position"`
	Count    uint64 `json:"count"`
}

type BucketIncMarker struct {
	Position string `json:"position"`
}

// BucketShardStatus is stored as separate attributes on the status object so
// the full and incremental markers commit independently.
type BucketShardStatus struct {
	State      BucketShardState `json:"state"`
	FullMarker BucketFullMarker `json:"full_marker"`
	IncMarker  BucketIncMarker  `json:"inc_marker"`
}

const (
	attrState      = "state"
	attrFullMarker = "full_marker"
	attrIncMarker  = "inc_marker"
)

func encodeAttr(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// all attr values are plain structs, this cannot fail
		panic(err)
	}
	return string(data)
}

func EncodeStateAttr(state BucketShardState) map[string]string {
	return map[string]string{attrState: encodeAttr(state)}
}

func EncodeFullMarkerAttr(marker BucketFullMarker) map[string]string {
	return map[string]string{attrFullMarker: encodeAttr(marker)}
}

func EncodeIncMarkerAttr(marker BucketIncMarker) map[string]string {
	return map[string]string{attrIncMarker: encodeAttr(marker)}
}

func (s *BucketShardStatus) EncodeAllAttrs() map[string]string {
	return map[string]string{
		attrState:      encodeAttr(s.State),
		attrFullMarker: encodeAttr(s.FullMarker),
		attrIncMarker:  encodeAttr(s.IncMarker),
	}
}

func decodeBucketShardStatus(attrs map[string]string) (*BucketShardStatus, error) {
	var status BucketShardStatus
	decode := func(name string, v any) error {
		raw, ok := attrs[name]
		if !ok {
			return nil
		}
		if err := json.Unmarshal([]byte(raw), v); err != nil {
			return xerror.Wrapf(err, xerror.Store, "decode attribute %s failed", name)
		}
		return nil
	}

	if err := decode(attrState, &status.State); err != nil {
		return nil, err
	}
	if err := decode(attrFullMarker, &status.FullMarker); err != nil {
		return nil, err
	}
	if err := decode(attrIncMarker, &status.IncMarker); err != nil {
		return nil, err
	}
	return &status, nil
}

// StatusStore is the typed layer over the log pool objects holding sync state.
type StatusStore struct {
	store store.Store
}

func NewStatusStore(s store.Store) *StatusStore {
	return &StatusStore{store: s}
}

func (s *StatusStore) readJSON(ctx context.Context, oid string, v any) error {
	data, err := s.store.ReadObject(ctx, oid)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return xerror.Wrapf(err, xerror.Store, "decode object %s failed", oid)
	}
	return nil
}

func (s *StatusStore) writeJSON(ctx context.Context, oid string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return xerror.Wrapf(err, xerror.Store, "encode object %s failed", oid)
	}
	return s.store.WriteObject(ctx, oid, string(data))
}

func (s *StatusStore) ReadZoneInfo(ctx context.Context, sourceZone string) (*ZoneSyncInfo, error) {
	var info ZoneSyncInfo
	if err := s.readJSON(ctx, ZoneStatusOid(sourceZone), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *StatusStore) WriteZoneInfo(ctx context.Context, sourceZone string, info *ZoneSyncInfo) error {
	return s.writeJSON(ctx, ZoneStatusOid(sourceZone), info)
}

func (s *StatusStore) ReadShardMarker(ctx context.Context, sourceZone string, shardID int) (*DatalogShardMarker, error) {
	var marker DatalogShardMarker
	if err := s.readJSON(ctx, ShardStatusOid(sourceZone, shardID), &marker); err != nil {
		return nil, err
	}
	return &marker, nil
}

func (s *StatusStore) WriteShardMarker(ctx context.Context, sourceZone string, shardID int, marker *DatalogShardMarker) error {
	return s.writeJSON(ctx, ShardStatusOid(sourceZone, shardID), marker)
}

// ReadBucketShardStatus returns a zero Init status when the object is absent;
// first-time sync is not an error.
func (s *StatusStore) ReadBucketShardStatus(ctx context.Context, sourceZone string, instanceKey string) (*BucketShardStatus, error) {
	attrs, err := s.store.ReadAttrs(ctx, BucketStatusOid(sourceZone, instanceKey))
	if store.IsNotFound(err) {
		return &BucketShardStatus{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBucketShardStatus(attrs)
}

func (s *StatusStore) WriteBucketShardAttrs(ctx context.Context, sourceZone string, instanceKey string, attrs map[string]string) error {
	return s.store.WriteAttrs(ctx, BucketStatusOid(sourceZone, instanceKey), attrs)
}

func (s *StatusStore) CreateBucketShardStatusObject(ctx context.Context, sourceZone string, instanceKey string) error {
	return s.store.WriteObject(ctx, BucketStatusOid(sourceZone, instanceKey), "")
}

func (s *StatusStore) AppendFullSyncIndex(ctx context.Context, sourceZone string, shardID int, keys map[string]string) error {
	return s.store.OmapSet(ctx, FullSyncIndexOid(sourceZone, shardID), keys)
}

func (s *StatusStore) ListFullSyncIndex(ctx context.Context, sourceZone string, shardID int,
	marker string, max int) ([]store.OmapEntry, error) {
	return s.store.OmapList(ctx, FullSyncIndexOid(sourceZone, shardID), marker, max)
}

func (s *StatusStore) CountFullSyncIndex(ctx context.Context, sourceZone string, shardID int) (uint64, error) {
	return s.store.OmapCount(ctx, FullSyncIndexOid(sourceZone, shardID))
}

func (s *StatusStore) Lock(ctx context.Context, oid string, cookie string) error {
	return s.store.Lock(ctx, oid, lockName, cookie, lockDuration)
}

func (s *StatusStore) Unlock(ctx context.Context, oid string, cookie string) error {
	return s.store.Unlock(ctx, oid, lockName, cookie)
}
