package sync

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zonestor/zone_syncer/pkg/remote"
	"github.com/zonestor/zone_syncer/pkg/utils"
	"github.com/zonestor/zone_syncer/pkg/xerror"
	"github.com/zonestor/zone_syncer/pkg/xmetrics"
)

const (
	bucketSyncUpdateMarkerWindow = 10
	bucketSyncSpawnWindow        = 20
)

// BucketShardSync replicates one (source zone, bucket instance, bucket shard)
// triple: Init captures the index log head, full sync walks the remote
// listing, incremental sync tails the index log from the captured head.
type BucketShardSync struct {
	env         *Env
	bucketName  string
	bucketID    string
	shardID     int
	instanceKey string
}

func NewBucketShardSync(env *Env, bucketName string, bucketID string, shardID int) *BucketShardSync {
	return &BucketShardSync{
		env:         env,
		bucketName:  bucketName,
		bucketID:    bucketID,
		shardID:     shardID,
		instanceKey: remote.InstanceKey(bucketName, bucketID, shardID),
	}
}

func (b *BucketShardSync) Run(ctx context.Context) error {
	status, err := b.env.Status.ReadBucketShardStatus(ctx, b.env.SourceZone, b.instanceKey)
	if err != nil {
		return err
	}

	log.Debugf("bucket shard %s sync state: %s", b.instanceKey, status.State)

	if status.State == BucketStateInit {
		if err := b.initSyncStatus(ctx, status); err != nil {
			return err
		}
	}

	if status.State == BucketStateFullSync {
		if err := b.fullSync(ctx, status); err != nil {
			return err
		}
	}

	if status.State == BucketStateIncrementalSync {
		return b.incrementalSync(ctx, status)
	}

	return nil
}

// initSyncStatus captures the remote index log head before full sync begins,
// so every mutation after that point can be replayed from the log.
func (b *BucketShardSync) initSyncStatus(ctx context.Context, status *BucketShardStatus) error {
	oid := BucketStatusOid(b.env.SourceZone, b.instanceKey)
	cookie := utils.RandAlphanumeric(lockCookieLen)

	// Step 1: take a lock on the status object
	if err := b.env.Status.Lock(ctx, oid, cookie); err != nil {
		return xerror.Wrapf(err, xerror.Sync, "take lock on %s failed", oid)
	}

	// Step 2: write a fresh status
	if err := b.env.Status.CreateBucketShardStatusObject(ctx, b.env.SourceZone, b.instanceKey); err != nil {
		return err
	}

	// Step 3: take the lock again, the write recreated the object
	if err := b.env.Status.Lock(ctx, oid, cookie); err != nil {
		return xerror.Wrapf(err, xerror.Sync, "take lock on %s failed", oid)
	}

	// Step 4: fetch the current position in the remote index log
	info, err := b.env.Client.GetBucketIndexInfo(ctx, b.instanceKey)
	if err != nil && !remote.IsNotFound(err) {
		return err
	}

	status.State = BucketStateFullSync
	if info != nil {
		status.IncMarker.Position = info.MaxMarker
	}
	if err := b.env.Status.WriteBucketShardAttrs(ctx, b.env.SourceZone, b.instanceKey, status.EncodeAllAttrs()); err != nil {
		return err
	}

	if err := b.env.Status.Unlock(ctx, oid, cookie); err != nil {
		log.Warnf("release lock on %s failed: %+v", oid, err)
	}
	return nil
}

func (b *BucketShardSync) fullSync(ctx context.Context, status *BucketShardStatus) error {
	log.Infof("bucket shard %s: full sync from %s", b.instanceKey, status.FullMarker.Position)

	tracker := NewMarkerTracker[ObjKey](bucketSyncUpdateMarkerWindow,
		func(ctx context.Context, marker ObjKey, indexPos uint64, _ time.Time) error {
			fullMarker := BucketFullMarker{Position: marker, Count: indexPos}
			return b.env.Status.WriteBucketShardAttrs(ctx, b.env.SourceZone, b.instanceKey,
				EncodeFullMarkerAttr(fullMarker))
		})

	listMarker := status.FullMarker.Position
	totalEntries := status.FullMarker.Count
	group := newTaskGroup()

	for {
		result, err := b.env.Client.ListBucketShard(ctx, b.bucketName, b.instanceKey,
			listMarker.Name, listMarker.Instance)
		if err != nil {
			if remote.IsNotFound(err) {
				break
			}
			b.logChildErrors("full sync", group.DrainAll())
			return err
		}

		for i := range result.Entries {
			entry := result.Entries[i]
			key := ObjKey{Name: entry.Key, Instance: entry.VersionID}
			log.Debugf("[full sync] syncing object: %s/%s", b.instanceKey, key)

			totalEntries++
			tracker.Start(key, totalEntries, time.Time{})
			listMarker = key

			op := remote.OpAdd
			if key.Instance != "" && key.Instance != "null" {
				op = remote.OpLinkOLH
			}
			versionedEpoch := entry.VersionedEpoch
			mtime := entry.LastModified.Time
			group.Spawn(func() error {
				return syncBucketEntry(ctx, b, key, versionedEpoch, mtime, op, key, tracker)
			})

			for group.NumSpawned() > bucketSyncSpawnWindow {
				if err := group.WaitForChild(); err != nil {
					// marker stays behind the failed entry, next pass retries
					log.Errorf("a sync operation failed: %+v", err)
				}
			}
		}

		if !result.IsTruncated {
			break
		}
	}

	b.logChildErrors("full sync", group.DrainAll())

	// commit the final contiguous prefix before switching state
	if err := tracker.Flush(ctx); err != nil {
		return err
	}

	// update sync state to incremental
	status.State = BucketStateIncrementalSync
	status.FullMarker = BucketFullMarker{Position: listMarker, Count: totalEntries}
	if err := b.env.Status.WriteBucketShardAttrs(ctx, b.env.SourceZone, b.instanceKey,
		EncodeStateAttr(status.State)); err != nil {
		return err
	}
	return nil
}

// incrementalSync drains the index log past the committed position. Returning
// on an empty listing is not termination, only "no new work right now"; the
// datalog shard driver decides when to run again.
func (b *BucketShardSync) incrementalSync(ctx context.Context, status *BucketShardStatus) error {
	tracker := NewMarkerTracker[string](bucketSyncUpdateMarkerWindow,
		func(ctx context.Context, marker string, _ uint64, _ time.Time) error {
			return b.env.Status.WriteBucketShardAttrs(ctx, b.env.SourceZone, b.instanceKey,
				EncodeIncMarkerAttr(BucketIncMarker{Position: marker}))
		})

	position := status.IncMarker.Position
	group := newTaskGroup()

	for {
		entries, err := b.env.Client.ListBucketIndexLog(ctx, b.instanceKey, position)
		if err != nil {
			if remote.IsNotFound(err) {
				break
			}
			b.logChildErrors("incremental sync", group.DrainAll())
			return err
		}
		if len(entries) == 0 {
			break
		}

		for i := range entries {
			entry := entries[i]
			key := ObjKey{Name: entry.Object, Instance: entry.Instance}
			log.Debugf("[inc sync] syncing object: %s/%s", b.instanceKey, key)

			tracker.Start(entry.ID, 0, entry.Timestamp.Time)
			position = entry.ID

			var versionedEpoch uint64
			if entry.Ver.Pool < 0 {
				versionedEpoch = entry.Ver.Epoch
			}
			op := entry.Op
			entryID := entry.ID
			mtime := entry.Timestamp.Time
			group.Spawn(func() error {
				return syncBucketEntry(ctx, b, key, versionedEpoch, mtime, op, entryID, tracker)
			})

			for group.NumSpawned() > bucketSyncSpawnWindow {
				if err := group.WaitForChild(); err != nil {
					log.Errorf("a sync operation failed: %+v", err)
				}
			}
		}
	}

	b.logChildErrors("incremental sync", group.DrainAll())

	// commit the tail of the window before handing control back
	return tracker.Flush(ctx)
}

func (b *BucketShardSync) logChildErrors(phase string, errs []error) {
	for _, err := range errs {
		log.Errorf("%s on %s: a sync operation failed: %+v", phase, b.instanceKey, err)
	}
}

// ReadBucketSyncStatus reads the state of every shard of one bucket instance,
// fanning the attr reads out concurrently. Unsharded buckets pass numShards 0.
func ReadBucketSyncStatus(ctx context.Context, status *StatusStore, sourceZone string,
	bucketName string, bucketID string, numShards int) (map[int]*BucketShardStatus, error) {

	effectiveNumShards := numShards
	if effectiveNumShards == 0 {
		effectiveNumShards = 1
	}

	var resultLock sync.Mutex
	result := make(map[int]*BucketShardStatus)
	group := newTaskGroup()
	for i := 0; i < effectiveNumShards; i++ {
		shardID := i
		if numShards == 0 {
			shardID = -1
		}
		group.Spawn(func() error {
			shardStatus, err := status.ReadBucketShardStatus(ctx, sourceZone,
				remote.InstanceKey(bucketName, bucketID, shardID))
			if err != nil {
				return err
			}
			resultLock.Lock()
			result[shardID] = shardStatus
			resultLock.Unlock()
			return nil
		})
	}
	for _, err := range group.DrainAll() {
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// syncBucketEntry applies one object-level mutation and finishes its marker.
// A failed transfer leaves the marker pending so the durable position cannot
// advance past the entry; the next pass over the same log range retries it.
func syncBucketEntry[T comparable](ctx context.Context, b *BucketShardSync, key ObjKey,
	versionedEpoch uint64, mtime time.Time, op remote.ModifyOp,
	entryMarker T, tracker *MarkerTracker[T]) error {

	var syncErr error
	switch op {
	case remote.OpAdd, remote.OpLinkOLH:
		if op == remote.OpAdd && key.Instance != "" && key.Instance != "null" {
			// versioned object, will be synced on its link_olh event
			log.Debugf("bucket skipping sync obj: %s/%s/%s[%d]", b.env.SourceZone, b.instanceKey, key, versionedEpoch)
		} else {
			log.Debugf("bucket sync: sync obj: %s/%s/%s[%d]", b.env.SourceZone, b.instanceKey, key, versionedEpoch)
			syncErr = b.env.Objects.FetchRemoteObject(ctx, b.env.SourceZone, b.bucketName, b.bucketID,
				key, versionedEpoch)
		}
	case remote.OpDelete:
		syncErr = b.env.Objects.RemoveObject(ctx, b.env.SourceZone, b.bucketName, b.bucketID,
			key, versionedEpoch, mtime)
	default:
		log.Warnf("bucket sync: unknown op %s on %s/%s, skipping", op, b.instanceKey, key)
	}

	if syncErr != nil {
		return xerror.Wrapf(syncErr, xerror.Sync, "sync object %s/%s failed", b.instanceKey, key)
	}

	xmetrics.SyncedObject(b.env.SourceZone)
	return tracker.Finish(ctx, entryMarker)
}
