package sync

import (
	"context"
	"strings"
	"sync"

	"github.com/modern-go/gls"
	log "github.com/sirupsen/logrus"

	"github.com/zonestor/zone_syncer/pkg/remote"
	"github.com/zonestor/zone_syncer/pkg/store"
	"github.com/zonestor/zone_syncer/pkg/utils"
	"github.com/zonestor/zone_syncer/pkg/xerror"
	"github.com/zonestor/zone_syncer/pkg/xmetrics"
)

const instanceIDLen = 8

// ZoneSyncer drives replication from one source zone:
// Init -> BuildingFullSyncMaps -> Sync, then one DatalogShardSync per shard,
// forever.
type ZoneSyncer struct {
	env *Env

	// shardsLock guards shards: writer is Run during setup, readers are the
	// wakeup dispatchers.
	shardsLock sync.RWMutex
	shards     map[int]*DatalogShardSync

	stop chan struct{}
}

func NewZoneSyncer(env *Env) *ZoneSyncer {
	return &ZoneSyncer{
		env:    env,
		shards: make(map[int]*DatalogShardSync),
		stop:   make(chan struct{}),
	}
}

func (z *ZoneSyncer) SourceZone() string {
	return z.env.SourceZone
}

func (z *ZoneSyncer) Stop() {
	close(z.stop)
}

// Run executes the zone state machine until Stop or a fatal error.
func (z *ZoneSyncer) Run() error {
	gls.ResetGls(gls.GoID(), map[interface{}]interface{}{})
	gls.Set("zone", z.env.SourceZone)
	defer gls.DeleteGls(gls.GoID())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-z.stop
		cancel()
	}()

	info, err := z.env.Status.ReadZoneInfo(ctx, z.env.SourceZone)
	if store.IsNotFound(err) {
		// absent status triggers a fresh init, not an error
		info = &ZoneSyncInfo{State: ZoneStateInit, InstanceID: utils.RandAlphanumeric(instanceIDLen)}
		err = nil
	}
	if err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		switch info.State {
		case ZoneStateInit:
			log.Infof("data sync: init")
			if err := z.initSyncStatus(ctx, info); err != nil {
				return err
			}
		case ZoneStateBuildingFullSyncMaps:
			log.Infof("data sync: building full sync maps")
			if err := z.buildFullSyncMaps(ctx, info); err != nil {
				return err
			}
		case ZoneStateSync:
			log.Infof("data sync: sync")
			return z.runShards(ctx, info)
		default:
			return xerror.Errorf(xerror.Sync, "invalid zone sync state: %d", info.State)
		}
	}
}

// initSyncStatus persists the initial zone status and one marker per datalog
// shard, each capturing the remote shard head as the future incremental
// starting point.
func (z *ZoneSyncer) initSyncStatus(ctx context.Context, info *ZoneSyncInfo) error {
	if info.NumShards == 0 {
		datalogInfo, err := z.env.Client.GetDatalogInfo(ctx)
		if err != nil {
			return err
		}
		info.NumShards = datalogInfo.NumShards
	}
	if info.NumShards == 0 {
		return xerror.Errorf(xerror.Sync, "source zone %s has no datalog shards", z.env.SourceZone)
	}

	oid := ZoneStatusOid(z.env.SourceZone)
	cookie := utils.RandAlphanumeric(lockCookieLen)

	// Step 1: take a lock on the status object
	if err := z.env.Status.Lock(ctx, oid, cookie); err != nil {
		return xerror.Wrapf(err, xerror.Sync, "take lock on %s failed", oid)
	}

	// Step 2: write the initial status
	if err := z.env.Status.WriteZoneInfo(ctx, z.env.SourceZone, info); err != nil {
		return err
	}

	// Step 3: take the lock again, the write recreated the object
	if err := z.env.Status.Lock(ctx, oid, cookie); err != nil {
		return xerror.Wrapf(err, xerror.Sync, "take lock on %s failed", oid)
	}

	// Step 4: fetch current shard positions concurrently
	shardInfos := make([]*remote.ShardInfo, info.NumShards)
	group := newTaskGroup()
	for i := 0; i < int(info.NumShards); i++ {
		shardID := i
		group.Spawn(func() error {
			shardInfo, err := z.env.Client.GetDatalogShardInfo(ctx, shardID)
			if err != nil {
				return err
			}
			shardInfos[shardID] = shardInfo
			return nil
		})
	}
	for _, err := range group.DrainAll() {
		if err != nil {
			return err
		}
	}

	// Step 5: write the initial per-shard markers
	for i := 0; i < int(info.NumShards); i++ {
		marker := DatalogShardMarker{
			State:          DatalogFullSync,
			NextStepMarker: shardInfos[i].Marker,
			Timestamp:      shardInfos[i].LastUpdate.Time,
		}
		if err := z.env.Status.WriteShardMarker(ctx, z.env.SourceZone, i, &marker); err != nil {
			return err
		}
	}

	// Step 6: advance the zone state
	info.State = ZoneStateBuildingFullSyncMaps
	if err := z.env.Status.WriteZoneInfo(ctx, z.env.SourceZone, info); err != nil {
		return err
	}

	if err := z.env.Status.Unlock(ctx, oid, cookie); err != nil {
		log.Warnf("release lock on %s failed: %+v", oid, err)
	}
	return nil
}

// buildFullSyncMaps enumerates every bucket instance of the source zone and
// spreads its bucket shards over the per-datalog-shard full-sync indexes,
// using the source-side placement hash.
func (z *ZoneSyncer) buildFullSyncMaps(ctx context.Context, info *ZoneSyncInfo) error {
	instances, err := z.env.Client.ListBucketInstances(ctx)
	if err != nil {
		return err
	}

	indexEntries := make(map[int]map[string]string)
	appendEntry := func(shardID int, key string) {
		if indexEntries[shardID] == nil {
			indexEntries[shardID] = make(map[string]string)
		}
		indexEntries[shardID][key] = ""
	}

	for _, key := range instances {
		log.Debugf("list metadata: section=bucket.instance key=%s", key)

		metaInfo, err := z.env.Client.GetBucketInstanceInfo(ctx, key)
		if err != nil {
			return err
		}

		bucketName := key
		if pos := strings.Index(key, ":"); pos >= 0 {
			bucketName = key[:pos]
		}

		numShards := metaInfo.Data.BucketInfo.NumShards
		if numShards > 0 {
			for i := 0; i < numShards; i++ {
				appendEntry(remote.LogShardID(bucketName, i, info.NumShards),
					remote.InstanceKey(bucketName, bucketIDOf(key), i))
			}
		} else {
			appendEntry(remote.LogShardID(bucketName, -1, info.NumShards), key)
		}
	}

	for shardID, entries := range indexEntries {
		if err := z.env.Status.AppendFullSyncIndex(ctx, z.env.SourceZone, shardID, entries); err != nil {
			return err
		}
	}

	// commit each shard marker's total entries
	var indexTotal uint64
	for i := 0; i < int(info.NumShards); i++ {
		marker, err := z.env.Status.ReadShardMarker(ctx, z.env.SourceZone, i)
		if err != nil {
			return err
		}
		total, err := z.env.Status.CountFullSyncIndex(ctx, z.env.SourceZone, i)
		if err != nil {
			return err
		}
		marker.TotalEntries = total
		indexTotal += total
		if err := z.env.Status.WriteShardMarker(ctx, z.env.SourceZone, i, marker); err != nil {
			return err
		}
	}
	xmetrics.FullSyncIndexSize(z.env.SourceZone, indexTotal)

	info.State = ZoneStateSync
	return z.env.Status.WriteZoneInfo(ctx, z.env.SourceZone, info)
}

// runShards starts one datalog shard pump per shard and blocks until all of
// them stop. A single shard's fatal error does not terminate its peers.
func (z *ZoneSyncer) runShards(ctx context.Context, info *ZoneSyncInfo) error {
	var wg sync.WaitGroup

	z.shardsLock.Lock()
	for i := 0; i < int(info.NumShards); i++ {
		marker, err := z.env.Status.ReadShardMarker(ctx, z.env.SourceZone, i)
		if err != nil {
			z.shardsLock.Unlock()
			return err
		}
		z.shards[i] = NewDatalogShardSync(z.env, i, *marker)
	}
	z.shardsLock.Unlock()

	z.shardsLock.RLock()
	for id, shard := range z.shards {
		wg.Add(1)
		shardID, shardSync := id, shard
		go func() {
			defer wg.Done()

			gls.ResetGls(gls.GoID(), map[interface{}]interface{}{})
			gls.Set("zone", z.env.SourceZone)
			defer gls.DeleteGls(gls.GoID())

			if err := shardSync.Run(ctx); err != nil {
				log.Errorf("shard %d terminated: %+v", shardID, err)
			}
		}()
	}
	z.shardsLock.RUnlock()

	wg.Wait()
	return nil
}

// Wakeup routes an out-of-band notification to the owning shard pump.
func (z *ZoneSyncer) Wakeup(shardID int, keys []string) {
	z.shardsLock.RLock()
	defer z.shardsLock.RUnlock()

	shard, ok := z.shards[shardID]
	if !ok {
		return
	}
	shard.AppendModifiedShards(keys)
	shard.Wakeup()
}

// ReadSyncStatus reads the zone record and all shard markers, fanning the
// marker reads out concurrently.
func (z *ZoneSyncer) ReadSyncStatus(ctx context.Context) (*ZoneSyncInfo, map[int]*DatalogShardMarker, error) {
	info, err := z.env.Status.ReadZoneInfo(ctx, z.env.SourceZone)
	if err != nil {
		return nil, nil, err
	}

	var markersLock sync.Mutex
	markers := make(map[int]*DatalogShardMarker)
	group := newTaskGroup()
	for i := 0; i < int(info.NumShards); i++ {
		shardID := i
		group.Spawn(func() error {
			marker, err := z.env.Status.ReadShardMarker(ctx, z.env.SourceZone, shardID)
			if err != nil {
				return err
			}
			markersLock.Lock()
			markers[shardID] = marker
			markersLock.Unlock()
			return nil
		})
	}
	for _, err := range group.DrainAll() {
		if err != nil {
			return nil, nil, err
		}
	}
	return info, markers, nil
}

func bucketIDOf(instanceKey string) string {
	if pos := strings.Index(instanceKey, ":"); pos >= 0 {
		return instanceKey[pos+1:]
	}
	return ""
}
