package sync

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zonestor/zone_syncer/pkg/xerror"
	"github.com/zonestor/zone_syncer/pkg/xmetrics"
)

const (
	datalogSyncUpdateMarkerWindow = 1
	omapGetMaxEntries             = 100
	incrementalInterval           = 20 * time.Second
)

// DatalogShardSync pumps one datalog shard of the source zone: full sync over
// the pre-built full-sync index, then an endless incremental tail of the
// remote shard, dispatching a bucket-shard sync per entry.
type DatalogShardSync struct {
	env     *Env
	shardID int
	marker  DatalogShardMarker

	tracker *MarkerTracker[string]

	// incLock guards modifiedShards: producer is the external wakeup path,
	// consumer is the incremental loop.
	incLock        sync.Mutex
	modifiedShards map[string]struct{}
	wakeupCh       chan struct{}
}

func NewDatalogShardSync(env *Env, shardID int, marker DatalogShardMarker) *DatalogShardSync {
	return &DatalogShardSync{
		env:            env,
		shardID:        shardID,
		marker:         marker,
		modifiedShards: make(map[string]struct{}),
		wakeupCh:       make(chan struct{}, 1),
	}
}

// AppendModifiedShards records out-of-band notifications of touched bucket
// shards; the incremental loop drains them on its next turn.
func (s *DatalogShardSync) AppendModifiedShards(keys []string) {
	s.incLock.Lock()
	defer s.incLock.Unlock()

	for _, key := range keys {
		s.modifiedShards[key] = struct{}{}
	}
}

// Wakeup cancels the incremental idle wait.
func (s *DatalogShardSync) Wakeup() {
	select {
	case s.wakeupCh <- struct{}{}:
	default:
	}
}

func (s *DatalogShardSync) Run(ctx context.Context) error {
	for {
		switch s.marker.State {
		case DatalogFullSync:
			if err := s.fullSync(ctx); err != nil {
				return err
			}
		case DatalogIncrementalSync:
			return s.incrementalSync(ctx)
		default:
			return xerror.Errorf(xerror.Sync, "invalid datalog shard state: %d", s.marker.State)
		}
	}
}

func (s *DatalogShardSync) newMarkerTracker() *MarkerTracker[string] {
	return NewMarkerTracker[string](datalogSyncUpdateMarkerWindow,
		func(ctx context.Context, marker string, indexPos uint64, timestamp time.Time) error {
			s.marker.Marker = marker
			s.marker.Pos = indexPos
			if !timestamp.IsZero() {
				s.marker.Timestamp = timestamp
			}
			log.Debugf("shard %d: updating marker to %s", s.shardID, marker)
			return s.env.Status.WriteShardMarker(ctx, s.env.SourceZone, s.shardID, &s.marker)
		})
}

func (s *DatalogShardSync) fullSync(ctx context.Context) error {
	log.Infof("shard %d: full sync from %q", s.shardID, s.marker.Marker)

	s.tracker = s.newMarkerTracker()
	totalEntries := s.marker.Pos
	listMarker := s.marker.Marker
	group := newTaskGroup()

	for {
		entries, err := s.env.Status.ListFullSyncIndex(ctx, s.env.SourceZone, s.shardID,
			listMarker, omapGetMaxEntries)
		if err != nil {
			group.DrainAll()
			return err
		}

		for _, entry := range entries {
			log.Debugf("shard %d: full sync: %s", s.shardID, entry.Key)
			totalEntries++
			s.tracker.Start(entry.Key, totalEntries, time.Time{})
			listMarker = entry.Key

			rawKey := entry.Key
			if err := s.dispatchSingleEntry(ctx, group, rawKey, rawKey); err != nil {
				group.DrainAll()
				return err
			}
			xmetrics.FullSyncPos(s.env.SourceZone, s.shardID, totalEntries)
		}

		if len(entries) < omapGetMaxEntries {
			break
		}
	}

	for _, err := range group.DrainAll() {
		log.Errorf("shard %d: full sync entry failed: %+v", s.shardID, err)
	}

	// update marker to reflect we're done with full sync
	s.marker.State = DatalogIncrementalSync
	s.marker.Marker = s.marker.NextStepMarker
	s.marker.NextStepMarker = ""
	if err := s.env.Status.WriteShardMarker(ctx, s.env.SourceZone, s.shardID, &s.marker); err != nil {
		return xerror.Wrapf(err, xerror.Sync, "shard %d: set sync marker failed", s.shardID)
	}
	return nil
}

func (s *DatalogShardSync) incrementalSync(ctx context.Context) error {
	s.tracker = s.newMarkerTracker()
	pagingMarker := s.marker.Marker
	group := newTaskGroup()

	for {
		if ctx.Err() != nil {
			group.DrainAll()
			return nil
		}

		// process out of band updates
		s.incLock.Lock()
		currentModified := s.modifiedShards
		s.modifiedShards = make(map[string]struct{})
		s.incLock.Unlock()

		for key := range currentModified {
			log.Debugf("shard %d: async update notification: %s", s.shardID, key)
			if err := s.dispatchSingleEntry(ctx, group, key, ""); err != nil {
				group.DrainAll()
				return err
			}
		}

		info, err := s.env.Client.GetDatalogShardInfo(ctx, s.shardID)
		if err != nil {
			log.Errorf("shard %d: fetch remote datalog info failed: %+v", s.shardID, err)
			s.waitInterval(ctx)
			continue
		}
		datalogMarker := info.Marker

		log.Debugf("shard %d: datalog_marker=%q sync_marker=%q", s.shardID, datalogMarker, pagingMarker)
		if datalogMarker > pagingMarker {
			result, err := s.env.Client.ListDatalogShard(ctx, s.shardID, pagingMarker)
			if err != nil {
				log.Errorf("shard %d: fetch remote datalog entries failed: %+v", s.shardID, err)
				s.waitInterval(ctx)
				continue
			}

			for _, entry := range result.Entries {
				log.Debugf("shard %d: log_entry: %s:%s", s.shardID, entry.LogID, entry.Entry.Key)
				if !s.tracker.IndexKeyToMarker(entry.Entry.Key, entry.LogID) {
					// sync already in progress for this bucket shard
					log.Debugf("shard %d: skipping entry %s:%s", s.shardID, entry.LogID, entry.Entry.Key)
					continue
				}
				s.tracker.Start(entry.LogID, 0, entry.LogTimestamp.Time)
				if err := s.dispatchSingleEntry(ctx, group, entry.Entry.Key, entry.LogID); err != nil {
					group.DrainAll()
					return err
				}
				xmetrics.ConsumeLogEntry(s.env.SourceZone, s.shardID)
			}
			if result.Marker != "" {
				pagingMarker = result.Marker
			} else if len(result.Entries) == 0 {
				// nothing new despite the head being ahead, back off
				s.waitInterval(ctx)
			}
		}

		for _, err := range group.Collect() {
			log.Errorf("shard %d: sync entry failed: %+v", s.shardID, err)
		}

		if datalogMarker == pagingMarker {
			s.waitInterval(ctx)
		}
	}
}

// waitInterval idles between incremental turns; a wakeup or shutdown cancels
// the sleep.
func (s *DatalogShardSync) waitInterval(ctx context.Context) {
	timer := time.NewTimer(incrementalInterval)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.wakeupCh:
		log.Debugf("shard %d: wakeup", s.shardID)
	case <-ctx.Done():
	}
}

// dispatchSingleEntry parses a raw datalog key and spawns the bucket-shard
// sync worker for it. An unparseable key is a shard-level error.
func (s *DatalogShardSync) dispatchSingleEntry(ctx context.Context, group *taskGroup,
	rawKey string, entryMarker string) error {

	bucketName, bucketID, shardID, err := parseBucketShard(rawKey)
	if err != nil {
		return err
	}

	tracker := s.tracker
	group.Spawn(func() error {
		for {
			tracker.ResetNeedRetry(rawKey)
			if err := NewBucketShardSync(s.env, bucketName, bucketID, shardID).Run(ctx); err != nil {
				// entry marker stays pending, a later pass picks the key up again
				return xerror.Wrapf(err, xerror.Sync, "sync bucket shard %s failed", rawKey)
			}
			// repeat once when another entry for the key arrived while this
			// sync was in flight
			if !tracker.NeedRetry(rawKey) {
				break
			}
			log.Debugf("shard %d: retrying bucket shard %s", s.shardID, rawKey)
		}

		if entryMarker != "" {
			return tracker.Finish(ctx, entryMarker)
		}
		return nil
	})
	return nil
}

// parseBucketShard splits "<bucket>:<bucket_id>[:<shard_id>]"; shard id is -1
// for unsharded buckets.
func parseBucketShard(rawKey string) (string, string, int, error) {
	pos := strings.Index(rawKey, ":")
	if pos < 0 {
		return rawKey, "", -1, nil
	}
	bucketName := rawKey[:pos]
	bucketInstance := rawKey[pos+1:]

	shardID := -1
	if pos = strings.Index(bucketInstance, ":"); pos >= 0 {
		parsed, err := strconv.Atoi(bucketInstance[pos+1:])
		if err != nil {
			return "", "", 0, xerror.Errorf(xerror.Sync, "parse bucket instance key %s failed", rawKey)
		}
		shardID = parsed
		bucketInstance = bucketInstance[:pos]
	}
	return bucketName, bucketInstance, shardID, nil
}
