package sync

import (
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/zonestor/zone_syncer/pkg/xerror"
	"github.com/zonestor/zone_syncer/pkg/xmetrics"
)

// SyncerManager owns the zone syncers of this process. Thread safe.
type SyncerManager struct {
	syncers map[string]*ZoneSyncer
	lock    sync.RWMutex
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewSyncerManager() *SyncerManager {
	return &SyncerManager{
		syncers: make(map[string]*ZoneSyncer),
		stop:    make(chan struct{}),
	}
}

// AddSyncer registers a zone syncer and starts it.
func (sm *SyncerManager) AddSyncer(syncer *ZoneSyncer) error {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	zone := syncer.SourceZone()
	if _, ok := sm.syncers[zone]; ok {
		return xerror.Errorf(xerror.Normal, "sync for source zone %s already exists", zone)
	}

	log.Info("add zone syncer", zap.String("zone", zone))
	sm.syncers[zone] = syncer
	xmetrics.AddNewZone(zone)
	sm.runSyncer(syncer)

	return nil
}

// RemoveSyncer stops and removes a zone syncer.
func (sm *SyncerManager) RemoveSyncer(zone string) error {
	sm.lock.Lock()
	defer sm.lock.Unlock()

	syncer, ok := sm.syncers[zone]
	if !ok {
		return xerror.Errorf(xerror.Normal, "sync for source zone %s not exists", zone)
	}

	syncer.Stop()
	delete(sm.syncers, zone)
	return nil
}

func (sm *SyncerManager) GetSyncer(zone string) (*ZoneSyncer, bool) {
	sm.lock.RLock()
	defer sm.lock.RUnlock()

	syncer, ok := sm.syncers[zone]
	return syncer, ok
}

func (sm *SyncerManager) ListZones() []string {
	sm.lock.RLock()
	defer sm.lock.RUnlock()

	zones := make([]string, 0, len(sm.syncers))
	for zone := range sm.syncers {
		zones = append(zones, zone)
	}
	return zones
}

// Wakeup routes a bucket-shard notification to the owning zone syncer.
func (sm *SyncerManager) Wakeup(zone string, shardID int, keys []string) {
	sm.lock.RLock()
	defer sm.lock.RUnlock()

	if syncer, ok := sm.syncers[zone]; ok {
		syncer.Wakeup(shardID, keys)
	}
}

// Start blocks until Stop.
func (sm *SyncerManager) Start() error {
	<-sm.stop
	return nil
}

// Stop stops all syncers, then the manager.
func (sm *SyncerManager) Stop() error {
	sm.lock.RLock()
	for _, syncer := range sm.syncers {
		syncer.Stop()
	}
	sm.lock.RUnlock()

	close(sm.stop)
	sm.wg.Wait()
	return nil
}

func (sm *SyncerManager) runSyncer(syncer *ZoneSyncer) {
	sm.wg.Add(1)

	go func() {
		defer sm.wg.Done()

		if err := syncer.Run(); err != nil {
			log.Errorf("zone sync failed, zone: %s, err: %+v", syncer.SourceZone(), err)
		}
	}()
}
