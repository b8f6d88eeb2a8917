package main

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	syncpkg "github.com/zonestor/zone_syncer/pkg/sync"
)

const (
	MONITOR_DURATION = time.Second * 60
)

type Monitor struct {
	manager *syncpkg.SyncerManager
	stop    chan struct{}
}

func NewMonitor(manager *syncpkg.SyncerManager) *Monitor {
	return &Monitor{
		manager: manager,
		stop:    make(chan struct{}),
	}
}

func (m *Monitor) dump() {
	log.Infof("[GOROUTINE] Total = %v", runtime.NumGoroutine())

	mb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	// see: https://golang.org/pkg/runtime/#MemStats
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	liveObjects := stats.Mallocs - stats.Frees
	log.Infof("[MEMORY STATS] Alloc = %v MiB, TotalAlloc = %v MiB, Sys = %v MiB, NumGC = %v, LiveObjects = %v",
		mb(stats.Alloc), mb(stats.TotalAlloc), mb(stats.Sys), stats.NumGC, liveObjects)

	zones := m.manager.ListZones()
	log.Infof("[SYNC STATS] Zones = %v, Total = %v", zones, len(zones))
}

func (m *Monitor) Start() {
	ticker := time.NewTicker(MONITOR_DURATION)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			log.Info("monitor stopped")
			return
		case <-ticker.C:
			m.dump()
		}
	}
}

func (m *Monitor) Stop() {
	log.Info("monitor stopping")
	close(m.stop)
}
