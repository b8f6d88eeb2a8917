package xmetrics

import (
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-metrics/prometheus"
	"github.com/zonestor/zone_syncer/pkg/xerror"
)

func InitGlobal(serviceName string) error {
	sink, err := prometheus.NewPrometheusSink()
	if err != nil {
		return xerror.Wrap(err, xerror.Normal, "init prometheus sink falied")
	}

	if _, err := metrics.NewGlobal(metrics.DefaultConfig(serviceName), sink); err != nil {
		return xerror.Wrap(err, xerror.Normal, "new global metrics falied")
	}

	return nil
}

func AddError(err *xerror.XError) {
	metrics.IncrCounter(ErrorMetrics(err).Tag(), 1)
}

func AddNewZone(zone string) {
	metrics.IncrCounter(DashboardMetrics().ZoneNum().Tag(), 1)

	metrics.SetGauge(ZoneMetrics(zone).SyncedObjectNum().Tag(), 0)
}

func ConsumeLogEntry(zone string, shardId int) {
	metrics.IncrCounter(ShardMetrics(zone, shardId).ConsumedEntryNum().Tag(), 1)

	metrics.IncrCounter(DashboardMetrics().SyncedEntryNum().Tag(), 1)
}

func FullSyncPos(zone string, shardId int, pos uint64) {
	metrics.SetGauge(ShardMetrics(zone, shardId).FullSyncPos().Tag(), float32(pos))
}

func SyncedObject(zone string) {
	metrics.IncrCounter(ZoneMetrics(zone).SyncedObjectNum().Tag(), 1)
}

func FullSyncIndexSize(zone string, size uint64) {
	metrics.SetGauge(ZoneMetrics(zone).FullSyncIndexSize().Tag(), float32(size))
}
