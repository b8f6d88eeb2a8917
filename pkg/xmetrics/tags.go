package xmetrics

import (
	"strconv"

	"github.com/zonestor/zone_syncer/pkg/xerror"
)

type IMetricsTag interface {
	Tag() []string
}

type metricsTag struct {
	tags []string
}

// dashboard metrics
type dashboardMetrics struct {
	metricsTag
}

func DashboardMetrics() *dashboardMetrics {
	return &dashboardMetrics{
		metricsTag: metricsTag{[]string{"dashboard"}},
	}
}

func (d *dashboardMetrics) Tag() []string {
	return d.tags
}

func (d *dashboardMetrics) ZoneNum() IMetricsTag {
	d.tags = append(d.tags, "zoneNum")
	return d
}

func (d *dashboardMetrics) SyncedEntryNum() IMetricsTag {
	d.tags = append(d.tags, "syncedEntryNum")
	return d
}

// zone metrics
type zoneMetrics struct {
	metricsTag
	zone string
}

func ZoneMetrics(zone string) *zoneMetrics {
	return &zoneMetrics{
		metricsTag: metricsTag{[]string{"zone"}},
		zone:       zone,
	}
}

func (z *zoneMetrics) Tag() []string {
	z.tags = append(z.tags, z.zone)
	return z.tags
}

func (z *zoneMetrics) SyncedObjectNum() IMetricsTag {
	z.tags = append(z.tags, "syncedObjectNum")
	return z
}

func (z *zoneMetrics) FullSyncIndexSize() IMetricsTag {
	z.tags = append(z.tags, "fullSyncIndexSize")
	return z
}

// per datalog shard metrics
type shardMetrics struct {
	metricsTag
	zone    string
	shardId int
}

func ShardMetrics(zone string, shardId int) *shardMetrics {
	return &shardMetrics{
		metricsTag: metricsTag{[]string{"shard"}},
		zone:       zone,
		shardId:    shardId,
	}
}

func (s *shardMetrics) Tag() []string {
	s.tags = append(s.tags, s.zone, strconv.Itoa(s.shardId))
	return s.tags
}

func (s *shardMetrics) ConsumedEntryNum() IMetricsTag {
	s.tags = append(s.tags, "consumedEntryNum")
	return s
}

func (s *shardMetrics) FullSyncPos() IMetricsTag {
	s.tags = append(s.tags, "fullSyncPos")
	return s
}

// error metrics
type errorMetrics struct {
	metricsTag
}

func ErrorMetrics(err *xerror.XError) IMetricsTag {
	errMetrics := &errorMetrics{
		metricsTag: metricsTag{[]string{"error", err.Category().Name()}},
	}

	if err.IsRecoverable() {
		errMetrics.tags = append(errMetrics.tags, "recoverable")
	} else if err.IsPanic() {
		errMetrics.tags = append(errMetrics.tags, "panic")
	} else {
		errMetrics.tags = append(errMetrics.tags, "unknown")
	}

	return errMetrics
}

func (e *errorMetrics) Tag() []string {
	return e.tags
}
