package formatter

import (
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/younsl/snapshot-profiler/internal/models"
	"github.com/younsl/snapshot-profiler/pkg/utils"
)

// SnapshotStats aggregates snapshot elapsed times
type SnapshotStats struct {
	Count int64
	Min   time.Duration
	Mean  time.Duration
	Max   time.Duration
	P95   time.Duration
}

// ComputeSnapshotStats feeds the records into a go-metrics timer and reads the aggregate back
func ComputeSnapshotStats(records []models.SnapshotRecord) SnapshotStats {
	registry := metrics.NewRegistry()
	timer := metrics.GetOrRegisterTimer("snapshot.elapsed", registry)
	for _, rec := range records {
		timer.Update(utils.SecondsToDuration(rec.ElapsedSeconds))
	}

	snap := timer.Snapshot()
	return SnapshotStats{
		Count: snap.Count(),
		Min:   time.Duration(snap.Min()),
		Mean:  time.Duration(snap.Mean()),
		Max:   time.Duration(snap.Max()),
		P95:   time.Duration(snap.Percentile(0.95)),
	}
}
