package delivery

import (
	"sync/atomic"

	"github.com/marconicastro/zeropragas-sub000/internal/domain"
)

// Stats holds the process-lifetime advisory counters. All updates are atomic
// and lock-free: the delivery path never blocks on, and never fails because
// of, a counter update.
type Stats struct {
	totalProcessed atomic.Uint64
	succeeded      atomic.Uint64
	failed         atomic.Uint64
	duplicates     atomic.Uint64
	latencyMicros  atomic.Uint64
	latencyCount   atomic.Uint64
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) recordDuplicate() {
	s.duplicates.Add(1)
}

func (s *Stats) recordOutcome(succeeded bool, latencyMicros uint64) {
	s.totalProcessed.Add(1)
	if succeeded {
		s.succeeded.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.latencyMicros.Add(latencyMicros)
	s.latencyCount.Add(1)
}

// Snapshot returns a point-in-time copy. Counters are read independently, so
// a snapshot taken mid-delivery may be momentarily inconsistent; that is the
// documented accuracy level of this surface.
func (s *Stats) Snapshot() domain.StatsSnapshot {
	snap := domain.StatsSnapshot{
		TotalProcessed:      s.totalProcessed.Load(),
		Succeeded:           s.succeeded.Load(),
		Failed:              s.failed.Load(),
		DuplicatesPrevented: s.duplicates.Load(),
	}
	if n := s.latencyCount.Load(); n > 0 {
		snap.AverageProcessingTimeMs = float64(s.latencyMicros.Load()) / float64(n) / 1000.0
	}
	return snap
}
