package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/RonaldsonBellande/humanoid-robot-demos/tracking"
)

// TickStats accumulates control-loop timing and status counts between
// performance reports.
type TickStats struct {
	mu           sync.Mutex
	latencies    []float64 // seconds
	statusCounts map[tracking.Status]int
	since        time.Time
}

// NewTickStats creates an empty accumulator.
func NewTickStats() *TickStats {
	return &TickStats{
		statusCounts: make(map[tracking.Status]int),
		since:        time.Now(),
	}
}

// Record adds one control cycle. Safe to call from the dispatch
// goroutine while reports are read elsewhere.
func (s *TickStats) Record(status tracking.Status, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, elapsed.Seconds())
	s.statusCounts[status]++
}

// ReportAndReset formats a summary of the window since the last report
// and starts a new window.
func (s *TickStats) ReportAndReset() string {
	s.mu.Lock()
	latencies := s.latencies
	counts := s.statusCounts
	since := s.since
	s.latencies = nil
	s.statusCounts = make(map[tracking.Status]int)
	s.since = time.Now()
	s.mu.Unlock()

	if len(latencies) == 0 {
		return fmt.Sprintf("no ticks in the last %.0fs", time.Since(since).Seconds())
	}

	sort.Float64s(latencies)
	mean := stat.Mean(latencies, nil)
	stddev := stat.StdDev(latencies, nil)
	p95 := stat.Quantile(0.95, stat.Empirical, latencies, nil)

	return fmt.Sprintf("%d ticks | latency mean=%.3fms stddev=%.3fms p95=%.3fms | found=%d waiting=%d not_found=%d",
		len(latencies), mean*1000, stddev*1000, p95*1000,
		counts[tracking.StatusFound], counts[tracking.StatusWaiting], counts[tracking.StatusNotFound])
}
