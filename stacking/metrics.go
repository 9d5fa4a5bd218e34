// Tracks run-wide stacking statistics for final reporting. Useful for
// evaluating policy behavior and debugging event composition over time.

package stacking

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics across events for final reporting.
type Metrics struct {
	EventsProcessed int // events fully drained
	EventsAborted   int // events terminated via AbortEvent

	TracksPushed     int // tracks accepted by PushOneTrack
	TracksPopped     int // tracks handed to the tracking loop
	TracksKilled     int // tracks destroyed on the kill fast-path
	TracksPostponed  int // tracks deferred to a later event
	TracksSubBatched int // tracks routed into sub-batches
	BatchesReleased  int // sub-batches handed off for dispatch
	Stages           int // waiting-tier promotions

	PeakUrgentDepth int // deepest urgent container seen across events

	// KilledEnergyPerEvent records the kinetic energy destroyed on the kill
	// fast-path, one sample per event, for the end-of-run summary.
	KilledEnergyPerEvent []float64
}

// NewMetrics creates an empty metrics aggregate.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordEvent folds one drained event's coordinator counters into the run
// aggregate. prev is the counter snapshot taken before the event started.
func (m *Metrics) RecordEvent(prev, now CoordinatorCounters, peakUrgent, batchesReleased int) {
	m.EventsProcessed++
	m.TracksPushed += now.Pushed - prev.Pushed
	m.TracksPopped += now.Popped - prev.Popped
	m.TracksKilled += now.Killed - prev.Killed
	m.TracksPostponed += now.Postponed - prev.Postponed
	m.TracksSubBatched += now.SubBatched - prev.SubBatched
	m.Stages += now.Stages - prev.Stages
	m.BatchesReleased += batchesReleased
	if peakUrgent > m.PeakUrgentDepth {
		m.PeakUrgentDepth = peakUrgent
	}
	m.KilledEnergyPerEvent = append(m.KilledEnergyPerEvent, now.KilledEnergy-prev.KilledEnergy)
}

// KilledEnergySummary returns mean, standard deviation and median of the
// per-event killed energy series. Zeroes when no events were recorded.
func (m *Metrics) KilledEnergySummary() (mean, stddev, median float64) {
	if len(m.KilledEnergyPerEvent) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(m.KilledEnergyPerEvent, nil)
	stddev = stat.StdDev(m.KilledEnergyPerEvent, nil)
	sorted := append([]float64(nil), m.KilledEnergyPerEvent...)
	sort.Float64s(sorted)
	median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return mean, stddev, median
}

// Print displays aggregated metrics at the end of the run.
func (m *Metrics) Print() {
	fmt.Println("=== Stacking Metrics ===")
	fmt.Printf("Events Processed     : %d\n", m.EventsProcessed)
	fmt.Printf("Events Aborted       : %d\n", m.EventsAborted)
	fmt.Printf("Tracks Pushed        : %d\n", m.TracksPushed)
	fmt.Printf("Tracks Popped        : %d\n", m.TracksPopped)
	fmt.Printf("Tracks Killed        : %d\n", m.TracksKilled)
	fmt.Printf("Tracks Postponed     : %d\n", m.TracksPostponed)
	fmt.Printf("Tracks Sub-batched   : %d\n", m.TracksSubBatched)
	fmt.Printf("Batches Released     : %d\n", m.BatchesReleased)
	fmt.Printf("Stage Promotions     : %d\n", m.Stages)
	fmt.Printf("Peak Urgent Depth    : %d\n", m.PeakUrgentDepth)
	if m.EventsProcessed > 0 {
		mean, stddev, median := m.KilledEnergySummary()
		fmt.Printf("Killed Energy / Event: mean=%.2f stddev=%.2f median=%.2f\n", mean, stddev, median)
	}
}
