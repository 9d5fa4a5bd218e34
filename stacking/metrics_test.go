package stacking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordEvent_AccumulatesDeltas(t *testing.T) {
	// GIVEN counter snapshots around two events
	m := NewMetrics()
	prev := CoordinatorCounters{}
	after1 := CoordinatorCounters{Pushed: 10, Popped: 8, Killed: 2, Stages: 1, KilledEnergy: 5.0}
	after2 := CoordinatorCounters{Pushed: 15, Popped: 12, Killed: 3, Stages: 3, KilledEnergy: 9.0}

	// WHEN recording both events
	m.RecordEvent(prev, after1, 6, 1)
	m.RecordEvent(after1, after2, 4, 2)

	// THEN run totals are the summed per-event deltas
	assert.Equal(t, 2, m.EventsProcessed)
	assert.Equal(t, 15, m.TracksPushed)
	assert.Equal(t, 12, m.TracksPopped)
	assert.Equal(t, 3, m.TracksKilled)
	assert.Equal(t, 3, m.Stages)
	assert.Equal(t, 3, m.BatchesReleased)
	assert.Equal(t, 6, m.PeakUrgentDepth)
	assert.Equal(t, []float64{5.0, 4.0}, m.KilledEnergyPerEvent)
}

func TestMetrics_KilledEnergySummary_EmptyRun(t *testing.T) {
	m := NewMetrics()
	mean, stddev, median := m.KilledEnergySummary()
	assert.Zero(t, mean)
	assert.Zero(t, stddev)
	assert.Zero(t, median)
}

func TestMetrics_KilledEnergySummary_ComputesMoments(t *testing.T) {
	// GIVEN per-event killed energies 2, 4, 6
	m := NewMetrics()
	m.KilledEnergyPerEvent = []float64{2, 4, 6}

	// WHEN summarizing
	mean, stddev, median := m.KilledEnergySummary()

	// THEN the moments match
	assert.InDelta(t, 4.0, mean, 1e-12)
	assert.InDelta(t, 2.0, stddev, 1e-12)
	assert.InDelta(t, 4.0, median, 1e-12)
}
