package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksim/stacksim/stacking"
)

func testBundle() *stacking.StackingBundle {
	cut := 5.0
	return &stacking.StackingBundle{
		Stacking: stacking.StackingConfig{
			Policy:    "energy-cut",
			EnergyCut: &cut,
		},
		Gun: stacking.GunConfig{
			ParticlesPerEvent: 4,
			EnergyMean:        50,
			EnergyStdDev:      10,
			EnergyMin:         1,
			EnergyMax:         200,
			Species:           map[string]float64{"gamma": 0.5, "electron": 0.5},
		},
		Dispatch: stacking.DispatchConfig{Workers: 2},
	}
}

func TestRunLoop_ProcessesAllEvents(t *testing.T) {
	// GIVEN a small energy-cut run
	bundle := testBundle()
	require.NoError(t, bundle.Validate())

	// WHEN running 5 events
	metrics, err := runLoop(bundle, 42, 5)
	require.NoError(t, err)

	// THEN every event drained and the push/pop/kill accounting balances:
	// each pushed track is either popped by the loop or killed on push
	assert.Equal(t, 5, metrics.EventsProcessed)
	assert.GreaterOrEqual(t, metrics.TracksPushed, 5*4)
	assert.Equal(t, metrics.TracksPushed, metrics.TracksPopped+metrics.TracksKilled)
	assert.Greater(t, metrics.TracksKilled, 0)
}

func TestRunLoop_SameSeed_IsDeterministic(t *testing.T) {
	// GIVEN two identical runs
	m1, err := runLoop(testBundle(), 7, 3)
	require.NoError(t, err)
	m2, err := runLoop(testBundle(), 7, 3)
	require.NoError(t, err)

	// THEN the aggregate counters match exactly
	assert.Equal(t, m1.TracksPushed, m2.TracksPushed)
	assert.Equal(t, m1.TracksPopped, m2.TracksPopped)
	assert.Equal(t, m1.TracksKilled, m2.TracksKilled)
	assert.Equal(t, m1.KilledEnergyPerEvent, m2.KilledEnergyPerEvent)
}

func TestRunLoop_NeutronPostpone_CarriesTracksAcrossEvents(t *testing.T) {
	// GIVEN a neutron-postpone run with a neutron-rich gun
	bundle := testBundle()
	bundle.Stacking.Policy = "neutron-postpone"
	bundle.Gun.Species = map[string]float64{"neutron": 0.6, "gamma": 0.4}
	require.NoError(t, bundle.Validate())

	// WHEN running several events
	metrics, err := runLoop(bundle, 11, 6)
	require.NoError(t, err)

	// THEN secondary neutrons were postponed along the way
	assert.Equal(t, 6, metrics.EventsProcessed)
	assert.Greater(t, metrics.TracksPostponed, 0)
}

func TestRunLoop_SubBatchOverride_ReleasesBatches(t *testing.T) {
	// GIVEN gammas routed to sub-batch type 1 via a default override
	bundle := testBundle()
	bundle.Stacking.Policy = "urgent-all"
	bundle.SubBatches = []stacking.SubBatchConfig{{Type: 1, Capacity: 4}}
	bundle.Defaults = []stacking.DefaultConfig{
		{Particle: "gamma", Classification: "subbatch", SubBatchType: 1, Severity: "ignore"},
	}
	require.NoError(t, bundle.Validate())

	// WHEN running
	metrics, err := runLoop(bundle, 42, 4)
	require.NoError(t, err)

	// THEN gammas were sub-batched and batches were released for dispatch
	assert.Greater(t, metrics.TracksSubBatched, 0)
	assert.Greater(t, metrics.BatchesReleased, 0)
	// sub-batched tracks never reach the tracking loop
	assert.Equal(t, metrics.TracksPushed, metrics.TracksPopped+metrics.TracksKilled+metrics.TracksSubBatched)
}

func TestRunLoop_StagedEM_PromotesTiers(t *testing.T) {
	// GIVEN the staged-em policy holding EM secondaries in tier 0
	bundle := testBundle()
	bundle.Stacking.Policy = "staged-em"
	require.NoError(t, bundle.Validate())

	// WHEN running
	metrics, err := runLoop(bundle, 3, 4)
	require.NoError(t, err)

	// THEN at least one stage promotion happened
	assert.Greater(t, metrics.Stages, 0)
}

func TestMergeBundle_FileOverridesFlags(t *testing.T) {
	// GIVEN a flag-derived bundle and a partial file bundle
	dst := testBundle()
	fileCut := 9.0
	src := &stacking.StackingBundle{
		Stacking:   stacking.StackingConfig{Policy: "staged-em", EnergyCut: &fileCut, AdditionalWaitingTiers: 2},
		SubBatches: []stacking.SubBatchConfig{{Type: 3, Capacity: 8}},
		Gun:        stacking.GunConfig{ParticlesPerEvent: 12},
		Dispatch:   stacking.DispatchConfig{Workers: 5},
	}

	// WHEN merging
	mergeBundle(dst, src)

	// THEN file values win where set, flag values survive elsewhere
	assert.Equal(t, "staged-em", dst.Stacking.Policy)
	assert.Equal(t, 9.0, *dst.Stacking.EnergyCut)
	assert.Equal(t, 2, dst.Stacking.AdditionalWaitingTiers)
	assert.Len(t, dst.SubBatches, 1)
	assert.Equal(t, 12, dst.Gun.ParticlesPerEvent)
	assert.Equal(t, 50.0, dst.Gun.EnergyMean) // untouched flag value
	assert.Equal(t, 5, dst.Dispatch.Workers)
}
