package gun

import (
	"testing"

	"github.com/stacksim/stacksim/stacking"
)

func testGunConfig() stacking.GunConfig {
	return stacking.GunConfig{
		ParticlesPerEvent: 6,
		EnergyMean:        100,
		EnergyStdDev:      25,
		EnergyMin:         1,
		EnergyMax:         500,
		Species:           map[string]float64{"gamma": 0.5, "electron": 0.3, "neutron": 0.2},
	}
}

func TestParticleGun_GenerateEvent_ProducesConfiguredPrimaries(t *testing.T) {
	// GIVEN a gun with 6 particles per event
	prng := NewPartitionedRNG(NewRunKey(1))
	factory := &TrackFactory{}
	g := NewParticleGun(testGunConfig(), prng, factory)

	// WHEN generating an event
	ev, tracks := g.GenerateEvent(3)

	// THEN the event holds one vertex with 6 primaries and matching tracks
	if ev.Number != 3 {
		t.Errorf("event number: got %d, want 3", ev.Number)
	}
	if ev.PrimaryCount() != 6 {
		t.Errorf("primary count: got %d, want 6", ev.PrimaryCount())
	}
	if len(tracks) != 6 {
		t.Fatalf("tracks: got %d, want 6", len(tracks))
	}
	for i, tr := range tracks {
		if tr.ParentID() != 0 {
			t.Errorf("track %d parent id: got %d, want 0 (primary)", i, tr.ParentID())
		}
		if tr.GlobalTime() != 0 {
			t.Errorf("track %d global time: got %v, want 0", i, tr.GlobalTime())
		}
		if e := tr.KineticEnergy(); e < 1 || e > 500 {
			t.Errorf("track %d energy %v outside [1,500]", i, e)
		}
	}
}

func TestParticleGun_SameSeed_SameEventStream(t *testing.T) {
	// GIVEN two guns built from the same seed and config
	g1 := NewParticleGun(testGunConfig(), NewPartitionedRNG(NewRunKey(99)), &TrackFactory{})
	g2 := NewParticleGun(testGunConfig(), NewPartitionedRNG(NewRunKey(99)), &TrackFactory{})

	// WHEN generating the same event number
	_, t1 := g1.GenerateEvent(0)
	_, t2 := g2.GenerateEvent(0)

	// THEN the primary tracks match pairwise
	if len(t1) != len(t2) {
		t.Fatalf("track counts differ: %d vs %d", len(t1), len(t2))
	}
	for i := range t1 {
		if t1[i].Category() != t2[i].Category() || t1[i].KineticEnergy() != t2[i].KineticEnergy() {
			t.Errorf("primary %d differs: (%s, %v) vs (%s, %v)",
				i, t1[i].Category(), t1[i].KineticEnergy(), t2[i].Category(), t2[i].KineticEnergy())
		}
	}
}

func TestParticleGun_ZeroStdDev_UsesMeanEnergy(t *testing.T) {
	// GIVEN a degenerate energy distribution
	cfg := testGunConfig()
	cfg.EnergyStdDev = 0
	g := NewParticleGun(cfg, NewPartitionedRNG(NewRunKey(1)), &TrackFactory{})

	// WHEN generating
	_, tracks := g.GenerateEvent(0)

	// THEN every primary carries the mean energy
	for i, tr := range tracks {
		if tr.KineticEnergy() != cfg.EnergyMean {
			t.Errorf("track %d energy: got %v, want %v", i, tr.KineticEnergy(), cfg.EnergyMean)
		}
	}
}

func TestParticleGun_EmptySpecies_DefaultsToOther(t *testing.T) {
	// GIVEN no species configured
	cfg := testGunConfig()
	cfg.Species = nil
	g := NewParticleGun(cfg, NewPartitionedRNG(NewRunKey(1)), &TrackFactory{})

	// WHEN generating
	_, tracks := g.GenerateEvent(0)

	// THEN all primaries are the "other" category
	for i, tr := range tracks {
		if tr.Category() != stacking.CategoryOther {
			t.Errorf("track %d category: got %s, want other", i, tr.Category())
		}
	}
}

func TestTrackFactory_SerialsAreUniqueAndPositive(t *testing.T) {
	f := &TrackFactory{}
	seen := map[int]bool{}
	for i := 0; i < 10; i++ {
		tr := f.New(stacking.CategoryGamma, 0, 1, 0)
		if tr.Serial() <= 0 {
			t.Errorf("serial %d not positive", tr.Serial())
		}
		if seen[tr.Serial()] {
			t.Errorf("serial %d repeated", tr.Serial())
		}
		seen[tr.Serial()] = true
	}
}

func TestSecondarySampler_ChildrenReferenceParentSerial(t *testing.T) {
	// GIVEN a high-energy parent
	prng := NewPartitionedRNG(NewRunKey(5))
	factory := &TrackFactory{}
	s := NewSecondarySampler(prng, factory)
	parent := factory.New(stacking.CategoryOther, 0, 1000, 0)

	// WHEN sampling until at least one secondary appears
	var secondaries []*SimTrack
	for i := 0; i < 50 && len(secondaries) == 0; i++ {
		secondaries = s.Secondaries(parent)
	}
	if len(secondaries) == 0 {
		t.Fatal("sampler produced no secondaries in 50 attempts")
	}

	// THEN each child carries the parent's serial as a positive parent id
	// with strictly lower energy and later global time
	for i, sec := range secondaries {
		if sec.ParentID() != parent.Serial() {
			t.Errorf("secondary %d parent id: got %d, want %d", i, sec.ParentID(), parent.Serial())
		}
		if sec.KineticEnergy() >= parent.KineticEnergy() {
			t.Errorf("secondary %d energy %v not below parent %v", i, sec.KineticEnergy(), parent.KineticEnergy())
		}
		if sec.GlobalTime() < parent.GlobalTime() {
			t.Errorf("secondary %d time %v before parent %v", i, sec.GlobalTime(), parent.GlobalTime())
		}
	}
}

func TestSecondarySampler_EnergyFloor_StopsCascade(t *testing.T) {
	// GIVEN a parent at the energy floor
	prng := NewPartitionedRNG(NewRunKey(5))
	factory := &TrackFactory{}
	s := NewSecondarySampler(prng, factory)
	parent := factory.New(stacking.CategoryOther, 0, s.EnergyFloor, 0)

	// THEN it yields nothing
	if secs := s.Secondaries(parent); len(secs) != 0 {
		t.Errorf("secondaries at floor: got %d, want 0", len(secs))
	}
}

func TestSimTrack_DestroyCount_Increments(t *testing.T) {
	f := &TrackFactory{}
	tr := f.New(stacking.CategoryGamma, 0, 1, 0)
	if tr.DestroyCount() != 0 {
		t.Errorf("fresh track destroy count: got %d, want 0", tr.DestroyCount())
	}
	tr.Destroy()
	if tr.DestroyCount() != 1 {
		t.Errorf("destroy count: got %d, want 1", tr.DestroyCount())
	}
}
