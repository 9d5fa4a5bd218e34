// Package gun generates synthetic primaries and secondaries for the stacking
// engine: a particle gun for per-event primary vertices and a transport
// stand-in that produces secondaries from each tracked particle. It also
// provides the concrete SimTrack/SimTrajectory handles the engine moves
// around.
package gun

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/stacksim/stacksim/stacking"
)

// SimTrack is the concrete track handle produced by the gun. Destroy calls
// are counted so ownership-uniqueness tests can assert a track is destroyed
// exactly once.
type SimTrack struct {
	serial   int
	category stacking.ParticleCategory
	status   stacking.TrackStatus
	parentID int
	energy   float64
	time     float64

	destroyed int
}

func (t *SimTrack) ID() string                          { return fmt.Sprintf("trk-%d", t.serial) }
func (t *SimTrack) Serial() int                         { return t.serial }
func (t *SimTrack) Category() stacking.ParticleCategory { return t.category }
func (t *SimTrack) Status() stacking.TrackStatus        { return t.status }
func (t *SimTrack) ParentID() int                       { return t.parentID }
func (t *SimTrack) SetParentID(id int)                  { t.parentID = id }
func (t *SimTrack) KineticEnergy() float64              { return t.energy }
func (t *SimTrack) GlobalTime() float64                 { return t.time }
func (t *SimTrack) Destroy()                            { t.destroyed++ }

// DestroyCount returns how many times Destroy fired. Always 0 or 1 in a
// correct run.
func (t *SimTrack) DestroyCount() int { return t.destroyed }

// SimTrajectory is the concrete trajectory handle, destroy-counted like
// SimTrack.
type SimTrajectory struct {
	destroyed int
}

func (tr *SimTrajectory) Destroy() { tr.destroyed++ }

// DestroyCount returns how many times Destroy fired.
func (tr *SimTrajectory) DestroyCount() int { return tr.destroyed }

// TrackFactory hands out serially-numbered tracks so parent ids stay positive
// and unique within a run. Shared between the gun and the secondary sampler.
type TrackFactory struct {
	next int
}

// New creates a track with the next serial number.
func (f *TrackFactory) New(cat stacking.ParticleCategory, parentID int, energy, time float64) *SimTrack {
	f.next++
	return &SimTrack{
		serial:   f.next,
		category: cat,
		status:   stacking.StatusAlive,
		parentID: parentID,
		energy:   energy,
		time:     time,
	}
}

// speciesCDF is one entry of the cumulative species distribution.
type speciesCDF struct {
	category stacking.ParticleCategory
	cum      float64
}

// ParticleGun generates one primary vertex per event with a configured number
// of particles, energies drawn from a truncated normal, and species drawn
// from configured fractions. Fully deterministic given the run seed.
type ParticleGun struct {
	cfg     stacking.GunConfig
	rng     *rand.Rand
	normal  distuv.Normal
	species []speciesCDF
	factory *TrackFactory
}

// NewParticleGun creates a gun from config, drawing randomness from the
// primaries subsystem of prng. A nil or empty species map defaults to
// all-"other" primaries.
func NewParticleGun(cfg stacking.GunConfig, prng *PartitionedRNG, factory *TrackFactory) *ParticleGun {
	rng := prng.ForSubsystem(SubsystemPrimaries)
	g := &ParticleGun{
		cfg:     cfg,
		rng:     rng,
		normal:  distuv.Normal{Mu: cfg.EnergyMean, Sigma: cfg.EnergyStdDev, Src: rng},
		factory: factory,
	}

	// Map iteration order is randomized; sort the species names so the
	// cumulative distribution (and hence the event stream) is reproducible.
	names := make([]string, 0, len(cfg.Species))
	for name := range cfg.Species {
		names = append(names, name)
	}
	sort.Strings(names)
	var cum float64
	for _, name := range names {
		if cfg.Species[name] <= 0 {
			continue
		}
		cum += cfg.Species[name]
		g.species = append(g.species, speciesCDF{category: stacking.ParticleCategory(name), cum: cum})
	}
	return g
}

// GenerateEvent builds event number n with one origin vertex and the
// configured number of primaries, returning the event and the primary tracks
// to be pushed (parent id 0, global time 0).
func (g *ParticleGun) GenerateEvent(number int) (*stacking.Event, []*SimTrack) {
	ev := stacking.NewEvent(number)
	vertex := stacking.PrimaryVertex{}
	tracks := make([]*SimTrack, 0, g.cfg.ParticlesPerEvent)
	for i := 0; i < g.cfg.ParticlesPerEvent; i++ {
		cat := g.sampleSpecies()
		energy := g.sampleEnergy()
		dx, dy, dz := g.sampleDirection()
		vertex.AddParticle(stacking.PrimaryParticle{
			Category:      cat,
			KineticEnergy: energy,
			DirX:          dx,
			DirY:          dy,
			DirZ:          dz,
		})
		tracks = append(tracks, g.factory.New(cat, 0, energy, 0))
	}
	ev.AddVertex(vertex)
	return ev, tracks
}

func (g *ParticleGun) sampleSpecies() stacking.ParticleCategory {
	if len(g.species) == 0 {
		return stacking.CategoryOther
	}
	u := g.rng.Float64() * g.species[len(g.species)-1].cum
	for _, s := range g.species {
		if u < s.cum {
			return s.category
		}
	}
	return g.species[len(g.species)-1].category
}

// sampleEnergy draws from the configured normal, truncated to
// [EnergyMin, EnergyMax] by rejection with a clamp fallback.
func (g *ParticleGun) sampleEnergy() float64 {
	if g.cfg.EnergyStdDev <= 0 {
		return g.cfg.EnergyMean
	}
	for i := 0; i < 16; i++ {
		e := g.normal.Rand()
		if e >= g.cfg.EnergyMin && e <= g.cfg.EnergyMax {
			return e
		}
	}
	e := g.cfg.EnergyMean
	if e < g.cfg.EnergyMin {
		e = g.cfg.EnergyMin
	}
	if e > g.cfg.EnergyMax {
		e = g.cfg.EnergyMax
	}
	return e
}

// sampleDirection returns an isotropic-ish unit vector. Informational only.
func (g *ParticleGun) sampleDirection() (x, y, z float64) {
	x = g.rng.NormFloat64()
	y = g.rng.NormFloat64()
	z = g.rng.NormFloat64()
	norm := math.Sqrt(x*x + y*y + z*z)
	if norm == 0 {
		return 0, 0, 1
	}
	return x / norm, y / norm, z / norm
}

// SecondarySampler is the synthetic transport stand-in: every tracked
// particle yields a random number of lower-energy secondaries until energies
// fall below the floor. Drives the event loop without any real physics.
type SecondarySampler struct {
	rng     *rand.Rand
	factory *TrackFactory

	// MaxSecondaries bounds the yield per tracked particle.
	MaxSecondaries int
	// EnergyFraction is the upper bound on each secondary's share of the
	// parent's kinetic energy.
	EnergyFraction float64
	// EnergyFloor stops the cascade: parents at or below it yield nothing.
	EnergyFloor float64
}

// NewSecondarySampler creates a sampler drawing from the transport subsystem
// of prng.
func NewSecondarySampler(prng *PartitionedRNG, factory *TrackFactory) *SecondarySampler {
	return &SecondarySampler{
		rng:            prng.ForSubsystem(SubsystemTransport),
		factory:        factory,
		MaxSecondaries: 3,
		EnergyFraction: 0.5,
		EnergyFloor:    1.0,
	}
}

// secondarySpecies is the fixed species mix for generated secondaries,
// weighted toward electromagnetic shower products.
var secondarySpecies = []speciesCDF{
	{category: stacking.CategoryGamma, cum: 0.40},
	{category: stacking.CategoryElectron, cum: 0.70},
	{category: stacking.CategoryPositron, cum: 0.85},
	{category: stacking.CategoryNeutron, cum: 0.95},
	{category: stacking.CategoryOther, cum: 1.00},
}

// Secondaries returns the tracks produced while tracking parent. The
// parent's serial becomes each child's (positive) parent id.
func (s *SecondarySampler) Secondaries(parent *SimTrack) []*SimTrack {
	if parent.KineticEnergy() <= s.EnergyFloor {
		return nil
	}
	n := s.rng.Intn(s.MaxSecondaries + 1)
	out := make([]*SimTrack, 0, n)
	for i := 0; i < n; i++ {
		u := s.rng.Float64()
		cat := stacking.CategoryOther
		for _, sp := range secondarySpecies {
			if u < sp.cum {
				cat = sp.category
				break
			}
		}
		energy := parent.KineticEnergy() * s.EnergyFraction * s.rng.Float64()
		time := parent.GlobalTime() + s.rng.Float64()
		out = append(out, s.factory.New(cat, parent.Serial(), energy, time))
	}
	return out
}
