// Defines the Event container: identity, primary vertices, and the
// collection point for sub-batches released during the event.

package stacking

import (
	"fmt"

	"github.com/google/uuid"
)

// PrimaryParticle is one generated particle attached to a primary vertex.
type PrimaryParticle struct {
	Category      ParticleCategory
	KineticEnergy float64
	// Momentum direction (unit vector); informational, the stacking engine
	// never reads it.
	DirX, DirY, DirZ float64
}

// PrimaryVertex is a generation point in space and time with its owned
// particles. Vertices and particles live in growable slices owned by the
// Event.
type PrimaryVertex struct {
	X, Y, Z   float64
	Time      float64
	Particles []PrimaryParticle
}

// AddParticle appends a particle to the vertex.
func (v *PrimaryVertex) AddParticle(p PrimaryParticle) {
	v.Particles = append(v.Particles, p)
}

// Event is the per-event container. The coordinator touches it only to
// register released sub-batches and to name the event in diagnostics.
type Event struct {
	ID     string // unique id for diagnostics and sub-batch correlation
	Number int    // sequential event number within the run

	Vertices []PrimaryVertex

	subBatches []*ReleasedBatch
}

// NewEvent creates an event with a fresh unique id.
func NewEvent(number int) *Event {
	return &Event{
		ID:     uuid.NewString(),
		Number: number,
	}
}

// AddVertex appends a primary vertex to the event.
func (ev *Event) AddVertex(v PrimaryVertex) {
	ev.Vertices = append(ev.Vertices, v)
}

// PrimaryCount returns the total number of primary particles across vertices.
func (ev *Event) PrimaryCount() int {
	var n int
	for _, v := range ev.Vertices {
		n += len(v.Particles)
	}
	return n
}

// AddSubBatch registers a released sub-batch with the event. After this call
// the batch's records are owned by whoever drains the event.
func (ev *Event) AddSubBatch(b *ReleasedBatch) {
	ev.subBatches = append(ev.subBatches, b)
}

// DrainSubBatches hands over every released sub-batch and empties the event's
// collection. Ownership of the contained records moves to the caller.
func (ev *Event) DrainSubBatches() []*ReleasedBatch {
	out := ev.subBatches
	ev.subBatches = nil
	return out
}

// SubBatchCount returns the number of released sub-batches awaiting dispatch.
func (ev *Event) SubBatchCount() int {
	return len(ev.subBatches)
}

func (ev *Event) String() string {
	return fmt.Sprintf("Event: (Number: %d, ID: %s, Primaries: %d)", ev.Number, ev.ID, ev.PrimaryCount())
}
