// Defines the Track and Trajectory handles the stacking engine moves between
// containers. The engine never interprets physics beyond category, parent id,
// kinetic energy and global time.

package stacking

// ParticleCategory is the coarse species bucket used for routing decisions.
// PartitionedStack keys its sub-stacks on it; classification policies and the
// default-classification override table match on it.
type ParticleCategory string

const (
	CategoryOther    ParticleCategory = "other"
	CategoryNeutron  ParticleCategory = "neutron"
	CategoryElectron ParticleCategory = "electron"
	CategoryGamma    ParticleCategory = "gamma"
	CategoryPositron ParticleCategory = "positron"
)

// TrackStatus represents the transport-level state a track arrives with.
// The override table can route on it before the policy is consulted.
type TrackStatus string

const (
	StatusAlive     TrackStatus = "alive"
	StatusSuspended TrackStatus = "suspended"
	StatusPostpone  TrackStatus = "postpone"
	StatusKill      TrackStatus = "kill"
)

// Track is the opaque handle for one simulation track. The stacking engine
// owns exactly one reference to a live track at any time and only ever reads
// the fields below or destroys the track.
//
// ParentID semantics: 0 = primary, positive = secondary produced in this
// event, negative = carried over from a previous event via the postpone stack.
type Track interface {
	ID() string
	Category() ParticleCategory
	Status() TrackStatus
	// ParentID / SetParentID: the coordinator negates the parent id when a
	// postponed track is re-injected into the next event.
	ParentID() int
	SetParentID(id int)
	KineticEnergy() float64
	GlobalTime() float64
	// Destroy releases the track. Called at most once, by whichever container
	// (or kill fast-path) holds sole ownership.
	Destroy()
}

// Trajectory is the optional visualization record paired with a track.
// The engine moves or destroys it alongside its track, never inspects it.
type Trajectory interface {
	Destroy()
}
