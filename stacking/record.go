// Defines the TrackRecord struct, the atomic unit moved between stacks.

package stacking

import "fmt"

// TrackRecord pairs a track with its optional trajectory. Each live record is
// owned by exactly one container (a TrackStack, a PartitionedStack sub-stack,
// a SubBatch, or "in flight" during classification) — it is moved by pointer
// and never duplicated.
type TrackRecord struct {
	Track      Track
	Trajectory Trajectory // may be nil
}

// NewTrackRecord creates a record for a track and its optional trajectory.
func NewTrackRecord(tr Track, traj Trajectory) *TrackRecord {
	if tr == nil {
		panic("NewTrackRecord: track must not be nil")
	}
	return &TrackRecord{Track: tr, Trajectory: traj}
}

// destroy releases the track and its trajectory. Callers assert sole
// ownership; a record is destroyed at most once.
func (rec *TrackRecord) destroy() {
	rec.Track.Destroy()
	if rec.Trajectory != nil {
		rec.Trajectory.Destroy()
	}
}

func (rec *TrackRecord) String() string {
	return fmt.Sprintf("TrackRecord: (ID: %s, Category: %s, ParentID: %d, Energy: %g)",
		rec.Track.ID(), rec.Track.Category(), rec.Track.ParentID(), rec.Track.KineticEnergy())
}
