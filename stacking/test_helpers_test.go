// Shared test doubles for the stacking package tests.

package stacking

import "fmt"

// fakeTrack is an instrumented Track double. destroyed counts Destroy calls
// so ownership tests can assert exactly-once destruction.
type fakeTrack struct {
	id        string
	category  ParticleCategory
	status    TrackStatus
	parentID  int
	energy    float64
	time      float64
	destroyed int
}

func newFakeTrack(id string) *fakeTrack {
	return &fakeTrack{id: id, category: CategoryOther, status: StatusAlive}
}

func (t *fakeTrack) ID() string                 { return t.id }
func (t *fakeTrack) Category() ParticleCategory { return t.category }
func (t *fakeTrack) Status() TrackStatus        { return t.status }
func (t *fakeTrack) ParentID() int              { return t.parentID }
func (t *fakeTrack) SetParentID(id int)         { t.parentID = id }
func (t *fakeTrack) KineticEnergy() float64     { return t.energy }
func (t *fakeTrack) GlobalTime() float64        { return t.time }
func (t *fakeTrack) Destroy()                   { t.destroyed++ }

// fakeTrajectory is an instrumented Trajectory double.
type fakeTrajectory struct {
	destroyed int
}

func (tr *fakeTrajectory) Destroy() { tr.destroyed++ }

// recordingPolicy is a StackingPolicy double with a pluggable classify
// function and callback counters.
type recordingPolicy struct {
	classifyFn     func(tr Track) Classification
	newStageCalls  int
	newEventCalls  int
	onNewStageHook func()
}

func (p *recordingPolicy) Classify(tr Track) Classification {
	if p.classifyFn == nil {
		return Urgent()
	}
	return p.classifyFn(tr)
}

func (p *recordingPolicy) OnNewStage() {
	p.newStageCalls++
	if p.onNewStageHook != nil {
		p.onNewStageHook()
	}
}

func (p *recordingPolicy) OnPrepareNewEvent() {
	p.newEventCalls++
}

// pushFakes pushes n fresh fake tracks onto a stack and returns them.
func pushFakes(ts *TrackStack, n int) []*fakeTrack {
	tracks := make([]*fakeTrack, 0, n)
	for i := 0; i < n; i++ {
		tr := newFakeTrack(fmt.Sprintf("t%d", i))
		ts.Push(NewTrackRecord(tr, nil))
		tracks = append(tracks, tr)
	}
	return tracks
}
