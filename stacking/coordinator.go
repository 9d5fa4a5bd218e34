// coordinator.go
//
// Implements the StackCoordinator, the state machine at the heart of the
// event loop: it owns the urgent, waiting and postpone stacks, routes every
// new track through the classification policy, promotes waiting tiers when
// urgent drains, and carries postponed tracks into the next event.

package stacking

import (
	"github.com/sirupsen/logrus"
)

// PushOutcome tells the caller of PushOneTrack what happened to the track so
// it can update its own counters.
type PushOutcome int

const (
	// PushedToStack: the record landed on urgent, a waiting tier, or postpone.
	PushedToStack PushOutcome = iota
	// KilledOnPush: the track and trajectory were destroyed immediately.
	KilledOnPush
	// RoutedToSubBatch: the record was handed to a sub-batch coordinator.
	RoutedToSubBatch
)

// MaxAdditionalWaitingTiers bounds SetAdditionalWaitingTierCount.
const MaxAdditionalWaitingTiers = 10

// defaultOverride is one entry of the default-classification table.
type defaultOverride struct {
	classification Classification
	severity       Severity
}

// CoordinatorCounters aggregates per-run statistics maintained by the
// coordinator. Diagnostic only; routing never reads them.
type CoordinatorCounters struct {
	Pushed       int     // tracks accepted by PushOneTrack (any outcome)
	Popped       int     // tracks returned by PopNextTrack
	Killed       int     // tracks destroyed on the kill fast-path
	Postponed    int     // tracks routed to the postpone stack
	SubBatched   int     // tracks routed to sub-batch coordinators
	Stages       int     // waiting-tier promotions across the run
	Reinjected   int     // postponed tracks carried into a later event
	Aborted      int     // tracks destroyed by AbortEvent
	KilledEnergy float64 // summed kinetic energy of killed tracks
}

// StackCoordinator owns one urgent container, waiting tier stacks, one
// postpone stack and the registered sub-batch coordinators. One instance
// belongs to exactly one worker; nothing here locks.
type StackCoordinator struct {
	urgent   urgentStore
	waiting  []*TrackStack // tier 0 plus configured additional tiers
	postpone *TrackStack

	subBatchers map[int]*SubBatchCoordinator

	byStatus   map[TrackStatus]defaultOverride
	byCategory map[ParticleCategory]defaultOverride

	policy StackingPolicy
	event  *Event // current event; nil between events

	// started latches on the first PrepareNewEvent or PushOneTrack; tier and
	// sub-batch configuration is frozen from then on.
	started bool

	counters CoordinatorCounters
}

// NewStackCoordinator creates a coordinator for one worker. A nil policy
// falls back to UrgentAllPolicy. partitionedUrgent selects PartitionedStack
// for the urgent role instead of a plain TrackStack.
func NewStackCoordinator(policy StackingPolicy, partitionedUrgent bool) *StackCoordinator {
	if policy == nil {
		policy = &UrgentAllPolicy{}
	}
	var urgent urgentStore
	if partitionedUrgent {
		urgent = NewPartitionedStack()
	} else {
		urgent = NewTrackStack(0)
	}
	return &StackCoordinator{
		urgent:      urgent,
		waiting:     []*TrackStack{NewTrackStack(0)},
		postpone:    NewTrackStack(0),
		subBatchers: make(map[int]*SubBatchCoordinator),
		byStatus:    make(map[TrackStatus]defaultOverride),
		byCategory:  make(map[ParticleCategory]defaultOverride),
		policy:      policy,
	}
}

// SetAdditionalWaitingTierCount fixes the number of waiting tiers beyond tier
// 0 for the lifetime of the run. n must be in [0, MaxAdditionalWaitingTiers]
// and the call must precede any event processing.
func (co *StackCoordinator) SetAdditionalWaitingTierCount(n int) error {
	if co.started {
		return configErrorf("SetAdditionalWaitingTierCount", "called after event processing began")
	}
	if n < 0 || n > MaxAdditionalWaitingTiers {
		return configErrorf("SetAdditionalWaitingTierCount", "tier count %d out of range [0,%d]", n, MaxAdditionalWaitingTiers)
	}
	co.waiting = make([]*TrackStack, n+1)
	for i := range co.waiting {
		co.waiting[i] = NewTrackStack(0)
	}
	return nil
}

// RegisterSubBatchType registers a sub-batch type with its per-batch record
// capacity. Must precede the first PushOneTrack of the run.
func (co *StackCoordinator) RegisterSubBatchType(batchType, capacity int) error {
	if co.started {
		return configErrorf("RegisterSubBatchType", "type %d registered after event processing began", batchType)
	}
	if capacity <= 0 {
		return configErrorf("RegisterSubBatchType", "type %d capacity %d must be positive", batchType, capacity)
	}
	if _, dup := co.subBatchers[batchType]; dup {
		return configErrorf("RegisterSubBatchType", "type %d already registered", batchType)
	}
	co.subBatchers[batchType] = NewSubBatchCoordinator(batchType, capacity)
	return nil
}

// SetDefaultClassificationByStatus routes every track arriving with status st
// per cls without consulting the policy. Status entries take precedence over
// category entries. severity controls the PolicyInconsistency diagnostic: at
// SeverityWarn or SeverityFatal the policy is still probed and a disagreeing
// answer is reported (warn logs, fatal panics).
func (co *StackCoordinator) SetDefaultClassificationByStatus(st TrackStatus, cls Classification, severity Severity) {
	co.byStatus[st] = defaultOverride{classification: cls, severity: severity}
}

// SetDefaultClassificationByCategory is the particle-category analogue of
// SetDefaultClassificationByStatus.
func (co *StackCoordinator) SetDefaultClassificationByCategory(cat ParticleCategory, cls Classification, severity Severity) {
	co.byCategory[cat] = defaultOverride{classification: cls, severity: severity}
}

// PrepareNewEvent binds the coordinator to ev, fires the policy's per-event
// callback, primes the sub-batch coordinators, and re-injects every postponed
// track from the previous event into urgent with its parent id negated (the
// carried-over sentinel). Returns the number of re-injected tracks.
//
// Re-injection happens before the caller pushes the new event's primaries, so
// under LIFO the fresh primaries pop first and carried-over tracks run at the
// tail of the event.
func (co *StackCoordinator) PrepareNewEvent(ev *Event) int {
	co.started = true
	co.event = ev
	co.policy.OnPrepareNewEvent()

	// Urgent and waiting should have drained with the previous event; clear
	// defensively so a leftover record cannot leak into this event.
	if n := co.urgent.Len() + co.waitingLen(); n > 0 {
		logrus.Warnf("PrepareNewEvent: destroying %d leftover tracks from previous event", n)
		co.urgent.ClearAndDestroy()
		for _, tier := range co.waiting {
			tier.ClearAndDestroy()
		}
	}

	for _, sc := range co.subBatchers {
		sc.PrepareNewEvent(ev)
	}

	reinjected := 0
	for co.postpone.Len() > 0 {
		rec := co.postpone.Pop()
		if pid := rec.Track.ParentID(); pid >= 0 {
			// pid+1 keeps postponed primaries (parent id 0) strictly negative.
			rec.Track.SetParentID(-(pid + 1))
		}
		co.urgent.Push(rec)
		reinjected++
	}
	co.counters.Reinjected += reinjected
	if ev != nil {
		logrus.Debugf("PrepareNewEvent: event %d, %d postponed tracks re-injected", ev.Number, reinjected)
	}
	return reinjected
}

// PushOneTrack classifies a new track and routes it. The override table is
// consulted first (status entry, then category entry); only when no entry
// matches is the policy asked. Killed tracks are destroyed immediately — the
// designed fast-path for discarding uninteresting particles before any
// tracking or geometry work.
//
// A *ConfigurationError is returned for a waiting tier beyond the configured
// count or an unregistered sub-batch type; the track is not stored in that
// case and ownership stays with the caller.
func (co *StackCoordinator) PushOneTrack(tr Track, traj Trajectory) (PushOutcome, error) {
	co.started = true
	rec := NewTrackRecord(tr, traj)
	cls := co.classify(tr)
	outcome, err := co.route(rec, cls, "PushOneTrack")
	if err == nil {
		co.counters.Pushed++
	}
	return outcome, err
}

// PopNextTrack returns the next track to process, or nil when urgent and
// every waiting tier are empty — the event-complete signal. Postpone and
// sub-batch contents are deliberately not drained here.
//
// When urgent is empty the first non-empty waiting tier (ascending order) is
// promoted wholesale into urgent and the policy's OnNewStage fires exactly
// once per actual promotion, after the records have landed.
func (co *StackCoordinator) PopNextTrack() *TrackRecord {
	for {
		if co.urgent.Len() > 0 {
			co.counters.Popped++
			return co.urgent.Pop()
		}
		promoted := false
		for i, tier := range co.waiting {
			if tier.Len() > 0 {
				tier.TransferAllTo(co.urgent)
				co.counters.Stages++
				logrus.Debugf("stage %d: promoted waiting tier %d (%d tracks now urgent)",
					co.counters.Stages, i, co.urgent.Len())
				co.policy.OnNewStage()
				promoted = true
				break
			}
		}
		if !promoted {
			return nil
		}
		// OnNewStage may have reclassified the promoted records anywhere,
		// including back to later waiting tiers, so re-check from the top.
	}
}

// Reclassify drains the urgent container and re-routes every record through
// the identical path PushOneTrack uses (override table included). Policies
// call this from OnNewStage to change their mind about tracks already
// promoted to urgent.
func (co *StackCoordinator) Reclassify() error {
	n := co.urgent.Len()
	if n == 0 {
		return nil
	}
	inFlight := make([]*TrackRecord, 0, n)
	for co.urgent.Len() > 0 {
		inFlight = append(inFlight, co.urgent.Pop())
	}
	for _, rec := range inFlight {
		cls := co.classify(rec.Track)
		if _, err := co.route(rec, cls, "Reclassify"); err != nil {
			return err
		}
	}
	return nil
}

// TransferStackedTracks bulk-moves every record from the stack named by from
// into the stack named by to. A Killed destination destroys every moved
// record; a Killed or empty source is a no-op. Sub-batch selectors are not
// addressable stacks and yield a *ConfigurationError.
func (co *StackCoordinator) TransferStackedTracks(from, to Classification) error {
	src, dst, err := co.transferEndpoints(from, to, "TransferStackedTracks")
	if err != nil || src == nil {
		return err
	}
	if to.Kind == KindKill {
		for src.Len() > 0 {
			rec := src.Pop()
			co.counters.Killed++
			co.counters.KilledEnergy += rec.Track.KineticEnergy()
			rec.destroy()
		}
		return nil
	}
	for src.Len() > 0 {
		dst.Push(src.Pop())
	}
	return nil
}

// TransferOneStackedTrack moves at most one record (the most recently pushed
// in the source) from from to to, with the same semantics as
// TransferStackedTracks. Used for fine-grained control from policy callbacks.
func (co *StackCoordinator) TransferOneStackedTrack(from, to Classification) error {
	src, dst, err := co.transferEndpoints(from, to, "TransferOneStackedTrack")
	if err != nil || src == nil || src.Len() == 0 {
		return err
	}
	rec := src.Pop()
	if to.Kind == KindKill {
		co.counters.Killed++
		co.counters.KilledEnergy += rec.Track.KineticEnergy()
		rec.destroy()
		return nil
	}
	dst.Push(rec)
	return nil
}

// FlushSubBatches releases every non-empty in-progress sub-batch to the
// current event. Called at event boundary, after PopNextTrack returns nil and
// before the event's released batches are drained for dispatch.
func (co *StackCoordinator) FlushSubBatches() {
	for _, sc := range co.subBatchers {
		sc.Flush()
	}
}

// AbortEvent destroys every record in urgent, every waiting tier, the
// postpone stack and the in-progress sub-batch fills. Irreversible.
// Sub-batches already released belong to their receivers and are untouched.
func (co *StackCoordinator) AbortEvent() {
	n := co.TotalStackedTracks()
	co.urgent.ClearAndDestroy()
	for _, tier := range co.waiting {
		tier.ClearAndDestroy()
	}
	co.postpone.ClearAndDestroy()
	for _, sc := range co.subBatchers {
		n += sc.Pending()
		sc.clearAndDestroy()
	}
	co.counters.Aborted += n
	if co.event != nil {
		logrus.Warnf("AbortEvent: event %d aborted, %d stacked tracks destroyed", co.event.Number, n)
	} else {
		logrus.Warnf("AbortEvent: %d stacked tracks destroyed", n)
	}
}

// UrgentTrackCount returns the number of records in the urgent container.
func (co *StackCoordinator) UrgentTrackCount() int { return co.urgent.Len() }

// WaitingTrackCount returns the number of records across all waiting tiers.
func (co *StackCoordinator) WaitingTrackCount() int { return co.waitingLen() }

// PostponedTrackCount returns the number of records on the postpone stack.
func (co *StackCoordinator) PostponedTrackCount() int { return co.postpone.Len() }

// TotalStackedTracks returns the number of records across urgent, waiting and
// postpone. Records inside sub-batch coordinators are not included.
func (co *StackCoordinator) TotalStackedTracks() int {
	return co.urgent.Len() + co.waitingLen() + co.postpone.Len()
}

// PeakUrgentDepth returns the historical maximum depth of the urgent container.
func (co *StackCoordinator) PeakUrgentDepth() int { return co.urgent.MaxLen() }

// UrgentEnergy returns the summed kinetic energy currently stacked urgent.
// Diagnostic only.
func (co *StackCoordinator) UrgentEnergy() float64 { return co.urgent.TotalEnergy() }

// Counters returns a copy of the coordinator's per-run counters.
func (co *StackCoordinator) Counters() CoordinatorCounters { return co.counters }

// CurrentEvent returns the event bound by the last PrepareNewEvent, or nil.
func (co *StackCoordinator) CurrentEvent() *Event { return co.event }

func (co *StackCoordinator) waitingLen() int {
	var n int
	for _, tier := range co.waiting {
		n += tier.Len()
	}
	return n
}

// classify applies the override table, probing the policy for the
// inconsistency diagnostic when the matching entry asks for it, and falls
// back to the policy when no entry matches.
func (co *StackCoordinator) classify(tr Track) Classification {
	ov, matched := co.byStatus[tr.Status()]
	if !matched {
		ov, matched = co.byCategory[tr.Category()]
	}
	if !matched {
		return co.policy.Classify(tr)
	}
	if ov.severity == SeverityWarn || ov.severity == SeverityFatal {
		if probe := co.policy.Classify(tr); probe != ov.classification {
			co.reportInconsistency(tr, ov.classification, probe, ov.severity)
		}
	}
	return ov.classification
}

func (co *StackCoordinator) reportInconsistency(tr Track, override, probe Classification, severity Severity) {
	msg := "policy inconsistency: track " + tr.ID() + " default classification " +
		override.String() + " overrides policy decision " + probe.String()
	if severity == SeverityFatal {
		panic(msg)
	}
	logrus.Warn(msg)
}

// route places one in-flight record per its classification. On error the
// record is not stored and ownership returns to the caller.
func (co *StackCoordinator) route(rec *TrackRecord, cls Classification, op string) (PushOutcome, error) {
	switch cls.Kind {
	case KindUrgent:
		co.urgent.Push(rec)
		return PushedToStack, nil
	case KindWaiting:
		if cls.Tier < 0 || cls.Tier >= len(co.waiting) {
			return PushedToStack, configErrorf(op, "waiting tier %d not configured (have %d tiers)", cls.Tier, len(co.waiting))
		}
		co.waiting[cls.Tier].Push(rec)
		return PushedToStack, nil
	case KindPostpone:
		co.postpone.Push(rec)
		co.counters.Postponed++
		return PushedToStack, nil
	case KindKill:
		co.counters.Killed++
		co.counters.KilledEnergy += rec.Track.KineticEnergy()
		rec.destroy()
		return KilledOnPush, nil
	case KindSubBatch:
		sc, ok := co.subBatchers[cls.SubBatchType]
		if !ok {
			return PushedToStack, configErrorf(op, "sub-batch type %d not registered", cls.SubBatchType)
		}
		sc.Push(rec)
		co.counters.SubBatched++
		return RoutedToSubBatch, nil
	default:
		return PushedToStack, configErrorf(op, "invalid classification %v", cls)
	}
}

// transferEndpoints resolves the source and destination stacks for the
// transfer operations. A nil source with nil error means no-op (Killed or
// same-stack source).
func (co *StackCoordinator) transferEndpoints(from, to Classification, op string) (src popper, dst recordSink, err error) {
	if from.Kind == KindSubBatch || to.Kind == KindSubBatch {
		return nil, nil, configErrorf(op, "sub-batches are not addressable stacks")
	}
	if from.Kind == KindKill || from == to {
		return nil, nil, nil
	}
	src, err = co.stackFor(from, op)
	if err != nil {
		return nil, nil, err
	}
	if to.Kind == KindKill {
		return src, nil, nil
	}
	d, err := co.stackFor(to, op)
	if err != nil {
		return nil, nil, err
	}
	return src, d, nil
}

// popper is the drain side of a stack used by the transfer operations.
type popper interface {
	Pop() *TrackRecord
	Len() int
}

func (co *StackCoordinator) stackFor(cls Classification, op string) (urgentStore, error) {
	switch cls.Kind {
	case KindUrgent:
		return co.urgent, nil
	case KindWaiting:
		if cls.Tier < 0 || cls.Tier >= len(co.waiting) {
			return nil, configErrorf(op, "waiting tier %d not configured (have %d tiers)", cls.Tier, len(co.waiting))
		}
		return co.waiting[cls.Tier], nil
	case KindPostpone:
		return co.postpone, nil
	default:
		return nil, configErrorf(op, "classification %v does not name a stack", cls)
	}
}
