// Defines the Classification value routed on by the coordinator, the
// StackingPolicy extension point, and the built-in named policies.

package stacking

import "fmt"

// ClassificationKind discriminates the Classification tagged value.
type ClassificationKind int

const (
	KindUrgent ClassificationKind = iota
	KindWaiting
	KindPostpone
	KindKill
	KindSubBatch
)

// Classification is the destination decision for one track: urgent, a waiting
// tier, the postpone stack, immediate destruction, or a registered sub-batch
// type. It is produced once per track and consumed immediately by the
// coordinator's routing; it is never persisted.
type Classification struct {
	Kind ClassificationKind
	// Tier is the waiting tier index; meaningful only when Kind == KindWaiting.
	Tier int
	// SubBatchType selects the registered sub-batch coordinator; meaningful
	// only when Kind == KindSubBatch.
	SubBatchType int
}

// Urgent routes a track to the urgent container.
func Urgent() Classification { return Classification{Kind: KindUrgent} }

// Waiting routes a track to waiting tier n (0 = first tier).
func Waiting(n int) Classification { return Classification{Kind: KindWaiting, Tier: n} }

// Postponed defers a track to the next event.
func Postponed() Classification { return Classification{Kind: KindPostpone} }

// Killed destroys a track immediately, before any tracking work is spent on it.
func Killed() Classification { return Classification{Kind: KindKill} }

// SubBatch routes a track to the sub-batch coordinator registered for t.
func SubBatch(t int) Classification { return Classification{Kind: KindSubBatch, SubBatchType: t} }

func (c Classification) String() string {
	switch c.Kind {
	case KindUrgent:
		return "urgent"
	case KindWaiting:
		return fmt.Sprintf("waiting(%d)", c.Tier)
	case KindPostpone:
		return "postpone"
	case KindKill:
		return "kill"
	case KindSubBatch:
		return fmt.Sprintf("subbatch(%d)", c.SubBatchType)
	default:
		return fmt.Sprintf("classification(%d)", int(c.Kind))
	}
}

// StackingPolicy decides where each new track goes and observes stage and
// event boundaries. Classify MUST NOT retain the track — only the return
// value is used. One policy instance serves one coordinator.
type StackingPolicy interface {
	// Classify maps a track to its destination. Called once per pushed track
	// (after the override table, if any entry matched it is consulted for the
	// inconsistency diagnostic only).
	Classify(tr Track) Classification
	// OnNewStage fires exactly once per waiting-tier promotion, after the
	// promoted records have landed in urgent. Policies typically call
	// StackCoordinator.Reclassify from here.
	OnNewStage()
	// OnPrepareNewEvent fires once per event, before any track is pushed.
	OnPrepareNewEvent()
}

// UrgentAllPolicy classifies every track Urgent. This is the default policy
// when the user supplies none.
type UrgentAllPolicy struct{}

func (*UrgentAllPolicy) Classify(Track) Classification { return Urgent() }
func (*UrgentAllPolicy) OnNewStage()                   {}
func (*UrgentAllPolicy) OnPrepareNewEvent()            {}

// EnergyCutPolicy kills tracks below a kinetic-energy cutoff before any
// tracking work is spent on them; everything else is urgent.
type EnergyCutPolicy struct {
	Cutoff float64
}

func (p *EnergyCutPolicy) Classify(tr Track) Classification {
	if tr.KineticEnergy() < p.Cutoff {
		return Killed()
	}
	return Urgent()
}
func (*EnergyCutPolicy) OnNewStage()        {}
func (*EnergyCutPolicy) OnPrepareNewEvent() {}

// NeutronPostponePolicy defers secondary neutrons to the next event — the
// classic use of the postpone stack for slow-neutron backgrounds — and sends
// everything else urgent. Primaries are never postponed, or an event could
// produce no work at all.
type NeutronPostponePolicy struct{}

func (*NeutronPostponePolicy) Classify(tr Track) Classification {
	if tr.Category() == CategoryNeutron && tr.ParentID() > 0 {
		return Postponed()
	}
	return Urgent()
}
func (*NeutronPostponePolicy) OnNewStage()        {}
func (*NeutronPostponePolicy) OnPrepareNewEvent() {}

// StagedEMPolicy holds electromagnetic secondaries (gammas and electrons) in
// waiting tier 0 so the hadronic skeleton of the event is tracked first; the
// EM shower is promoted as one stage once urgent drains.
type StagedEMPolicy struct{}

func (*StagedEMPolicy) Classify(tr Track) Classification {
	if tr.ParentID() == 0 {
		return Urgent()
	}
	switch tr.Category() {
	case CategoryGamma, CategoryElectron, CategoryPositron:
		return Waiting(0)
	default:
		return Urgent()
	}
}
func (*StagedEMPolicy) OnNewStage()        {}
func (*StagedEMPolicy) OnPrepareNewEvent() {}

// ValidPolicies is the set of recognized stacking policy names.
// Shared by StackingBundle.Validate and NewPolicy to avoid duplication.
var ValidPolicies = map[string]bool{
	"":                 true,
	"urgent-all":       true,
	"energy-cut":       true,
	"neutron-postpone": true,
	"staged-em":        true,
}

// NewPolicy creates a StackingPolicy by name.
// Valid names: "urgent-all" (default), "energy-cut", "neutron-postpone",
// "staged-em". Empty string defaults to UrgentAllPolicy (for CLI flag default
// compatibility). Panics on unrecognized names.
func NewPolicy(name string, energyCut float64) StackingPolicy {
	if !ValidPolicies[name] {
		panic(fmt.Sprintf("unknown stacking policy %q", name))
	}
	switch name {
	case "", "urgent-all":
		return &UrgentAllPolicy{}
	case "energy-cut":
		return &EnergyCutPolicy{Cutoff: energyCut}
	case "neutron-postpone":
		return &NeutronPostponePolicy{}
	case "staged-em":
		return &StagedEMPolicy{}
	default:
		panic(fmt.Sprintf("unhandled stacking policy %q", name))
	}
}
