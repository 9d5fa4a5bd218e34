// Implements the PartitionedStack, a drop-in replacement for TrackStack in
// the urgent role. Records are grouped by particle category at push time and
// served round-robin, which keeps shower secondaries of one species together
// and improves locality during electromagnetic-heavy events.

package stacking

// Sub-stack slots. Primaries and anything outside the four tracked species
// land in slotOther.
const (
	slotOther = iota
	slotNeutron
	slotElectron
	slotGamma
	slotPositron
	numSlots
)

// PartitionedStack groups records into five category sub-stacks and pops them
// round-robin so no category starves. Aggregate semantics match TrackStack.
type PartitionedStack struct {
	slots  [numSlots]*TrackStack
	cursor int // next slot to consider on Pop
	maxLen int // historical maximum aggregate depth
}

// NewPartitionedStack creates an empty partitioned stack.
func NewPartitionedStack() *PartitionedStack {
	ps := &PartitionedStack{}
	for i := range ps.slots {
		ps.slots[i] = NewTrackStack(0)
	}
	return ps
}

// slotFor selects the sub-stack for a record. Primaries (parent id 0) stay in
// the "other" slot regardless of species, matching the reference partitioning.
func slotFor(rec *TrackRecord) int {
	if rec.Track.ParentID() == 0 {
		return slotOther
	}
	switch rec.Track.Category() {
	case CategoryNeutron:
		return slotNeutron
	case CategoryElectron:
		return slotElectron
	case CategoryGamma:
		return slotGamma
	case CategoryPositron:
		return slotPositron
	default:
		return slotOther
	}
}

// Push routes the record to its category sub-stack.
func (ps *PartitionedStack) Push(rec *TrackRecord) {
	if rec == nil {
		panic("PartitionedStack.Push: rec must not be nil")
	}
	ps.slots[slotFor(rec)].Push(rec)
	if n := ps.Len(); n > ps.maxLen {
		ps.maxLen = n
	}
}

// Pop scans the sub-stacks cyclically starting at the remembered cursor and
// pops from the first non-empty one, then advances the cursor past it so each
// non-empty category is visited before any is revisited.
// Returns nil if every sub-stack is empty.
func (ps *PartitionedStack) Pop() *TrackRecord {
	for i := 0; i < numSlots; i++ {
		slot := (ps.cursor + i) % numSlots
		if ps.slots[slot].Len() > 0 {
			ps.cursor = (slot + 1) % numSlots
			return ps.slots[slot].Pop()
		}
	}
	return nil
}

// Len returns the aggregate number of records across all sub-stacks.
func (ps *PartitionedStack) Len() int {
	var n int
	for _, s := range ps.slots {
		n += s.Len()
	}
	return n
}

// MaxLen returns the historical maximum aggregate depth.
func (ps *PartitionedStack) MaxLen() int {
	return ps.maxLen
}

// TransferAllTo drains every sub-stack in fixed slot order (other, neutron,
// electron, gamma, positron) into dst and empties this stack.
func (ps *PartitionedStack) TransferAllTo(dst recordSink) {
	if dst == nil {
		panic("PartitionedStack.TransferAllTo: dst must not be nil")
	}
	for _, s := range ps.slots {
		s.TransferAllTo(dst)
	}
	ps.cursor = 0
}

// ClearAndDestroy destroys every record in every sub-stack.
func (ps *PartitionedStack) ClearAndDestroy() {
	for _, s := range ps.slots {
		s.ClearAndDestroy()
	}
	ps.cursor = 0
}

// TotalEnergy sums kinetic energy across all sub-stacks. Diagnostic only.
func (ps *PartitionedStack) TotalEnergy() float64 {
	var total float64
	for _, s := range ps.slots {
		total += s.TotalEnergy()
	}
	return total
}
