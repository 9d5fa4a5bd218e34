// Implements the TrackStack, the LIFO primitive behind the urgent, waiting
// and postpone roles. Records are pushed and popped at the same end.

package stacking

import (
	"fmt"
	"strings"
)

// TrackStack is a LIFO stack of track records. One instance backs each of the
// coordinator's roles: urgent, each waiting tier, and postpone.
type TrackStack struct {
	records []*TrackRecord // LIFO: push and pop at the tail
	maxLen  int            // historical maximum depth
}

// NewTrackStack creates an empty stack, optionally pre-reserving capacity.
func NewTrackStack(capacity int) *TrackStack {
	if capacity < 0 {
		capacity = 0
	}
	return &TrackStack{records: make([]*TrackRecord, 0, capacity)}
}

// Push appends a record at the LIFO end.
func (ts *TrackStack) Push(rec *TrackRecord) {
	if rec == nil {
		panic("TrackStack.Push: rec must not be nil")
	}
	ts.records = append(ts.records, rec)
	if len(ts.records) > ts.maxLen {
		ts.maxLen = len(ts.records)
	}
}

// Pop removes and returns the most recently pushed record.
// Returns nil if the stack is empty — callers on the hot path check Len()
// first rather than relying on the nil return.
func (ts *TrackStack) Pop() *TrackRecord {
	n := len(ts.records)
	if n == 0 {
		return nil
	}
	rec := ts.records[n-1]
	ts.records[n-1] = nil // drop the reference so ownership moves cleanly
	ts.records = ts.records[:n-1]
	return rec
}

// Len returns the number of records on the stack.
func (ts *TrackStack) Len() int {
	return len(ts.records)
}

// MaxLen returns the historical maximum depth of the stack.
func (ts *TrackStack) MaxLen() int {
	return ts.maxLen
}

// TransferAllTo moves every record from this stack into dst, preserving dst's
// own ordering contract, and empties this stack. Records transfer in pop
// order (most recent first).
func (ts *TrackStack) TransferAllTo(dst recordSink) {
	if dst == nil {
		panic("TrackStack.TransferAllTo: dst must not be nil")
	}
	for ts.Len() > 0 {
		dst.Push(ts.Pop())
	}
}

// ClearAndDestroy destroys every contained track and trajectory and empties
// the stack. Used only when the caller asserts sole ownership of everything
// on the stack (event abort, teardown).
func (ts *TrackStack) ClearAndDestroy() {
	for ts.Len() > 0 {
		ts.Pop().destroy()
	}
}

// TotalEnergy sums the kinetic energy of every contained track. Diagnostic
// only — routing never depends on it.
func (ts *TrackStack) TotalEnergy() float64 {
	var total float64
	for _, rec := range ts.records {
		total += rec.Track.KineticEnergy()
	}
	return total
}

func (ts *TrackStack) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, rec := range ts.records {
		sb.WriteString(fmt.Sprint(rec))
		if i < len(ts.records)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// recordSink is the push side shared by TrackStack and PartitionedStack,
// letting transfers target either container kind.
type recordSink interface {
	Push(rec *TrackRecord)
}

// urgentStore is the full contract the coordinator needs from its urgent
// container. TrackStack and PartitionedStack both satisfy it.
type urgentStore interface {
	recordSink
	Pop() *TrackRecord
	Len() int
	MaxLen() int
	TotalEnergy() float64
	ClearAndDestroy()
}
