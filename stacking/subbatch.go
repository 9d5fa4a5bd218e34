// subbatch.go
//
// Defines the SubBatchCoordinator, which groups tracks of one registered type
// into bounded batches released as independent units of parallel work.

package stacking

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReleasedBatch is a full (or flushed non-empty) group of track records handed
// off for independent processing. From release onward its records are owned
// exclusively by the receiving worker; the originating coordinator keeps no
// reference.
type ReleasedBatch struct {
	ID      string
	Type    int
	EventID string
	Records []*TrackRecord
}

// SubBatchCoordinator fills bounded batches for one registered sub-batch
// type. A batch is released exactly when it reaches capacity or when a
// non-empty batch is flushed at event boundary; empty batches are discarded
// rather than released.
type SubBatchCoordinator struct {
	batchType int
	capacity  int
	current   []*TrackRecord
	event     *Event // owning event; nil until PrepareNewEvent
	released  int    // batches released so far, for diagnostics
}

// NewSubBatchCoordinator creates a coordinator for one sub-batch type.
// Capacity bounds the records per released batch and must be positive.
func NewSubBatchCoordinator(batchType, capacity int) *SubBatchCoordinator {
	if capacity <= 0 {
		panic("NewSubBatchCoordinator: capacity must be positive")
	}
	return &SubBatchCoordinator{
		batchType: batchType,
		capacity:  capacity,
		current:   make([]*TrackRecord, 0, capacity),
	}
}

// Type returns the registered sub-batch type id.
func (sc *SubBatchCoordinator) Type() int {
	return sc.batchType
}

// Capacity returns the per-batch record bound.
func (sc *SubBatchCoordinator) Capacity() int {
	return sc.capacity
}

// Push appends a record to the batch being filled, releasing the batch to the
// event when it reaches capacity and starting a fresh one for later pushes.
func (sc *SubBatchCoordinator) Push(rec *TrackRecord) {
	if rec == nil {
		panic("SubBatchCoordinator.Push: rec must not be nil")
	}
	sc.current = append(sc.current, rec)
	if len(sc.current) >= sc.capacity {
		sc.release()
	}
}

// Flush releases the in-progress batch if it holds any records; an empty
// batch is discarded so no zero-track work unit is spawned. Called at event
// boundary.
func (sc *SubBatchCoordinator) Flush() {
	if len(sc.current) > 0 {
		sc.release()
	}
}

// PrepareNewEvent flushes any leftover batch from the previous event and
// binds the coordinator to the new event.
func (sc *SubBatchCoordinator) PrepareNewEvent(ev *Event) {
	sc.Flush()
	sc.event = ev
}

// Pending returns the number of records in the batch currently being filled.
func (sc *SubBatchCoordinator) Pending() int {
	return len(sc.current)
}

// Released returns the number of batches released so far.
func (sc *SubBatchCoordinator) Released() int {
	return sc.released
}

// clearAndDestroy destroys any records in the in-progress batch. Used by
// event abort; already-released batches are owned elsewhere and untouched.
func (sc *SubBatchCoordinator) clearAndDestroy() {
	for _, rec := range sc.current {
		rec.destroy()
	}
	sc.current = sc.current[:0]
}

func (sc *SubBatchCoordinator) release() {
	batch := &ReleasedBatch{
		ID:      uuid.NewString(),
		Type:    sc.batchType,
		Records: sc.current,
	}
	if sc.event != nil {
		batch.EventID = sc.event.ID
		sc.event.AddSubBatch(batch)
	} else {
		// No event bound: the records would leak if silently dropped, so the
		// batch is still surfaced to the log. Callers are expected to call
		// PrepareNewEvent before routing tracks to sub-batches.
		logrus.Warnf("sub-batch type %d released %d records with no event bound", sc.batchType, len(sc.current))
	}
	sc.released++
	logrus.Debugf("released sub-batch %s (type %d, %d records)", batch.ID, batch.Type, len(batch.Records))
	sc.current = make([]*TrackRecord, 0, sc.capacity)
}
