// Deterministic per-subsystem RNG partitioning for reproducible runs.

package gun

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// RunKey uniquely identifies a reproducible run. Two runs with the same
// RunKey and identical configuration MUST produce bit-for-bit identical
// event streams.
type RunKey int64

// NewRunKey creates a RunKey from a seed value.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

const (
	// SubsystemPrimaries is the RNG subsystem for primary generation.
	// Uses the master seed directly so --seed alone pins the primaries.
	SubsystemPrimaries = "primaries"

	// SubsystemTransport is the RNG subsystem for the synthetic transport
	// stand-in that produces secondaries.
	SubsystemTransport = "transport"
)

// SubsystemWorker returns the subsystem name for worker N, for per-worker
// RNG isolation.
func SubsystemWorker(id int) string {
	return fmt.Sprintf("worker_%d", id)
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemPrimaries: uses the master seed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	key        RunKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same subsystem name always returns the same *rand.Rand
// instance (cached). Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemPrimaries {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the RunKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
