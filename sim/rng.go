package sim

import (
	"fmt"
	"hash/fnv"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical recipe MUST produce
// identical spike trains.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemGenerator returns the subsystem name for event generator idx on cell gid.
func SubsystemGenerator(gid, idx int) string {
	return fmt.Sprintf("generator_%d_%d", gid, idx)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated seeds per subsystem. Each
// stochastic component seeds its own source from DeriveSeed, so drawing from
// one never shifts the stream of another.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: stateless after construction, safe for concurrent use.
type PartitionedRNG struct {
	key SimulationKey
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key}
}

// DeriveSeed returns the seed for the named subsystem. It is a pure function
// of the key and the name.
func (p *PartitionedRNG) DeriveSeed(name string) uint64 {
	return uint64(int64(p.key) ^ fnv1a64(name))
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
