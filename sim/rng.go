package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical trajectories and statistics.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemPreference is the RNG subsystem for preferred-gain draws.
	SubsystemPreference = "preference"
)

// SubsystemTrial returns the subsystem name for trial N.
// Each trial's adjustment noise comes from its own stream, so a trial's
// trajectory does not depend on how many trials ran before it.
func SubsystemTrial(id int) string {
	return fmt.Sprintf("trial_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName) seeds a PCG source;
// the master seed itself is the PCG stream selector.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := newRandFromSeed(int64(p.key)^fnv1a64(name), uint64(p.key))
	p.subsystems[name] = rng
	return rng
}

// ForTrial is shorthand for ForSubsystem(SubsystemTrial(id)).
func (p *PartitionedRNG) ForTrial(id int) *rand.Rand {
	return p.ForSubsystem(SubsystemTrial(id))
}

// Release drops the cached stream for name. A later ForSubsystem call
// re-derives it from the start of its sequence.
func (p *PartitionedRNG) Release(name string) {
	delete(p.subsystems, name)
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func newRandFromSeed(seed int64, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), stream))
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
