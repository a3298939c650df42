package evo

import (
	"fmt"
	"math/rand/v2"
)

// RNG is the single random source of a run. Its state can be captured and
// restored so that a resumed run continues the exact same random stream.
type RNG struct {
	*rand.Rand
	src  *rand.PCG
	seed uint64
}

// NewRNG returns a PCG-backed generator seeded deterministically from seed.
func NewRNG(seed uint64) *RNG {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &RNG{Rand: rand.New(src), src: src, seed: seed}
}

// Seed returns the seed the generator was created with.
func (r *RNG) Seed() uint64 { return r.seed }

// State serialises the current generator position.
func (r *RNG) State() ([]byte, error) {
	b, err := r.src.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal rng state: %w", err)
	}
	return b, nil
}

// Restore rewinds the generator to a position captured by State.
func (r *RNG) Restore(state []byte) error {
	if err := r.src.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("restore rng state: %w", err)
	}
	return nil
}

// Chance reports whether a uniform draw falls below p.
func (r *RNG) Chance(p float64) bool {
	return r.Float64() < p
}
