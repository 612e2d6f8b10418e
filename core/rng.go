package core

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand/v2"
	"sync"
)

// RNG wraps a seeded math/rand/v2 generator behind a mutex so both a
// domain's run-queue selection and the dispatcher's target-domain
// selection can share one runtime-seeded source (§9: "Implementations
// must draw from a runtime-seeded PRNG both for run-queue selection and
// for dispatcher domain selection"). This mirrors the pattern in
// asmsh-promise's internal/uniquerand package: wrap the stdlib generator
// in one small dedicated type instead of scattering rand calls.
type RNG struct {
	mu  sync.Mutex
	src *mrand.Rand
}

// NewRNG builds an RNG. A seed of 0 requests a fresh, unpredictable seed
// drawn from crypto/rand, matching the "no priority oracle" intent behind
// randomized scheduling: nobody should be able to predict tie-breaking
// order across runs unless they deliberately pinned a seed for
// reproducible tests.
func NewRNG(seed uint64) *RNG {
	if seed == 0 {
		seed = randomSeed()
	}
	return &RNG{src: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func randomSeed() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is exceptionally rare; fall back to a fixed
		// seed rather than leaving the generator uninitialized.
		return 0x2545F4914F6CDD1D
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// IntN returns a random integer in [0, n). Panics if n <= 0, matching
// math/rand/v2 semantics; callers must check for an empty collection
// before calling.
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}
