// Package randutil centralises how deterministic random sources are built.
// Deck shuffles and bot fallback decisions all draw from a *rand.Rand created
// here, so an entire game replays from a single seed.
package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided int64.
// A seed of 0 derives one from the wall clock instead.
func New(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	u := uint64(seed)
	return rand.New(rand.NewPCG(splitmix(u), splitmix(u+goldenRatio64)))
}

// splitmix is the SplitMix64 finalizer, used to spread weak seeds across the
// two 64-bit words rand/v2's PCG wants.
func splitmix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
