package simulation

import "math/rand/v2"

// RandSource draws a uniformly distributed index in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

// SourceFactory hands each worker its own independent RandSource.
type SourceFactory func(worker int) RandSource

// SystemSources seeds every worker from the runtime's random generator.
// Runs are statistically similar but not repeatable.
func SystemSources() SourceFactory {
	return func(int) RandSource {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
}

// SeededSources derives one PCG stream per worker from seed, so a run with
// the same seed and worker count is repeatable.
func SeededSources(seed uint64) SourceFactory {
	return func(worker int) RandSource {
		return rand.New(rand.NewPCG(seed, uint64(worker)+1))
	}
}
