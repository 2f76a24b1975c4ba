package bytecode

import "math/rand"

// newSeededRand builds a fresh generator for RANDOMIZE. Seeding is
// documented rather than left to whatever math/rand's global source would
// do, so RND sequences are reproducible across runs given the same seed —
// classic BASIC programs rely on RANDOMIZE <n> to replay a scenario.
func newSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
