package vm

// ---------------------------------------------------------------------------
// Deterministic RNG (splitmix64)
// ---------------------------------------------------------------------------
//
// The machine carries a tiny deterministic generator so that NOISE produces
// bit-identical output across runs with the same seed. splitmix64 is enough:
// the only consumer is scatter placement, and statistical quality matters
// far less than reproducibility.

// splitmixSeed derives the initial RNG state from a 6-bit NOISE seed operand.
func splitmixSeed(seed uint64) uint64 {
	return seed*0x9E3779B97F4A7C15 + 0x2545F4914F6CDD1D
}

// splitmixNext advances the state and returns the next 64-bit value.
func splitmixNext(state *uint64) uint64 {
	*state += 0x9E3779B97F4A7C15
	z := *state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// splitmixFloat returns the next value as a float64 in [0, 1).
func splitmixFloat(state *uint64) float64 {
	return float64(splitmixNext(state)>>11) / (1 << 53)
}
