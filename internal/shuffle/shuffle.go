// Package shuffle provides a deterministic, seed-keyed permutation used to
// give every player their own stable token ordering within a round.
package shuffle

// hashSeed folds a string seed into a non-zero 64-bit state (FNV-1a).
func hashSeed(seed string) uint64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(seed); i++ {
		h ^= uint64(seed[i])
		h *= 1099511628211
	}
	if h == 0 {
		h = 1
	}
	return h
}

// next advances an xorshift64 state.
func next(state uint64) uint64 {
	state ^= state << 13
	state ^= state >> 7
	state ^= state << 17
	return state
}

// Strings returns a new slice holding a Fisher-Yates permutation of items
// keyed by seed. The same seed always produces the same order; ambient
// random state is never consulted.
func Strings(items []string, seed string) []string {
	out := make([]string, len(items))
	copy(out, items)
	state := hashSeed(seed)
	for i := len(out) - 1; i > 0; i-- {
		state = next(state)
		j := int(state % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Indices returns a permutation of [0, n) keyed by seed, for shuffling
// arbitrary slices without copying them here.
func Indices(n int, seed string) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	state := hashSeed(seed)
	for i := n - 1; i > 0; i-- {
		state = next(state)
		j := int(state % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
