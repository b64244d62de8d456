package ransac

import "slices"

// MaxSampleAttempts bounds how many times the sampler redraws a batch that
// contains a repeated index.
const MaxSampleAttempts = 10

// Rand is the random source used for sampling. *math/rand.Rand satisfies it.
type Rand interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
}

// Sampler draws sets of distinct indices in [0, n).
type Sampler struct {
	rng Rand
	n   int
}

// NewSampler creates a sampler over the index range [0, n).
func NewSampler(rng Rand, n int) *Sampler {
	return &Sampler{rng: rng, n: n}
}

// Sample fills idx with len(idx) pairwise-distinct indices.
// The whole batch is redrawn on collision, at most MaxSampleAttempts times.
// On return idx is sorted.
func (s *Sampler) Sample(idx []int) error {
	if s.n <= 0 || len(idx) == 0 {
		return &SamplingError{N: s.n, NFit: len(idx)}
	}

	for attempt := 1; attempt <= MaxSampleAttempts; attempt++ {
		for i := range idx {
			idx[i] = s.rng.Intn(s.n)
		}
		if distinct(idx) {
			return nil
		}
	}
	return &SamplingError{N: s.n, NFit: len(idx), Attempts: MaxSampleAttempts}
}

// distinct sorts t in place and reports whether all entries differ.
func distinct(t []int) bool {
	slices.Sort(t)
	for i := 1; i < len(t); i++ {
		if t[i-1] == t[i] {
			return false
		}
	}
	return true
}
