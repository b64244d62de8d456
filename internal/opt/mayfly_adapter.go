package opt

import (
	"log/slog"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter runs the mayfly algorithm behind the Optimizer interface.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly returns a seeded mayfly optimizer. popSize must be at least 20.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run minimizes eval over the box. mayfly only takes scalar bounds, so the
// swarm searches the unit cube and every position is mapped into
// [lower[i], upper[i]] before evaluation.
func (m *MayflyAdapter) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	scratch := make([]float64, dim)
	scaled := func(u []float64) float64 {
		toBox(scratch, u, lower, upper)
		return eval(scratch)
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = scaled
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		slog.Warn("Mayfly optimization failed", "error", err)
		center := make([]float64, dim)
		for i := range center {
			center[i] = 0.5
		}
		best := make([]float64, dim)
		toBox(best, center, lower, upper)
		return best, eval(best)
	}

	best := make([]float64, dim)
	toBox(best, result.GlobalBest.Position, lower, upper)
	return best, result.GlobalBest.Cost
}

// toBox maps u from the unit cube into the box, clamping stray positions.
func toBox(dst, u, lower, upper []float64) {
	for i := range dst {
		t := min(max(u[i], 0), 1)
		dst[i] = lower[i] + t*(upper[i]-lower[i])
	}
}
