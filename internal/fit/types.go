package fit

import (
	"fmt"

	"github.com/cwbudde/ransacfit/internal/ransac"
)

// RefineOptions controls the post-consensus refinement of the best model.
type RefineOptions struct {
	Enabled bool

	// Passes is the maximum number of refinement passes.
	Passes int

	// Radius is the half-width of the search box around the current model,
	// relative to each parameter's magnitude (parameters smaller than 1 use 1).
	Radius float64

	// Iters and PopSize configure the optimizer run of each pass.
	Iters   int
	PopSize int

	// Convergence stops passes early once the cost stops improving.
	Convergence ConvergenceConfig
}

// DefaultRefineOptions returns refinement settings that work for the
// bundled model families. Refinement is disabled.
func DefaultRefineOptions() RefineOptions {
	return RefineOptions{
		Passes:      5,
		Radius:      0.05,
		Iters:       50,
		PopSize:     20, // mayfly needs at least 20
		Convergence: DefaultConvergenceConfig(),
	}
}

// Options configures a fit.
type Options struct {
	Trials     int
	MinInliers int
	MaxError   float64
	Seed       int64

	// Workers > 1 runs the trials in parallel.
	Workers int

	Refine RefineOptions

	// OnTrial is forwarded to the consensus engine.
	OnTrial func(ransac.TrialEvent)
}

// Validate checks the options that the engine does not check itself.
func (o Options) Validate() error {
	if !o.Refine.Enabled {
		return nil
	}
	if o.Refine.Passes <= 0 {
		return fmt.Errorf("refine passes must be positive, got %d", o.Refine.Passes)
	}
	if o.Refine.Radius <= 0 {
		return fmt.Errorf("refine radius must be positive, got %g", o.Refine.Radius)
	}
	if o.Refine.Iters <= 0 || o.Refine.PopSize <= 0 {
		return fmt.Errorf("refine iters and population must be positive")
	}
	return nil
}

// Result is a consensus result plus the refinement outcome.
type Result struct {
	ransac.Result

	// ModelName is the registered name of the fitted model family.
	ModelName string

	// Cost is the truncated residual cost of Model (0 when no model was found).
	Cost float64

	// Refined is set when a refinement pass replaced the consensus model.
	Refined      bool
	RefinePasses int

	// CostHistory holds the cost before refinement and after each pass.
	// It stays empty when convergence tracking is disabled.
	CostHistory []float64
}
