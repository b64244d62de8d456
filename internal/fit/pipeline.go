package fit

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/cwbudde/ransacfit/internal/models"
	"github.com/cwbudde/ransacfit/internal/opt"
	"github.com/cwbudde/ransacfit/internal/ransac"
)

// Fit runs a consensus search for the given model family and, if enabled,
// refines the winning model.
func Fit(ctx context.Context, ds ransac.Dataset, spec models.Spec, opts Options) (*Result, error) {
	if ds.Dim != spec.DataDim {
		return nil, fmt.Errorf("model %s expects %d fields per point, data has %d", spec.Name, spec.DataDim, ds.Dim)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	cfg := spec.Config(opts.Trials, opts.MinInliers, opts.MaxError)
	engine := ransac.New(spec.Model, cfg, rand.New(rand.NewSource(opts.Seed)))
	engine.OnTrial = opts.OnTrial

	slog.Info("Starting consensus search",
		"model", spec.Name,
		"points", ds.Len(),
		"trials", opts.Trials,
		"max_error", opts.MaxError,
		"workers", opts.Workers,
	)

	// One worker seeded with Seed draws the same samples as Run, so both
	// paths agree; the parallel path is also the cancellable one.
	var res *ransac.Result
	var err error
	if opts.Workers <= 1 && ctx.Done() == nil {
		res, err = engine.Run(ds)
	} else {
		res, err = engine.RunParallel(ctx, ds, max(opts.Workers, 1), opts.Seed)
	}
	if err != nil {
		return nil, fmt.Errorf("consensus search failed: %w", err)
	}

	out := &Result{Result: *res, ModelName: spec.Name}
	if !res.Found() {
		slog.Info("No model found", "model", spec.Name, "trials", res.Trials)
		return out, nil
	}

	out.Cost = TruncatedCost(ds, res.Model, opts.MaxError, spec.Model)
	slog.Info("Consensus search complete",
		"model", spec.Name,
		"best_inliers", res.Inliers,
		"best_trial", res.BestTrial,
		"cost", out.Cost,
	)

	if opts.Refine.Enabled {
		if err := refine(ctx, ds, spec, opts, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// refine polishes out.Model in place. A pass searches an offset box around
// the current model; its optimum replaces the model only if it lowers the
// cost, keeps at least as many inliers and passes the acceptance predicate.
func refine(ctx context.Context, ds ransac.Dataset, spec models.Spec, opts Options, out *Result) error {
	ro := opts.Refine
	tracker := NewConvergenceTracker(ro.Convergence)
	tracker.Update(out.Cost)

	m := len(out.Model)
	lower := make([]float64, m)
	upper := make([]float64, m)
	for i := range lower {
		lower[i] = -ro.Radius
		upper[i] = ro.Radius
	}
	candidate := make([]float64, m)

	for pass := 0; pass < ro.Passes; pass++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		base := append([]float64{}, out.Model...)
		eval := func(x []float64) float64 {
			offsetModel(candidate, base, x)
			return TruncatedCost(ds, candidate, opts.MaxError, spec.Model)
		}

		optimizer := opt.NewMayfly(ro.Iters, ro.PopSize, opts.Seed+int64(pass))
		x, cost := optimizer.Run(eval, lower, upper, m)
		out.RefinePasses++

		next := make([]float64, m)
		offsetModel(next, base, x)

		if cost < out.Cost && accepted(spec.Model, next) {
			mask, count, err := ransac.Score(ds, next, opts.MaxError, spec.Model)
			if err != nil {
				return fmt.Errorf("refinement pass %d: %w", pass+1, err)
			}
			if count >= out.Inliers {
				out.Model = next
				out.Mask = mask
				out.Inliers = count
				out.Cost = cost
				out.Refined = true
			}
		}

		converged := tracker.Update(out.Cost)
		slog.Debug("Refinement pass complete",
			"pass", pass+1,
			"cost", out.Cost,
			"best_inliers", out.Inliers,
			"stale_passes", tracker.StaleCount(),
		)
		if converged {
			slog.Info("Refinement converged", "passes", pass+1, "cost", out.Cost)
			break
		}
	}

	slog.Info("Refinement complete",
		"passes", out.RefinePasses,
		"refined", out.Refined,
		"cost", out.Cost,
		"best_cost", tracker.BestCost(),
		"cost_history", tracker.History(),
		"best_inliers", out.Inliers,
	)
	out.CostHistory = tracker.History()
	return nil
}

// offsetModel writes base shifted by x, scaled per parameter.
func offsetModel(dst, base, x []float64) {
	for i := range dst {
		dst[i] = base[i] + x[i]*math.Max(math.Abs(base[i]), 1)
	}
}

func accepted(m ransac.Model, model []float64) bool {
	for _, v := range model {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if a, ok := m.(ransac.Acceptor); ok {
		return a.Accept(model)
	}
	return true
}
