package ransac

import "math"

// Score evaluates model over every point of ds and returns the inlier mask
// and the number of inliers. A point is an inlier iff its error is strictly
// below maxError, which must be positive. It is usable on its own to score a
// model obtained elsewhere.
func Score(ds Dataset, model []float64, maxError float64, ev Evaluator) ([]bool, int, error) {
	if math.IsNaN(maxError) || maxError <= 0 {
		return nil, 0, &ConfigError{Field: "MaxError", Reason: "must be positive"}
	}
	mask := make([]bool, ds.Len())
	n, err := trial(mask, ds, model, maxError, ev)
	if err != nil {
		return nil, 0, err
	}
	return mask, n, nil
}

// trial is the allocation-free form of Score; mask must have ds.Len() entries.
func trial(mask []bool, ds Dataset, model []float64, maxError float64, ev Evaluator) (int, error) {
	var count int
	for i := range mask {
		e := ev.Evaluate(model, ds.Point(i))
		// Also catches NaN.
		if !(e >= 0) {
			return 0, &EvaluationError{Index: i, Value: e}
		}
		mask[i] = e < maxError
		if mask[i] {
			count++
		}
	}
	return count, nil
}
