package fit

import (
	"math"

	"github.com/cwbudde/ransacfit/internal/ransac"
)

// TruncatedCost is the mean over all points of min(error, maxError).
// Outliers all cost maxError, so lowering it means tightening the fit of
// the inliers or winning new ones. Invalid errors count as outliers.
func TruncatedCost(ds ransac.Dataset, model []float64, maxError float64, ev ransac.Evaluator) float64 {
	n := ds.Len()
	if n == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < n; i++ {
		e := ev.Evaluate(model, ds.Point(i))
		if math.IsNaN(e) || e < 0 || e > maxError {
			e = maxError
		}
		sum += e
	}
	return sum / float64(n)
}
