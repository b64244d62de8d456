package models

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxScale bounds the singular values of a reasonable affine map
// to [1/DefaultMaxScale, DefaultMaxScale].
const DefaultMaxScale = 10.0

// Affine maps (x, y) to (x', y') with
//
//	x' = m[0]*x + m[1]*y + m[2]
//	y' = m[3]*x + m[4]*y + m[5]
//
// When MaxScale is positive, Accept also rejects maps that flip orientation
// or stretch by more than MaxScale in any direction.
type Affine struct {
	MaxScale float64
}

// Generate solves the map from three correspondences. Collinear samples
// produce a NaN model, which Accept rejects.
func (Affine) Generate(model, s []float64) {
	a := mat.NewDense(3, 3, nil)
	b := mat.NewDense(3, 2, nil)
	for i := 0; i < 3; i++ {
		p := s[4*i : 4*i+4]
		a.SetRow(i, []float64{p[0], p[1], 1})
		b.SetRow(i, []float64{p[2], p[3]})
	}

	var x mat.Dense
	if err := x.Solve(a, b); err != nil {
		fillNaN(model)
		return
	}
	for i := 0; i < 3; i++ {
		model[i] = x.At(i, 0)
		model[3+i] = x.At(i, 1)
	}
}

// Evaluate returns the distance between the mapped point and its match.
func (Affine) Evaluate(model, p []float64) float64 {
	dx := model[0]*p[0] + model[1]*p[1] + model[2] - p[2]
	dy := model[3]*p[0] + model[4]*p[1] + model[5] - p[3]
	return math.Hypot(dx, dy)
}

func (a Affine) Accept(model []float64) bool {
	if !finite(model) {
		return false
	}
	if a.MaxScale <= 0 {
		return true
	}
	return reasonable(model, a.MaxScale)
}

// reasonable checks the linear part of an affine map for orientation and
// bounded distortion.
func reasonable(model []float64, maxScale float64) bool {
	lin := mat.NewDense(2, 2, []float64{
		model[0], model[1],
		model[3], model[4],
	})
	if mat.Det(lin) <= 0 {
		return false
	}

	var svd mat.SVD
	if !svd.Factorize(lin, mat.SVDNone) {
		return false
	}
	sv := svd.Values(nil)
	return sv[0] <= maxScale && sv[1] >= 1/maxScale
}
