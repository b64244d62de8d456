package models

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// minHomographyDet is the smallest |det H| accepted for a unit-norm H.
const minHomographyDet = 1e-9

// Homography maps (x, y) to (x', y') through a row-major 3x3 matrix H
// of unit Frobenius norm.
type Homography struct{}

// Generate computes H from four correspondences with the direct linear
// transform: H is the right singular vector of the smallest singular value.
func (Homography) Generate(model, s []float64) {
	// Padded to 9x9 so the null vector is the last column of V.
	a := mat.NewDense(9, 9, nil)
	for i := 0; i < 4; i++ {
		x, y, u, v := s[4*i], s[4*i+1], s[4*i+2], s[4*i+3]
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	null, ok := nullSpace(a, 1)
	if !ok {
		fillNaN(model)
		return
	}
	copy(model, null[0])
	if model[8] < 0 {
		for i := range model {
			model[i] = -model[i]
		}
	}
}

// Evaluate returns the distance between the projected point and its match.
func (Homography) Evaluate(h, p []float64) float64 {
	w := h[6]*p[0] + h[7]*p[1] + h[8]
	if w == 0 {
		return math.Inf(1)
	}
	u := (h[0]*p[0] + h[1]*p[1] + h[2]) / w
	v := (h[3]*p[0] + h[4]*p[1] + h[5]) / w
	return math.Hypot(u-p[2], v-p[3])
}

// Accept rejects non-finite and singular matrices.
func (Homography) Accept(h []float64) bool {
	if !finite(h) {
		return false
	}
	norm := mat.Norm(mat.NewVecDense(9, h), 2)
	if norm == 0 {
		return false
	}
	det := mat.Det(mat.NewDense(3, 3, h))
	return math.Abs(det)/(norm*norm*norm) > minHomographyDet
}

// nullSpace returns the right singular vectors of the k smallest singular
// values of a square matrix, smallest last.
func nullSpace(a *mat.Dense, k int) ([][]float64, bool) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, false
	}
	var v mat.Dense
	svd.VTo(&v)

	_, c := v.Dims()
	out := make([][]float64, k)
	for i := 0; i < k; i++ {
		out[i] = mat.Col(nil, c-k+i, &v)
	}
	return out, true
}
