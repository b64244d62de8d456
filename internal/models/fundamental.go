package models

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Fundamental is the epipolar constraint p'^T F p = 0 between
// correspondences (x, y) <-> (x', y'). F is row-major with unit
// Frobenius norm.
type Fundamental struct{}

// Generate runs the seven-point algorithm. The two-dimensional null space
// F1, F2 of the constraint matrix spans the candidates a*F1 + (1-a)*F2; the
// rank-2 condition det = 0 is a cubic in a. Of its real roots the smallest
// is used.
func (Fundamental) Generate(model, s []float64) {
	a := mat.NewDense(9, 9, nil)
	for i := 0; i < 7; i++ {
		x, y, u, v := s[4*i], s[4*i+1], s[4*i+2], s[4*i+3]
		a.SetRow(i, []float64{u * x, u * y, u, v * x, v * y, v, x, y, 1})
	}

	null, ok := nullSpace(a, 2)
	if !ok {
		fillNaN(model)
		return
	}
	f1, f2 := null[0], null[1]

	det := func(alpha float64) float64 {
		m := make([]float64, 9)
		for i := range m {
			m[i] = alpha*f1[i] + (1-alpha)*f2[i]
		}
		return mat.Det(mat.NewDense(3, 3, m))
	}

	// Interpolate the cubic from four samples.
	p0, p1, pm1, p2 := det(0), det(1), det(-1), det(2)
	c0 := p0
	c2 := (p1+pm1)/2 - c0
	odd := (p1 - pm1) / 2
	c3 := (p2 - 4*c2 - c0 - 2*odd) / 6
	c1 := odd - c3

	roots := realRoots(c3, c2, c1, c0)
	if len(roots) == 0 {
		fillNaN(model)
		return
	}
	alpha := roots[0]

	var norm float64
	for i := range model {
		model[i] = alpha*f1[i] + (1-alpha)*f2[i]
		norm += model[i] * model[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		fillNaN(model)
		return
	}
	for i := range model {
		model[i] /= norm
	}
}

// Evaluate returns the algebraic epipolar error |p'^T F p|.
func (Fundamental) Evaluate(f, p []float64) float64 {
	x, y, u, v := p[0], p[1], p[2], p[3]
	l0 := f[0]*x + f[1]*y + f[2]
	l1 := f[3]*x + f[4]*y + f[5]
	l2 := f[6]*x + f[7]*y + f[8]
	return math.Abs(u*l0 + v*l1 + l2)
}

func (Fundamental) Accept(f []float64) bool {
	return finite(f)
}

// polyEpsilon is the magnitude below which a leading coefficient counts as zero.
const polyEpsilon = 1e-12

// realRoots returns the real roots of c3*x^3 + c2*x^2 + c1*x + c0 in
// ascending order.
func realRoots(c3, c2, c1, c0 float64) []float64 {
	scale := math.Max(math.Max(math.Abs(c3), math.Abs(c2)), math.Max(math.Abs(c1), math.Abs(c0)))
	if scale == 0 {
		return nil
	}
	c3, c2, c1, c0 = c3/scale, c2/scale, c1/scale, c0/scale

	switch {
	case math.Abs(c3) > polyEpsilon:
		// Eigenvalues of the companion matrix of the monic cubic.
		comp := mat.NewDense(3, 3, []float64{
			-c2 / c3, -c1 / c3, -c0 / c3,
			1, 0, 0,
			0, 1, 0,
		})
		var eig mat.Eigen
		if !eig.Factorize(comp, mat.EigenNone) {
			return nil
		}
		var roots []float64
		for _, z := range eig.Values(nil) {
			if math.Abs(imag(z)) <= 1e-9*(1+math.Abs(real(z))) {
				roots = append(roots, real(z))
			}
		}
		slices.Sort(roots)
		return roots
	case math.Abs(c2) > polyEpsilon:
		disc := c1*c1 - 4*c2*c0
		if disc < 0 {
			return nil
		}
		sq := math.Sqrt(disc)
		roots := []float64{(-c1 - sq) / (2 * c2), (-c1 + sq) / (2 * c2)}
		slices.Sort(roots)
		return roots
	case math.Abs(c1) > polyEpsilon:
		return []float64{-c0 / c1}
	}
	return nil
}
