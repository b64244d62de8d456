package models

import "math"

// Line fits a*x + b*y + c = 0 with a unit normal (a, b).
type Line struct{}

func (Line) Generate(model, s []float64) {
	x1, y1, x2, y2 := s[0], s[1], s[2], s[3]
	a, b := y1-y2, x2-x1
	norm := math.Hypot(a, b)
	if norm == 0 {
		model[0], model[1], model[2] = 0, 0, 0
		return
	}
	a, b = a/norm, b/norm
	model[0], model[1], model[2] = a, b, -(a*x1 + b*y1)
}

// Evaluate returns the perpendicular distance of p to the line. The normal
// is renormalized so refined, non-unit parameters still measure distance.
func (Line) Evaluate(model, p []float64) float64 {
	norm := math.Hypot(model[0], model[1])
	if norm == 0 {
		return math.Inf(1)
	}
	return math.Abs(model[0]*p[0]+model[1]*p[1]+model[2]) / norm
}

// Accept rejects lines generated from coincident points.
func (Line) Accept(model []float64) bool {
	return finite(model) && math.Hypot(model[0], model[1]) > 0
}
