package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/ransacfit/internal/ransac"
)

// Spec describes a model family: its data layout and capabilities.
type Spec struct {
	Name        string
	Description string
	DataDim     int // Fields per data point
	ModelDim    int // Parameters per model
	NFit        int // Points needed to generate a model
	Model       ransac.Model
}

// Config builds an engine configuration for this family.
func (s Spec) Config(trials, minInliers int, maxError float64) ransac.Config {
	return ransac.Config{
		ModelDim:   s.ModelDim,
		NFit:       s.NFit,
		Trials:     trials,
		MinInliers: minInliers,
		MaxError:   maxError,
	}
}

var registry = map[string]Spec{
	"line": {
		Name:        "line",
		Description: "straight line a*x + b*y + c = 0 through 2-D points (x y)",
		DataDim:     2,
		ModelDim:    3,
		NFit:        2,
		Model:       Line{},
	},
	"aff": {
		Name:        "aff",
		Description: "affine map between correspondences (x y x' y')",
		DataDim:     4,
		ModelDim:    6,
		NFit:        3,
		Model:       Affine{},
	},
	"affn": {
		Name:        "affn",
		Description: "affine map restricted to reasonable, orientation preserving distortions",
		DataDim:     4,
		ModelDim:    6,
		NFit:        3,
		Model:       Affine{MaxScale: DefaultMaxScale},
	},
	"hom": {
		Name:        "hom",
		Description: "planar homography between correspondences (x y x' y')",
		DataDim:     4,
		ModelDim:    9,
		NFit:        4,
		Model:       Homography{},
	},
	"fm": {
		Name:        "fm",
		Description: "fundamental matrix from correspondences (x y x' y'), seven-point algorithm",
		DataDim:     4,
		ModelDim:    9,
		NFit:        7,
		Model:       Fundamental{},
	},
}

// UnknownModelError is returned by Lookup for unregistered names.
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unrecognized model %q", e.Name)
}

// Lookup returns the model family registered under name.
func Lookup(name string) (Spec, error) {
	s, ok := registry[name]
	if !ok {
		return Spec{}, &UnknownModelError{Name: name}
	}
	return s, nil
}

// Names returns the registered model names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func fillNaN(v []float64) {
	for i := range v {
		v[i] = math.NaN()
	}
}
