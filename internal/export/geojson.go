package export

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cwbudde/ransacfit/internal/ransac"
)

// FeatureCollection renders a fit as GeoJSON in data coordinates.
//
// 2-D points become Point features; correspondences (x y x' y') become
// two-vertex LineStrings from (x, y) to (x', y'). Every feature carries its
// point "index" and whether it is an "inlier". A fitted line model adds a
// LineString feature spanning the data's bounding box.
func FeatureCollection(ds ransac.Dataset, mask []bool, model string, params []float64) (*geojson.FeatureCollection, error) {
	if ds.Dim != 2 && ds.Dim != 4 {
		return nil, fmt.Errorf("cannot export %d-D points as GeoJSON", ds.Dim)
	}
	if mask != nil && len(mask) != ds.Len() {
		return nil, fmt.Errorf("mask covers %d points, data set has %d", len(mask), ds.Len())
	}

	fc := geojson.NewFeatureCollection()
	extent := orb.MultiPoint{}

	for i := 0; i < ds.Len(); i++ {
		p := ds.Point(i)

		var geom orb.Geometry
		if ds.Dim == 2 {
			pt := orb.Point{p[0], p[1]}
			extent = append(extent, pt)
			geom = pt
		} else {
			from, to := orb.Point{p[0], p[1]}, orb.Point{p[2], p[3]}
			extent = append(extent, from, to)
			geom = orb.LineString{from, to}
		}

		f := geojson.NewFeature(geom)
		f.Properties["index"] = i
		f.Properties["inlier"] = mask != nil && mask[i]
		fc.Append(f)
	}

	if model == "line" && len(params) == 3 && len(extent) > 0 {
		if ls, ok := clipLine(params, extent.Bound()); ok {
			f := geojson.NewFeature(ls)
			f.Properties["model"] = model
			f.Properties["params"] = params
			fc.Append(f)
		}
	}

	return fc, nil
}

// clipLine returns the segment of a*x + b*y + c = 0 across the bound,
// parametrized along the axis the line is closer to.
func clipLine(params []float64, b orb.Bound) (orb.LineString, bool) {
	a, bb, c := params[0], params[1], params[2]
	switch {
	case a == 0 && bb == 0:
		return nil, false
	case math.Abs(bb) >= math.Abs(a):
		y := func(x float64) float64 { return -(a*x + c) / bb }
		return orb.LineString{
			{b.Min[0], y(b.Min[0])},
			{b.Max[0], y(b.Max[0])},
		}, true
	default:
		x := func(y float64) float64 { return -(bb*y + c) / a }
		return orb.LineString{
			{x(b.Min[1]), b.Min[1]},
			{x(b.Max[1]), b.Max[1]},
		}, true
	}
}

// WriteGeoJSON encodes the feature collection of a fit.
func WriteGeoJSON(w io.Writer, ds ransac.Dataset, mask []bool, model string, params []float64) error {
	fc, err := FeatureCollection(ds, mask, model, params)
	if err != nil {
		return err
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}

// WriteGeoJSONFile is WriteGeoJSON into a newly created file.
func WriteGeoJSONFile(path string, ds ransac.Dataset, mask []bool, model string, params []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create GeoJSON file: %w", err)
	}
	if err := WriteGeoJSON(f, ds, mask, model, params); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
