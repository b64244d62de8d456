package ransac

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineFuncs fits a*x + b*y + c = 0 through two 2-D points.
var lineFuncs = Funcs{
	EvaluateFunc: func(model, p []float64) float64 {
		norm := math.Hypot(model[0], model[1])
		if norm == 0 {
			return math.Inf(1)
		}
		return math.Abs(model[0]*p[0]+model[1]*p[1]+model[2]) / norm
	},
	GenerateFunc: func(model, s []float64) {
		model[0] = s[1] - s[3]
		model[1] = s[2] - s[0]
		model[2] = s[0]*s[3] - s[2]*s[1]
	},
}

// linePoints returns ten points on y = 2x + 1 followed by five outliers.
func linePoints() Dataset {
	var v []float64
	for x := 0.0; x < 10; x++ {
		v = append(v, x, 2*x+1)
	}
	v = append(v,
		3, 20,
		7, -5,
		1, 15,
		8, 30,
		5, -10,
	)
	return NewDataset(v, 2)
}

func lineConfig() Config {
	return Config{
		ModelDim:   3,
		NFit:       2,
		Trials:     50,
		MinInliers: 5,
		MaxError:   0.01,
	}
}

func TestRunFindsLine(t *testing.T) {
	ds := linePoints()
	res, err := Run(ds, lineFuncs, lineConfig(), rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.True(t, res.Found())

	assert.GreaterOrEqual(t, res.Inliers, 10)
	assert.Len(t, res.Model, 3)
	require.Len(t, res.Mask, ds.Len())
	for i := 0; i < 10; i++ {
		assert.True(t, res.Mask[i], "point %d should be an inlier", i)
	}
	assert.Equal(t, 50, res.Trials)
	assert.Equal(t, 50, res.Accepted)
	assert.GreaterOrEqual(t, res.BestTrial, 0)

	// The stored mask is the one produced by the stored model.
	mask, n, err := Score(ds, res.Model, 0.01, lineFuncs)
	require.NoError(t, err)
	assert.Equal(t, res.Inliers, n)
	assert.Equal(t, res.Mask, mask)
}

func TestRunSamplingFailure(t *testing.T) {
	ds := NewDataset([]float64{0, 0, 1, 1, 2, 2}, 2)
	cfg := lineConfig()
	cfg.NFit = 5

	res, err := Run(ds, lineFuncs, cfg, rand.New(rand.NewSource(1)))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrSampling)
}

func TestRunNoInliers(t *testing.T) {
	m := Funcs{
		EvaluateFunc: func(model, p []float64) float64 { return 0.01 },
		GenerateFunc: lineFuncs.GenerateFunc,
	}
	res, err := Run(linePoints(), m, lineConfig(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Zero(t, res.Inliers)
	assert.Nil(t, res.Model)
	assert.Nil(t, res.Mask)
	assert.Equal(t, -1, res.BestTrial)
}

func TestRunAcceptRejectsAll(t *testing.T) {
	m := lineFuncs
	m.AcceptFunc = func(model []float64) bool { return false }

	var scored int
	m.EvaluateFunc = func(model, p []float64) float64 {
		scored++
		return 0
	}

	res, err := Run(linePoints(), m, lineConfig(), rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Zero(t, res.Accepted)
	assert.Equal(t, 50, res.Trials)
	assert.Zero(t, scored, "rejected models must not be scored")
}

func TestRunMinInliersGate(t *testing.T) {
	cfg := lineConfig()
	cfg.MinInliers = 11

	res, err := Run(linePoints(), lineFuncs, cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.False(t, res.Found())
	assert.Nil(t, res.Model)
}

func TestRunZeroMinInliers(t *testing.T) {
	cfg := lineConfig()
	cfg.MinInliers = 0

	res, err := Run(linePoints(), lineFuncs, cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.True(t, res.Found())
}

func TestRunBestSoFarIsMonotonic(t *testing.T) {
	e := New(lineFuncs, lineConfig(), rand.New(rand.NewSource(9)))
	e.Config.MaxError = 2

	var events []TrialEvent
	e.OnTrial = func(ev TrialEvent) { events = append(events, ev) }

	res, err := e.Run(linePoints())
	require.NoError(t, err)
	require.Len(t, events, e.Config.Trials)

	var maxSeen, prev int
	for i, ev := range events {
		assert.Equal(t, i, ev.Trial)
		if ev.Accepted && ev.Inliers > maxSeen {
			maxSeen = ev.Inliers
		}
		assert.GreaterOrEqual(t, ev.Best, prev)
		assert.Equal(t, maxSeen, ev.Best)
		prev = ev.Best
	}
	assert.Equal(t, maxSeen, res.Inliers)
}

func TestRunTiesKeepEarliest(t *testing.T) {
	var generated int
	m := Funcs{
		EvaluateFunc: func(model, p []float64) float64 { return 0 },
		GenerateFunc: func(model, s []float64) {
			model[0] = float64(generated)
			generated++
		},
	}
	cfg := Config{ModelDim: 1, NFit: 1, Trials: 20, MaxError: 1}

	res, err := Run(NewDataset([]float64{1, 2, 3}, 1), m, cfg, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inliers)
	assert.Equal(t, 0, res.BestTrial)
	assert.Equal(t, []float64{0}, res.Model)
}

func TestRunNegativeErrorIsFatal(t *testing.T) {
	m := Funcs{
		EvaluateFunc: func(model, p []float64) float64 { return -1 },
		GenerateFunc: lineFuncs.GenerateFunc,
	}
	_, err := Run(linePoints(), m, lineConfig(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNegativeError)
}

func TestRunValidation(t *testing.T) {
	ds := linePoints()
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name  string
		ds    Dataset
		model Model
		edit  func(*Config)
		field string
	}{
		{"nil_model", ds, nil, func(*Config) {}, "Model"},
		{"zero_dim", Dataset{Values: ds.Values}, lineFuncs, func(*Config) {}, "Dim"},
		{"ragged", NewDataset([]float64{1, 2, 3}, 2), lineFuncs, func(*Config) {}, "Values"},
		{"empty", NewDataset(nil, 2), lineFuncs, func(*Config) {}, "Values"},
		{"model_dim", ds, lineFuncs, func(c *Config) { c.ModelDim = 0 }, "ModelDim"},
		{"nfit", ds, lineFuncs, func(c *Config) { c.NFit = 0 }, "NFit"},
		{"trials", ds, lineFuncs, func(c *Config) { c.Trials = 0 }, "Trials"},
		{"min_inliers", ds, lineFuncs, func(c *Config) { c.MinInliers = -1 }, "MinInliers"},
		{"max_error", ds, lineFuncs, func(c *Config) { c.MaxError = 0 }, "MaxError"},
		{"max_error_nan", ds, lineFuncs, func(c *Config) { c.MaxError = math.NaN() }, "MaxError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := lineConfig()
			tt.edit(&cfg)
			_, err := Run(tt.ds, tt.model, cfg, rng)
			require.ErrorIs(t, err, ErrConfig)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}

	_, err := Run(ds, lineFuncs, lineConfig(), nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestWorkerStepDoesNotAllocate(t *testing.T) {
	ds := linePoints()
	w := newWorker(ds, lineFuncs, lineConfig(), rand.New(rand.NewSource(1)))

	allocs := testing.AllocsPerRun(100, func() {
		if _, err := w.step(0); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs)
}
