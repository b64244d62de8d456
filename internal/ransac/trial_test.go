package ransac

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// absDiff scores 1-D points by their distance to the single model parameter.
var absDiff = Funcs{
	EvaluateFunc: func(model, point []float64) float64 {
		return math.Abs(point[0] - model[0])
	},
	GenerateFunc: func(model, sample []float64) {
		model[0] = sample[0]
	},
}

func TestScoreMaskMatchesCount(t *testing.T) {
	ds := NewDataset([]float64{0, 0.5, 1, 1.5, 2, 10, -3}, 1)

	mask, n, err := Score(ds, []float64{1}, 1.2, absDiff)
	require.NoError(t, err)

	expected := []bool{true, true, true, true, true, false, false}
	assert.Equal(t, expected, mask)

	var trues int
	for _, in := range mask {
		if in {
			trues++
		}
	}
	assert.Equal(t, trues, n)
	assert.Equal(t, 5, n)
}

func TestScoreThresholdIsStrict(t *testing.T) {
	ds := NewDataset([]float64{0, 1, 2}, 1)

	mask, n, err := Score(ds, []float64{0}, 1, absDiff)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false}, mask)
	assert.Equal(t, 1, n)
}

func TestScoreRejectsInvalidErrors(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"negative", -0.5},
		{"nan", math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Funcs{EvaluateFunc: func(model, point []float64) float64 {
				if point[0] == 2 {
					return tt.value
				}
				return 0
			}}
			ds := NewDataset([]float64{0, 1, 2, 3}, 1)

			_, _, err := Score(ds, []float64{0}, 1, ev)
			require.ErrorIs(t, err, ErrNegativeError)

			var ee *EvaluationError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, 2, ee.Index)
		})
	}
}

func TestScoreRejectsInvalidMaxError(t *testing.T) {
	ds := NewDataset([]float64{0, 1, 2}, 1)

	for _, maxError := range []float64{0, -1, math.NaN()} {
		mask, n, err := Score(ds, []float64{0}, maxError, absDiff)

		var ce *ConfigError
		require.ErrorAs(t, err, &ce, "maxError %v", maxError)
		assert.Equal(t, "MaxError", ce.Field)
		assert.Nil(t, mask)
		assert.Zero(t, n)
	}
}

func TestScoreInfiniteErrorIsOutlier(t *testing.T) {
	ev := Funcs{EvaluateFunc: func(model, point []float64) float64 {
		return math.Inf(1)
	}}
	mask, n, err := Score(NewDataset([]float64{1, 2}, 1), nil, 1, ev)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false}, mask)
	assert.Zero(t, n)
}

func TestDatasetPoint(t *testing.T) {
	ds := NewDataset([]float64{1, 2, 3, 4, 5, 6}, 2)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []float64{3, 4}, ds.Point(1))

	assert.Zero(t, Dataset{}.Len())
}
