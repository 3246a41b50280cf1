package kde

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/weather-calibration/common"
)

func TestNewKDEUnivariate(t *testing.T) {
	t.Parallel()

	_, err := NewKDEUnivariate(nil, 1, DefaultCut, DefaultMinGridSize)
	assert.ErrorIs(t, err, common.ErrorInvalidValue)
	_, err = NewKDEUnivariate([]float64{1, math.Inf(1)}, 1, DefaultCut, DefaultMinGridSize)
	assert.ErrorIs(t, err, common.ErrorInvalidValue)

	kde, err := NewKDEUnivariate([]float64{3, 1, 2}, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, kde.Endog)
	assert.Positive(t, kde.BandWidth())

	lower, upper := kde.Support()
	assert.InDelta(t, 1-DefaultCut*kde.BandWidth(), lower, 1e-12)
	assert.InDelta(t, 3+DefaultCut*kde.BandWidth(), upper, 1e-12)
}

func TestKDESymmetricSample(t *testing.T) {
	t.Parallel()

	kde, err := NewKDEUnivariate([]float64{-2, -1, 0, 1, 2}, 1, DefaultCut, 200)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, kde.CDF(0), 1e-12)
	assert.InDelta(t, 0.0, kde.Quantile(0.5).Value, 1e-9)
	assert.InDelta(t, kde.Density(-1), kde.Density(1), 1e-12)
	assert.Greater(t, kde.Density(0), kde.Density(5))

	prev := math.Inf(-1)
	for _, p := range []float64{0.01, 0.1, 0.3, 0.7, 0.9, 0.99} {
		q := kde.Quantile(p)
		assert.Equal(t, p, q.Quantile)
		assert.Greater(t, q.Value, prev)
		assert.InDelta(t, p, kde.CDF(q.Value), 1e-3)
		prev = q.Value
	}

	lower, upper := kde.Support()
	assert.Equal(t, lower, kde.Quantile(0).Value)
	assert.Equal(t, upper, kde.Quantile(1).Value)
}

func TestConstantSample(t *testing.T) {
	t.Parallel()

	kde, err := NewKDEUnivariate([]float64{4, 4, 4}, 1, DefaultCut, DefaultMinGridSize)
	require.NoError(t, err)
	assert.Positive(t, kde.BandWidth())
	assert.InDelta(t, 4.0, kde.Quantile(0.5).Value, 1e-6)
}
