package qmap

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/weather-calibration/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

func approx(tol float64) cmp.Option {
	return cmpopts.EquateApprox(0, tol)
}

func randomSeries(r *rand.Rand, n int, mean, std float64) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = mean + std*r.NormFloat64()
	}
	return res
}

// gammaSample returns the n plotting position quantiles of a gamma, a
// deterministic stand-in for a random sample.
func gammaSample(shape, scale float64, n int) []float64 {
	dist := distuv.Gamma{Alpha: shape, Beta: 1 / scale}
	res := make([]float64, n)
	for i := range res {
		res[i] = dist.Quantile((float64(i) + 0.5) / float64(n))
	}
	return res
}

func fitted(t *testing.T, method Method, modelData, obsData []float64) *QuantileMappingCorrector {
	t.Helper()
	c, err := NewQuantileMappingCorrector(method)
	require.NoError(t, err)
	require.NoError(t, c.Fit(modelData, obsData))
	return c
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	tests := map[string]Method{
		"empirical":         MethodEmpirical,
		"quantile":          MethodEmpirical,
		"Parametric_Normal": MethodParametricNormal,
		"linear":            MethodParametricNormal,
		"gamma":             MethodParametricGamma,
		"parametric_gamma":  MethodParametricGamma,
		" kde ":             MethodKernel,
		"kernel":            MethodKernel,
	}
	for name, want := range tests {
		got, err := ParseMethod(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseMethod("spline")
	assert.ErrorIs(t, err, common.ErrorConfiguration)
}

func TestNewQuantileMappingCorrector(t *testing.T) {
	t.Parallel()

	_, err := NewQuantileMappingCorrector(Method("cubic"))
	assert.ErrorIs(t, err, common.ErrorConfiguration)

	c, err := NewQuantileMappingCorrector(MethodEmpirical)
	require.NoError(t, err)
	assert.False(t, c.Fitted())
	assert.Equal(t, MethodEmpirical, c.Method())
}

func TestFitValidation(t *testing.T) {
	t.Parallel()

	c, err := NewQuantileMappingCorrector(MethodEmpirical)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Fit([]float64{1}, []float64{1, 2}), common.ErrorConfiguration)
	assert.ErrorIs(t, c.Fit([]float64{1, 2}, nil), common.ErrorConfiguration)
	assert.ErrorIs(t, c.Fit([]float64{1, math.NaN()}, []float64{1, 2}), common.ErrorConfiguration)
	assert.ErrorIs(t, c.Fit([]float64{1, 2}, []float64{math.Inf(1), 2}), common.ErrorConfiguration)
	assert.False(t, c.Fitted())
}

func TestTransformBeforeFit(t *testing.T) {
	t.Parallel()

	for _, method := range []Method{MethodEmpirical, MethodParametricNormal, MethodParametricGamma, MethodKernel} {
		c, err := NewQuantileMappingCorrector(method)
		require.NoError(t, err)
		_, err = c.Transform([]float64{1, 2})
		assert.ErrorIs(t, err, common.ErrorState, method.String())
	}
}

func TestEmpiricalShift(t *testing.T) {
	t.Parallel()

	c := fitted(t, MethodEmpirical, []float64{1, 2, 3, 4, 5}, []float64{2, 3, 4, 5, 6})

	got, err := c.Transform([]float64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{2, 3, 4, 5, 6}, got, approx(1e-12)); diff != "" {
		t.Errorf("Transform mismatch (-want +got):\n%s", diff)
	}

	got, err = c.Transform([]float64{2.5, 4.25})
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{3.5, 5.25}, got, approx(1e-12)); diff != "" {
		t.Errorf("interpolated Transform mismatch (-want +got):\n%s", diff)
	}
}

func TestEmpiricalClampsToObservationRange(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		modelData := randomSeries(r, 10+r.Intn(50), 20, 5)
		obsData := randomSeries(r, 10+r.Intn(50), 18, 3)

		c := fitted(t, MethodEmpirical, modelData, obsData)

		inputs := append([]float64{-1e9, 1e9, math.Inf(1), math.Inf(-1)}, modelData...)
		got, err := c.Transform(inputs)
		require.NoError(t, err)
		require.Len(t, got, len(inputs))

		lo, hi := floats.Min(obsData), floats.Max(obsData)
		for j, v := range got {
			assert.GreaterOrEqual(t, v, lo, "input %v", inputs[j])
			assert.LessOrEqual(t, v, hi, "input %v", inputs[j])
		}
		assert.Equal(t, lo, got[0])
		assert.Equal(t, hi, got[1])
	}
}

func TestEmpiricalPreservesOrderAndInput(t *testing.T) {
	t.Parallel()

	modelData := []float64{5, 1, 4, 2, 3}
	c := fitted(t, MethodEmpirical, modelData, []float64{10, 30, 20, 50, 40})

	got, err := c.Transform(modelData)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 10, 40, 20, 30}, got)
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, modelData)
}

func TestEmpiricalUnequalLengths(t *testing.T) {
	t.Parallel()

	c := fitted(t, MethodEmpirical, []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, []float64{100, 200})

	got, err := c.Transform([]float64{0, 4.5, 9})
	require.NoError(t, err)
	for _, v := range got {
		assert.GreaterOrEqual(t, v, 100.0)
		assert.LessOrEqual(t, v, 200.0)
	}
	assert.InDelta(t, 150.0, got[1], 1e-9)
}

func TestNaNPassesThrough(t *testing.T) {
	t.Parallel()

	c := fitted(t, MethodEmpirical, []float64{1, 2, 3}, []float64{1, 2, 3})
	got, err := c.Transform([]float64{math.NaN(), 2})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, 2.0, got[1])
}

func TestParametricNormal(t *testing.T) {
	t.Parallel()

	t.Run("identity when model equals observations", func(t *testing.T) {
		t.Parallel()
		r := rand.New(rand.NewSource(3))
		data := randomSeries(r, 100, 15, 4)
		c := fitted(t, MethodParametricNormal, data, data)

		inputs := []float64{-100, 0, 3.3, 15, 27.5, 1e4}
		got, err := c.Transform(inputs)
		require.NoError(t, err)
		if diff := cmp.Diff(inputs, got, approx(1e-9)); diff != "" {
			t.Errorf("Transform mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("standardize and rescale", func(t *testing.T) {
		t.Parallel()
		// mean 2, population std 1 -> mean 10, population std 3
		c := fitted(t, MethodParametricNormal, []float64{1, 3}, []float64{7, 13})

		got, err := c.Transform([]float64{1, 2, 3, 4})
		require.NoError(t, err)
		if diff := cmp.Diff([]float64{7, 10, 13, 16}, got, approx(1e-12)); diff != "" {
			t.Errorf("Transform mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("constant model shifts only", func(t *testing.T) {
		t.Parallel()
		c := fitted(t, MethodParametricNormal, []float64{4, 4, 4}, []float64{5, 6, 7})

		got, err := c.Transform([]float64{4, 5})
		require.NoError(t, err)
		assert.Equal(t, []float64{6, 7}, got)
	})
}

func TestParametricGamma(t *testing.T) {
	t.Parallel()

	t.Run("fits shape and scale", func(t *testing.T) {
		t.Parallel()
		modelData := gammaSample(2, 3, 1000)
		obsData := gammaSample(0.8, 5, 1000)
		c := fitted(t, MethodParametricGamma, modelData, obsData)
		assert.Equal(t, MethodParametricGamma, c.FittedMethod())

		modelParams, obsParams, ok := c.GammaParams()
		require.True(t, ok)
		assert.InEpsilon(t, 2.0, modelParams.Shape, 0.05)
		assert.InEpsilon(t, 3.0, modelParams.Scale, 0.05)
		assert.InEpsilon(t, 0.8, obsParams.Shape, 0.05)
		assert.InEpsilon(t, 5.0, obsParams.Scale, 0.05)
	})

	t.Run("identity when model equals observations", func(t *testing.T) {
		t.Parallel()
		data := gammaSample(1.5, 2, 200)
		c := fitted(t, MethodParametricGamma, data, data)

		inputs := []float64{0.1, 1, 2.5, 7}
		got, err := c.Transform(inputs)
		require.NoError(t, err)
		if diff := cmp.Diff(inputs, got, approx(1e-6)); diff != "" {
			t.Errorf("Transform mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("non positive values map to zero", func(t *testing.T) {
		t.Parallel()
		c := fitted(t, MethodParametricGamma, gammaSample(2, 1, 50), gammaSample(2, 2, 50))

		got, err := c.Transform([]float64{-3, 0, 1, 1e6})
		require.NoError(t, err)
		assert.Equal(t, 0.0, got[0])
		assert.Equal(t, 0.0, got[1])
		assert.Greater(t, got[2], 0.0)
		assert.False(t, math.IsInf(got[3], 0))
	})

	t.Run("precipitation with dry days", func(t *testing.T) {
		t.Parallel()
		modelData := []float64{0, 0, 1.2, 3.4, 0, 7.8, 2.2, 0.4}
		obsData := []float64{0, 0.5, 2.0, 4.1, 0, 9.9, 3.0, 0}
		c := fitted(t, MethodParametricGamma, modelData, obsData)
		assert.Equal(t, MethodParametricGamma, c.FittedMethod())

		got, err := c.Transform(modelData)
		require.NoError(t, err)
		for i, v := range got {
			assert.GreaterOrEqual(t, v, 0.0)
			if modelData[i] == 0 {
				assert.Equal(t, 0.0, v)
			}
		}
	})

	t.Run("falls back to empirical with too few positive values", func(t *testing.T) {
		t.Parallel()
		modelData := []float64{0, 0, 1, 0, 2, -1}
		obsData := []float64{0.5, 3, 4, 0, 8, 2}
		c := fitted(t, MethodParametricGamma, modelData, obsData)
		assert.Equal(t, MethodParametricGamma, c.Method())
		assert.Equal(t, MethodEmpirical, c.FittedMethod())
		_, _, ok := c.GammaParams()
		assert.False(t, ok)

		got, err := c.Transform(append([]float64{-50, 50}, modelData...))
		require.NoError(t, err)
		for _, v := range got {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 8.0)
		}
	})

	t.Run("constant positive data stays finite", func(t *testing.T) {
		t.Parallel()
		c := fitted(t, MethodParametricGamma, []float64{2, 2, 2, 2}, []float64{3, 3, 3, 3})

		got, err := c.Transform([]float64{1, 2, 3})
		require.NoError(t, err)
		for _, v := range got {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
		assert.InDelta(t, 3.0, got[1], 0.01)
	})
}

func TestKernel(t *testing.T) {
	t.Parallel()

	t.Run("near identity when model equals observations", func(t *testing.T) {
		t.Parallel()
		data := make([]float64, 100)
		for i := range data {
			data[i] = float64(i)
		}
		c := fitted(t, MethodKernel, data, data)

		inputs := []float64{10, 33.3, 50, 71, 90}
		got, err := c.Transform(inputs)
		require.NoError(t, err)
		if diff := cmp.Diff(inputs, got, cmpopts.EquateApprox(0, 0.1)); diff != "" {
			t.Errorf("Transform mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("monotone and shifted", func(t *testing.T) {
		t.Parallel()
		r := rand.New(rand.NewSource(11))
		modelData := randomSeries(r, 200, 10, 2)
		obsData := make([]float64, len(modelData))
		for i, v := range modelData {
			obsData[i] = v + 5
		}
		c := fitted(t, MethodKernel, modelData, obsData)

		inputs := []float64{6, 8, 10, 12, 14}
		got, err := c.Transform(inputs)
		require.NoError(t, err)
		for i := 1; i < len(got); i++ {
			assert.Greater(t, got[i], got[i-1])
		}
		assert.InDelta(t, 15.0, got[2], 0.2)
	})

	t.Run("constant samples", func(t *testing.T) {
		t.Parallel()
		c := fitted(t, MethodKernel, []float64{1, 1, 1}, []float64{4, 4, 4})
		got, err := c.Transform([]float64{0, 1, 2})
		require.NoError(t, err)
		for _, v := range got {
			assert.InDelta(t, 4.0, v, 1e-6)
		}
	})
}

func TestRefitOverwritesState(t *testing.T) {
	t.Parallel()

	c := fitted(t, MethodEmpirical, []float64{1, 2, 3}, []float64{11, 12, 13})
	require.NoError(t, c.Fit([]float64{1, 2, 3}, []float64{21, 22, 23}))

	got, err := c.Transform([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{22}, got)

	// a failed refit keeps the previous fit
	assert.Error(t, c.Fit([]float64{1}, []float64{1}))
	got, err = c.Transform([]float64{2})
	require.NoError(t, err)
	assert.Equal(t, []float64{22}, got)
}

func TestGammaRefitAfterFallback(t *testing.T) {
	t.Parallel()

	c := fitted(t, MethodParametricGamma, []float64{0, 1}, []float64{0, 1})
	assert.Equal(t, MethodEmpirical, c.FittedMethod())

	require.NoError(t, c.Fit(gammaSample(2, 1, 30), gammaSample(2, 1, 30)))
	assert.Equal(t, MethodParametricGamma, c.FittedMethod())
}

func TestTrigamma(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, math.Pi*math.Pi/6, trigamma(1), 1e-9)
	assert.InDelta(t, math.Pi*math.Pi/2, trigamma(0.5), 1e-9)
	assert.InDelta(t, 0.1051663356816857, trigamma(10), 1e-9)
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	xs := []float64{1, 2, 4}
	ys := []float64{10, 20, 40}
	assert.Equal(t, -1.0, interpolate(xs, ys, 0.5, -1, 99))
	assert.Equal(t, 99.0, interpolate(xs, ys, 5, -1, 99))
	assert.Equal(t, 20.0, interpolate(xs, ys, 2, -1, 99))
	assert.Equal(t, 30.0, interpolate(xs, ys, 3, -1, 99))
	assert.Equal(t, -1.0, interpolate(nil, nil, 3, -1, 99))
}

func TestPlottingPositions(t *testing.T) {
	t.Parallel()

	if diff := cmp.Diff([]float64{0.1, 0.3, 0.5, 0.7, 0.9}, plottingPositions(5), approx(1e-12)); diff != "" {
		t.Errorf("plottingPositions mismatch (-want +got):\n%s", diff)
	}
}
