package qmap

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat"
)

// fitGamma computes the maximum likelihood shape and scale of a gamma with
// location 0. values must be strictly positive.
//
// The shape solves log(k) - digamma(k) = log(mean(x)) - mean(log(x)), found
// by Newton iteration from the Minka starting point. scale = mean / shape.
func fitGamma(values []float64) GammaParams {
	mean := stat.Mean(values, nil)

	logMean := 0.0
	for _, v := range values {
		logMean += math.Log(v)
	}
	logMean /= float64(len(values))

	s := math.Log(mean) - logMean
	if s < minGammaLogGap {
		s = minGammaLogGap
	}

	shape := (3 - s + math.Sqrt((s-3)*(s-3)+24*s)) / (12 * s)
	for i := 0; i < gammaMaxIterations && shape < maxGammaShape; i++ {
		f := math.Log(shape) - mathext.Digamma(shape) - s
		df := 1/shape - trigamma(shape)
		next := shape - f/df
		if next <= 0 {
			next = shape / 2
		}
		if math.Abs(next-shape) <= gammaTolerance*shape {
			shape = next
			break
		}
		shape = next
	}
	shape = math.Min(shape, maxGammaShape)

	return GammaParams{
		Shape: shape,
		Scale: mean / shape,
	}
}

// trigamma uses the recurrence up to x >= 6 and then the asymptotic series.
func trigamma(x float64) float64 {
	res := 0.0
	for x < 6 {
		res += 1 / (x * x)
		x++
	}
	inv := 1 / x
	inv2 := inv * inv
	res += inv + inv2/2 + inv*inv2*(1.0/6-inv2*(1.0/30-inv2*(1.0/42-inv2/30)))
	return res
}
