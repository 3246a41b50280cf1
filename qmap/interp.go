package qmap

import "sort"

// plottingPositions returns the rank quantiles (rank-0.5)/n.
func plottingPositions(n int) []float64 {
	res := make([]float64, n)
	for i := 0; i < n; i++ {
		res[i] = (float64(i+1) - 0.5) / float64(n)
	}
	return res
}

// interpolate evaluates the piecewise linear function through (xs, ys) at x.
// xs must be sorted ascending. Inputs left of xs[0] return below, right of
// the last point return above.
func interpolate(xs, ys []float64, x, below, above float64) float64 {
	n := len(xs)
	if n == 0 {
		return below
	}
	if x < xs[0] {
		return below
	}
	if x > xs[n-1] {
		return above
	}

	i := sort.SearchFloat64s(xs, x)
	if xs[i] == x {
		return ys[i]
	}

	lowerX, lowerY := xs[i-1], ys[i-1]
	upperX, upperY := xs[i], ys[i]
	return lowerY + (upperY-lowerY)*(x-lowerX)/(upperX-lowerX)
}
