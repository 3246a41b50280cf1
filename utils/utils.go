package utils

import (
	"math"
	"sort"
)

func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SortedCopy returns a sorted copy, the input is left untouched.
func SortedCopy(values []float64) []float64 {
	res := make([]float64, len(values))
	copy(res, values)
	sort.Float64s(res)
	return res
}

// Linspace returns num evenly spaced points over [start, stop].
func Linspace(start, stop float64, num int) []float64 {
	if num < 2 {
		return []float64{start}
	}
	step := (stop - start) / float64(num-1)
	grid := make([]float64, num)
	for i := 0; i < num; i++ {
		grid[i] = start + float64(i)*step
	}
	return grid
}
