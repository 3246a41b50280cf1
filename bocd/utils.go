package bocd

import (
	"math"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultHazard        = 2 / 1000.0
	DefaultThreshold     = 0.75
	DefaultObserveWindow = 5

	minVariance = 1e-6
)

type Options struct {
	// Hazard is the prior probability that a segment ends after any point.
	Hazard float64
	// Threshold is the run length probability that confirms a change point.
	Threshold float64
	// ObserveWindow caps how many points after a change it may be reported.
	ObserveWindow int
}

func DefaultOptions() Options {
	return Options{
		Hazard:        DefaultHazard,
		Threshold:     DefaultThreshold,
		ObserveWindow: DefaultObserveWindow,
	}
}

func (o Options) Validate() error {
	if !(o.Hazard > 0 && o.Hazard < 1) {
		return errors.Wrapf(common.ErrorConfiguration, "bocd hazard must be in (0, 1), got %v", o.Hazard)
	}
	if !(o.Threshold > 0 && o.Threshold <= 1) {
		return errors.Wrapf(common.ErrorConfiguration, "bocd threshold must be in (0, 1], got %v", o.Threshold)
	}
	if o.ObserveWindow < 1 {
		return errors.Wrapf(common.ErrorConfiguration, "bocd observe window must be >= 1, got %d", o.ObserveWindow)
	}
	return nil
}

func normalizeLog(data []float64) []float64 {
	logSum := floats.LogSumExp(data)
	res := make([]float64, len(data))
	for i := range data {
		res[i] = data[i] - logSum
	}
	return res
}

func listExp(data []float64) []float64 {
	res := make([]float64, len(data))
	for i, v := range data {
		res[i] = math.Exp(v)
	}
	return res
}

// EstimateVariance is the known noise variance assumed for series: half the
// variance of its first differences, which is the noise variance of a
// piecewise constant signal.
func EstimateVariance(series []float64) float64 {
	if len(series) < 3 {
		return 1
	}
	diffs := make([]float64, len(series)-1)
	for i := range diffs {
		diffs[i] = series[i+1] - series[i]
	}
	return math.Max(stat.PopVariance(diffs, nil)/2, minVariance)
}
