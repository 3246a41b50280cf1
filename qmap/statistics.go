package qmap

import (
	"math"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"gonum.org/v1/gonum/stat"
)

// ComputeStatistics compares raw and corrected model data against the
// observations. The three series are paired and must have equal length.
func ComputeStatistics(modelData, obsData, correctedData []float64) (*model.CorrectionStatistics, error) {
	n := len(obsData)
	if n == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "statistics need non-empty series")
	}
	if len(modelData) != n || len(correctedData) != n {
		return nil, errors.Wrapf(common.ErrorConfiguration,
			"series length mismatch: model %d, observation %d, corrected %d",
			len(modelData), n, len(correctedData))
	}

	obsMean, obsVar := stat.PopMeanVariance(obsData, nil)
	modelMean, modelVar := stat.PopMeanVariance(modelData, nil)
	correctedMean, correctedVar := stat.PopMeanVariance(correctedData, nil)

	biasBefore := modelMean - obsMean
	biasAfter := correctedMean - obsMean
	rmseBefore := rmse(modelData, obsData)
	rmseAfter := rmse(correctedData, obsData)

	return &model.CorrectionStatistics{
		Bias: model.ReductionStatistics{
			Before:           biasBefore,
			After:            biasAfter,
			ReductionPercent: biasReductionPercent(biasBefore, biasAfter),
		},
		Rmse: model.ReductionStatistics{
			Before:           rmseBefore,
			After:            rmseAfter,
			ReductionPercent: rmseReductionPercent(rmseBefore, rmseAfter),
		},
		VarianceRatio: model.VarianceRatio{
			Before: modelVar / math.Max(obsVar, Epsilon),
			After:  correctedVar / math.Max(obsVar, Epsilon),
			Target: 1.0,
		},
		KsTest: model.KsComparison{
			Before: KolmogorovSmirnov(modelData, obsData),
			After:  KolmogorovSmirnov(correctedData, obsData),
		},
	}, nil
}

// biasReductionPercent treats a zero initial bias as fully removed.
func biasReductionPercent(before, after float64) float64 {
	if before == 0 {
		return 100
	}
	return (1 - math.Abs(after)/math.Abs(before)) * 100
}

func rmseReductionPercent(before, after float64) float64 {
	if before <= 0 {
		return 0
	}
	return (1 - after/before) * 100
}

func rmse(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(a)))
}

// Summarize returns population mean/std and the range of values.
func Summarize(values []float64) model.DistributionSummary {
	if len(values) == 0 {
		return model.DistributionSummary{}
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	sorted := utils.SortedCopy(values)
	return model.DistributionSummary{
		Mean: mean,
		Std:  math.Sqrt(variance),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
	}
}

// Percentiles evaluates the given percentiles (0-100) with linear
// interpolation of the empirical CDF.
func Percentiles(values []float64, percentiles []float64) []float64 {
	res := make([]float64, len(percentiles))
	if len(values) == 0 {
		return res
	}
	sorted := utils.SortedCopy(values)
	for i, p := range percentiles {
		res[i] = stat.Quantile(p/100, stat.LinInterp, sorted, nil)
	}
	return res
}
