package qmap

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"go.uber.org/zap"
)

const correctionAlgorithm = "Quantile Mapping Bias Correction"

// RunCorrection fits a corrector on (predictions, observations), corrects the
// predictions themselves and reports how the distribution moved. Unknown
// method names fall back to empirical mapping.
func RunCorrection(ctx context.Context, predictions, observations []float64,
	methodName string) (report *model.CorrectionReport, err error) {
	logger := utils.GetLogger(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("RunCorrection recover panic error!", zap.Any("err", r),
				zap.String("panic info", utils.GetPanicInfo()))
			report, err = nil, errors.Errorf("bias correction panicked: %v", r)
		}
	}()

	method, err := ParseMethod(methodName)
	if err != nil {
		logger.Warn("unknown correction method, using empirical", zap.String("method", methodName))
		method = MethodEmpirical
	}

	corrector, err := NewQuantileMappingCorrector(method)
	if err != nil {
		return nil, err
	}
	if err := corrector.Fit(predictions, observations); err != nil {
		logger.Error("quantile mapping fit failed", zap.Error(err))
		return nil, err
	}
	if corrector.FittedMethod() != method {
		logger.Info("too few positive values for gamma fit, fell back",
			zap.String("method", method.String()),
			zap.String("fitted_method", corrector.FittedMethod().String()))
	}

	corrected, err := corrector.Transform(predictions)
	if err != nil {
		return nil, err
	}

	statistics, err := ComputeStatistics(predictions, observations, corrected)
	if err != nil {
		logger.Error("ComputeStatistics failed", zap.Error(err))
		return nil, err
	}

	logger.Info("bias correction done",
		zap.String("method", corrector.FittedMethod().String()),
		zap.Int("points", len(predictions)),
		zap.Float64("bias_before", statistics.Bias.Before),
		zap.Float64("bias_after", statistics.Bias.After))

	if methodName == "" {
		methodName = method.String()
	}

	return &model.CorrectionReport{
		Algorithm:       correctionAlgorithm,
		Method:          methodName,
		FittedMethod:    corrector.FittedMethod().String(),
		CorrectedValues: corrected,
		Statistics:      statistics,
		PercentileComparison: &model.PercentileComparison{
			Percentiles:    append([]float64(nil), ReportPercentiles...),
			Observations:   Percentiles(observations, ReportPercentiles),
			ModelRaw:       Percentiles(predictions, ReportPercentiles),
			ModelCorrected: Percentiles(corrected, ReportPercentiles),
		},
		DistributionSummary: model.DistributionComparison{
			Observations:   Summarize(observations),
			ModelRaw:       Summarize(predictions),
			ModelCorrected: Summarize(corrected),
		},
	}, nil
}
