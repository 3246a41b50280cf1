package bma

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"go.uber.org/zap"
)

const bmaAlgorithm = "Bayesian Model Averaging"

// RunBMA weighs every model in predictions against observations and scores
// the combined prediction next to each individual model.
func RunBMA(ctx context.Context, predictions map[string][]float64, observations []float64,
	priors map[string]float64) (report *model.BmaReport, err error) {
	logger := utils.GetLogger(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("RunBMA recover panic error!", zap.Any("err", r),
				zap.String("panic info", utils.GetPanicInfo()))
			report, err = nil, errors.Errorf("bayesian model averaging panicked: %v", r)
		}
	}()

	names := make([]string, 0, len(predictions))
	for name := range predictions {
		names = append(names, name)
	}
	sort.Strings(names)

	averager, err := NewBayesianModelAverager(names)
	if err != nil {
		return nil, err
	}

	weights, err := averager.ComputeWeights(predictions, observations, priors)
	if err != nil {
		logger.Error("ComputeWeights failed", zap.Error(err))
		return nil, err
	}

	prediction, err := averager.Predict(predictions)
	if err != nil {
		logger.Error("Predict failed", zap.Error(err))
		return nil, err
	}

	variances := averager.Variances()
	metrics := make(map[string]*model.ModelMetrics, len(names))
	meanSquaredRmse := 0.0
	for _, name := range names {
		m := scoreModel(predictions[name], observations)
		m.Variance = variances[name]
		metrics[name] = m
		meanSquaredRmse += m.RMSE * m.RMSE
	}
	meanSquaredRmse /= float64(len(names))

	combined := scoreModel(prediction.Mean, observations)
	skill := 0.0
	if meanSquaredRmse > 0 {
		skill = 1 - combined.RMSE*combined.RMSE/meanSquaredRmse
	}

	if priors == nil {
		priors = averager.UniformPriors()
	}

	logger.Info("bma done", zap.Int("models", len(names)),
		zap.Int("observations", len(observations)), zap.Any("weights", weights))

	return &model.BmaReport{
		Algorithm:        bmaAlgorithm,
		PosteriorWeights: weights,
		PriorWeights:     priors,
		ModelMetrics:     metrics,
		Prediction:       prediction,
		Metrics: model.BmaMetrics{
			MAE:              combined.MAE,
			RMSE:             combined.RMSE,
			SkillImprovement: skill,
		},
		ModelCount:       len(names),
		ObservationCount: len(observations),
	}, nil
}

// scoreModel reports errors as observation minus prediction.
func scoreModel(predictions, observations []float64) *model.ModelMetrics {
	n := float64(len(observations))
	absSum, sqSum, sum := 0.0, 0.0, 0.0
	for i := range observations {
		e := observations[i] - predictions[i]
		absSum += math.Abs(e)
		sqSum += e * e
		sum += e
	}
	return &model.ModelMetrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		Bias: sum / n,
	}
}
