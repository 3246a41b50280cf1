package bocd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"go.uber.org/zap"
)

type Result struct {
	PredictionMeans     []float64            `json:"prediction_means" yaml:"prediction_means"`
	PredictionVariances []float64            `json:"prediction_variances" yaml:"prediction_variances"`
	ChangePoints        []*model.ChangePoint `json:"change_points" yaml:"change_points"`
}

// Estimator predicts every value with the run length weighted segment mean
// before the value is seen. The noise variance is estimated from the series.
type Estimator struct {
	opts Options
}

func NewEstimator(opts Options) (*Estimator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{opts: opts}, nil
}

func (e *Estimator) Name() string {
	return "bocd"
}

func (e *Estimator) Predict(ctx context.Context, series []float64) ([]float64, error) {
	res, err := e.Detect(ctx, series)
	if err != nil {
		return nil, err
	}
	return res.PredictionMeans, nil
}

func (e *Estimator) Detect(ctx context.Context, series []float64) (*Result, error) {
	if len(series) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "bocd needs a non-empty series")
	}
	if !utils.AllFinite(series) {
		return nil, errors.Wrap(common.ErrorInvalidValue, "bocd series must be finite")
	}

	varx := EstimateVariance(series)
	handler, err := NewBocdHandler(varx, series[0], e.opts)
	if err != nil {
		return nil, err
	}

	for _, x := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		handler.AppendPoint(ctx, x)
	}

	utils.GetLogger(ctx).Debug("bocd done", zap.Int("points", len(series)),
		zap.Float64("varx", varx), zap.Int("change_points", len(handler.GetChangePoints())))

	return &Result{
		PredictionMeans:     handler.GetPredictionMeans(),
		PredictionVariances: handler.GetPredictionVariances(),
		ChangePoints:        handler.GetChangePoints(),
	}, nil
}
