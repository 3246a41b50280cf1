package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
	"github.com/uyouii/weather-calibration/bma"
	"github.com/uyouii/weather-calibration/bocd"
	"github.com/uyouii/weather-calibration/chart"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/estimator"
	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/qmap"
	"github.com/uyouii/weather-calibration/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	inputFlagName  = "input"
	methodFlagName = "method"
	chartFlagName  = "chart"
	stepsFlagName  = "steps"
)

var validate = validator.New()

// urfave v3 flags hold their parsed value, so every command builds its own.

func inputFlag() *urfave.StringFlag {
	return &urfave.StringFlag{
		Name:     inputFlagName,
		Aliases:  []string{"i"},
		Usage:    "Request file (.json, .yaml or .yml), - reads stdin",
		Required: true,
	}
}

func methodFlag() *urfave.StringFlag {
	return &urfave.StringFlag{
		Name:  methodFlagName,
		Usage: "Correction method [empirical, parametric_normal, parametric_gamma, kernel] or alias",
	}
}

func chartFlag() *urfave.StringFlag {
	return &urfave.StringFlag{
		Name:  chartFlagName,
		Usage: "Writes a PNG chart to this path (optional)",
	}
}

func stepsFlag() *urfave.IntFlag {
	return &urfave.IntFlag{
		Name:  stepsFlagName,
		Usage: "Number of values to forecast past the last observation",
	}
}

type correctRequest struct {
	Predictions  []float64 `json:"predictions" yaml:"predictions" validate:"required,min=2"`
	Observations []float64 `json:"observations" yaml:"observations" validate:"required,min=2"`
	Method       string    `json:"method" yaml:"method"`
}

type bmaRequest struct {
	ModelsPredictions map[string][]float64 `json:"models_predictions" yaml:"models_predictions" validate:"required,min=1,dive,required,min=1"`
	Observations      []float64            `json:"observations" yaml:"observations" validate:"required,min=1"`
	PriorWeights      map[string]float64   `json:"prior_weights" yaml:"prior_weights"`
}

type forecastRequest struct {
	Observations []float64 `json:"observations" yaml:"observations" validate:"required,min=2"`
	Steps        int       `json:"steps" yaml:"steps" validate:"gte=0"`
}

func correctCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "correct",
		Usage: "Quantile mapping bias correction of model predictions",
		Flags: []urfave.Flag{inputFlag(), methodFlag(), chartFlag()},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			state := getState(ctx)
			logger := utils.GetLogger(ctx)

			var req correctRequest
			if err := readRequest(cmd, &req); err != nil {
				return err
			}
			if !utils.AllFinite(req.Predictions) || !utils.AllFinite(req.Observations) {
				return errors.Wrap(common.ErrorInvalidValue, "request values must be finite")
			}

			method := state.cfg.Correction.Method
			if req.Method != "" {
				method = req.Method
			}
			if m := cmd.String(methodFlagName); m != "" {
				method = m
			}

			report, err := qmap.RunCorrection(ctx, req.Predictions, req.Observations, method)
			if err != nil {
				return err
			}

			if path := cmd.String(chartFlagName); path != "" {
				if err := chart.CorrectionChart(report, path); err != nil {
					return err
				}
				logger.Info("correction chart written", zap.String("path", path))
			}
			return encode(cmd.Root().Writer, state.format, report)
		},
	}
}

func bmaCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "bma",
		Usage: "Bayesian model averaging of several model predictions",
		Flags: []urfave.Flag{inputFlag(), chartFlag()},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			state := getState(ctx)
			logger := utils.GetLogger(ctx)

			var req bmaRequest
			if err := readRequest(cmd, &req); err != nil {
				return err
			}
			if !utils.AllFinite(req.Observations) {
				return errors.Wrap(common.ErrorInvalidValue, "observations must be finite")
			}
			for name, preds := range req.ModelsPredictions {
				if !utils.AllFinite(preds) {
					return errors.Wrapf(common.ErrorInvalidValue, "predictions of %q must be finite", name)
				}
			}

			report, err := bma.RunBMA(ctx, req.ModelsPredictions, req.Observations, req.PriorWeights)
			if err != nil {
				return err
			}

			if path := cmd.String(chartFlagName); path != "" {
				if err := chart.BmaChart(req.Observations, report.Prediction, path); err != nil {
					return err
				}
				logger.Info("bma chart written", zap.String("path", path))
			}
			return encode(cmd.Root().Writer, state.format, report)
		},
	}
}

func forecastCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "forecast",
		Usage: "Runs the reference estimators over observations, averages them, extrapolates and flags change points",
		Flags: []urfave.Flag{inputFlag(), stepsFlag(), chartFlag()},
		Action: func(ctx context.Context, cmd *urfave.Command) error {
			state := getState(ctx)

			var req forecastRequest
			if err := readRequest(cmd, &req); err != nil {
				return err
			}
			if !utils.AllFinite(req.Observations) {
				return errors.Wrap(common.ErrorInvalidValue, "observations must be finite")
			}
			steps := req.Steps
			if cmd.IsSet(stepsFlagName) {
				steps = int(cmd.Int(stepsFlagName))
			}

			report, err := runForecast(ctx, state, req.Observations, steps)
			if err != nil {
				return err
			}

			if path := cmd.String(chartFlagName); path != "" {
				if err := chart.BmaChart(req.Observations, report.Bma.Prediction, path); err != nil {
					return err
				}
			}
			return encode(cmd.Root().Writer, state.format, report)
		},
	}
}

// kalmanRun and bocdRun keep the result of their pass over the series so the
// forecast and change points come from the same run as the predictions.
type kalmanRun struct {
	*estimator.KalmanFilter
	result *estimator.FilterResult
}

func (k *kalmanRun) Predict(ctx context.Context, series []float64) ([]float64, error) {
	res, err := k.Filter(ctx, series)
	if err != nil {
		return nil, err
	}
	k.result = res
	return res.Predictions, nil
}

type bocdRun struct {
	*bocd.Estimator
	result *bocd.Result
}

func (b *bocdRun) Predict(ctx context.Context, series []float64) ([]float64, error) {
	res, err := b.Detect(ctx, series)
	if err != nil {
		return nil, err
	}
	b.result = res
	return res.PredictionMeans, nil
}

func runForecast(ctx context.Context, state *appState, observations []float64,
	steps int) (*model.ForecastReport, error) {
	kalman, err := estimator.NewKalmanFilter(state.cfg.Kalman.ProcessNoise, state.cfg.Kalman.MeasurementNoise)
	if err != nil {
		return nil, err
	}

	detector, err := bocd.NewEstimator(state.cfg.Bocd.Options())
	if err != nil {
		return nil, err
	}

	kalmanEst := &kalmanRun{KalmanFilter: kalman}
	bocdEst := &bocdRun{Estimator: detector}
	preds, err := estimator.CollectPredictions(ctx, observations, estimator.Persistence{}, kalmanEst, bocdEst)
	if err != nil {
		return nil, err
	}

	report, err := bma.RunBMA(ctx, preds, observations, nil)
	if err != nil {
		return nil, err
	}

	forecast, err := kalman.Extrapolate(kalmanEst.result, steps)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(preds))
	for name := range preds {
		names = append(names, name)
	}
	sort.Strings(names)

	return &model.ForecastReport{
		Estimators:   names,
		Predictions:  preds,
		Bma:          report,
		ChangePoints: bocdEst.result.ChangePoints,
		Forecast:     forecast,
	}, nil
}

// readRequest decodes the --input file into v by extension and validates it.
func readRequest(cmd *urfave.Command, v any) error {
	path := cmd.String(inputFlagName)

	var (
		content []byte
		err     error
	)
	if path == "-" {
		content, err = io.ReadAll(cmd.Root().Reader)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return errors.Wrapf(common.ErrorConfiguration, "reading request %s: %v", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(content, v)
	default:
		err = yaml.Unmarshal(content, v)
	}
	if err != nil {
		return errors.Wrapf(common.ErrorConfiguration, "parsing request %s: %v", path, err)
	}

	if err := validate.Struct(v); err != nil {
		return errors.Wrapf(common.ErrorConfiguration, "invalid request: %v", err)
	}
	return nil
}
