package estimator

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Estimator produces one-step-ahead predictions for a series: element k of
// the result is the estimate of series[k] made before it was observed.
// Callers inject whatever estimators they have (ML models, remote services,
// the reference ones in this package).
type Estimator interface {
	Name() string
	Predict(ctx context.Context, series []float64) ([]float64, error)
}

// CollectPredictions runs every estimator over series concurrently and
// returns name -> predictions, the input shape of bma.ComputeWeights.
func CollectPredictions(ctx context.Context, series []float64,
	estimators ...Estimator) (map[string][]float64, error) {
	logger := utils.GetLogger(ctx)

	if len(estimators) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "no estimators given")
	}
	if len(series) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "series is empty")
	}
	seen := map[string]bool{}
	for _, e := range estimators {
		if seen[e.Name()] {
			return nil, errors.Wrapf(common.ErrorConfiguration, "duplicate estimator name %q", e.Name())
		}
		seen[e.Name()] = true
	}

	var mu sync.Mutex
	res := make(map[string][]float64, len(estimators))

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range estimators {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			preds, err := e.Predict(gctx, series)
			if err != nil {
				return errors.Wrapf(err, "estimator %s", e.Name())
			}
			if len(preds) != len(series) {
				return errors.Wrapf(common.ErrorInvalidValue,
					"estimator %s returned %d predictions for %d points", e.Name(), len(preds), len(series))
			}
			mu.Lock()
			res[e.Name()] = preds
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("collect predictions failed", zap.Error(err))
		return nil, err
	}
	logger.Debug("collected predictions", zap.Int("estimators", len(res)), zap.Int("points", len(series)))
	return res, nil
}

// Persistence predicts every value with the previous observation.
type Persistence struct{}

func (Persistence) Name() string {
	return "persistence"
}

func (Persistence) Predict(ctx context.Context, series []float64) ([]float64, error) {
	res := make([]float64, len(series))
	for i := range series {
		if i == 0 {
			res[i] = series[0]
			continue
		}
		res[i] = series[i-1]
	}
	return res, nil
}
