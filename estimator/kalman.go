package estimator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultProcessNoise     = 0.1
	DefaultMeasurementNoise = 1.0

	initialCovariance = 1000.0
)

// KalmanFilter tracks [level, rate] with a constant velocity model:
//
//	x_k = F x_{k-1} + w_k,  F = [[1, 1], [0, 1]],  w_k ~ N(0, Q)
//	z_k = H x_k + v_k,      H = [1, 0],            v_k ~ N(0, R)
//
// Q is the discrete white noise acceleration matrix scaled by the process
// noise, R the measurement noise variance.
type KalmanFilter struct {
	processNoise     float64
	measurementNoise float64
}

func NewKalmanFilter(processNoise, measurementNoise float64) (*KalmanFilter, error) {
	if !(processNoise > 0) || !(measurementNoise > 0) {
		return nil, errors.Wrapf(common.ErrorConfiguration,
			"kalman noise must be positive, got Q=%v R=%v", processNoise, measurementNoise)
	}
	return &KalmanFilter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
	}, nil
}

func (k *KalmanFilter) Name() string {
	return "kalman"
}

type FilterResult struct {
	// Predictions holds the prior estimates H x_k|k-1.
	Predictions   []float64 `json:"predictions" yaml:"predictions"`
	Filtered      []float64 `json:"filtered" yaml:"filtered"`
	Velocities    []float64 `json:"velocities" yaml:"velocities"`
	Gains         []float64 `json:"kalman_gains" yaml:"kalman_gains"`
	Uncertainties []float64 `json:"uncertainties" yaml:"uncertainties"`
	Innovations   []float64 `json:"innovations" yaml:"innovations"`

	x *mat.VecDense
	p *mat.Dense
}

func (k *KalmanFilter) Predict(ctx context.Context, series []float64) ([]float64, error) {
	res, err := k.Filter(ctx, series)
	if err != nil {
		return nil, err
	}
	return res.Predictions, nil
}

// Filter runs the predict/update cycle over series, the state starts at
// [series[0], 0] with a wide covariance.
func (k *KalmanFilter) Filter(ctx context.Context, series []float64) (*FilterResult, error) {
	if len(series) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "kalman filter needs a non-empty series")
	}

	x := mat.NewVecDense(2, []float64{series[0], 0})
	p := mat.NewDense(2, 2, []float64{initialCovariance, 0, 0, initialCovariance})

	n := len(series)
	res := &FilterResult{
		Predictions:   make([]float64, n),
		Filtered:      make([]float64, n),
		Velocities:    make([]float64, n),
		Gains:         make([]float64, n),
		Uncertainties: make([]float64, n),
		Innovations:   make([]float64, n),
	}

	for i, z := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		x, p = k.predict(x, p)
		res.Predictions[i] = x.AtVec(0)

		// S = H P H^T + R, K = P H^T / S
		innovation := z - x.AtVec(0)
		s := p.At(0, 0) + k.measurementNoise
		gain := mat.NewVecDense(2, []float64{p.At(0, 0) / s, p.At(1, 0) / s})

		updated := mat.NewVecDense(2, nil)
		updated.AddScaledVec(x, innovation, gain)
		x = updated

		// P = (I - K H) P
		var kh mat.Dense
		kh.Outer(1, gain, mat.NewVecDense(2, []float64{1, 0}))
		ikh := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		ikh.Sub(ikh, &kh)
		var nextP mat.Dense
		nextP.Mul(ikh, p)
		p = &nextP

		res.Innovations[i] = innovation
		res.Filtered[i] = x.AtVec(0)
		res.Velocities[i] = x.AtVec(1)
		res.Gains[i] = gain.AtVec(0)
		res.Uncertainties[i] = p.At(0, 0)
	}

	res.x, res.p = x, p
	return res, nil
}

// Forecast filters series and extrapolates steps values past its end.
func (k *KalmanFilter) Forecast(ctx context.Context, series []float64, steps int) ([]float64, error) {
	if steps < 0 {
		return nil, errors.Wrapf(common.ErrorConfiguration, "forecast steps must be >= 0, got %d", steps)
	}
	res, err := k.Filter(ctx, series)
	if err != nil {
		return nil, err
	}
	return k.Extrapolate(res, steps)
}

// Extrapolate continues a finished Filter run steps values past its last
// observation. res is not modified.
func (k *KalmanFilter) Extrapolate(res *FilterResult, steps int) ([]float64, error) {
	if steps < 0 {
		return nil, errors.Wrapf(common.ErrorConfiguration, "forecast steps must be >= 0, got %d", steps)
	}
	if res == nil || res.x == nil || res.p == nil {
		return nil, errors.Wrap(common.ErrorState, "extrapolate needs a completed filter run")
	}

	forecasts := make([]float64, steps)
	x, p := res.x, res.p
	for i := 0; i < steps; i++ {
		x, p = k.predict(x, p)
		forecasts[i] = x.AtVec(0)
	}
	return forecasts, nil
}

// predict returns F x and F P F^T + Q without touching its arguments.
func (k *KalmanFilter) predict(x *mat.VecDense, p *mat.Dense) (*mat.VecDense, *mat.Dense) {
	f := mat.NewDense(2, 2, []float64{1, 1, 0, 1})
	q := mat.NewDense(2, 2, []float64{0.25, 0.5, 0.5, 1})
	q.Scale(k.processNoise, q)

	nextX := mat.NewVecDense(2, nil)
	nextX.MulVec(f, x)

	var fp mat.Dense
	fp.Mul(f, p)
	nextP := mat.NewDense(2, 2, nil)
	nextP.Mul(&fp, f.T())
	nextP.Add(nextP, q)

	return nextX, nextP
}
