package bma

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"gonum.org/v1/gonum/floats"
)

const (
	// VarianceFloor is added to every residual variance estimate so a model
	// that matches the observations exactly keeps a finite likelihood.
	VarianceFloor = 1e-10

	// IntervalZ is the normal quantile of the two sided 95% interval.
	IntervalZ = 1.96
)

// BayesianModelAverager treats every model as a fixed hypothesis whose
// likelihood is its historical Gaussian fit to the observations:
//
//	P(M_k | D) ∝ P(D | M_k) P(M_k)
//	mean       = Σ w_k μ_k
//	variance   = Σ w_k σ²_k + Σ w_k (μ_k - mean)²
type BayesianModelAverager struct {
	modelNames []string

	posteriorWeights map[string]float64
	modelVariances   map[string]float64
}

func NewBayesianModelAverager(modelNames []string) (*BayesianModelAverager, error) {
	if len(modelNames) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "at least one model name is required")
	}
	seen := make(map[string]bool, len(modelNames))
	for _, name := range modelNames {
		if seen[name] {
			return nil, errors.Wrapf(common.ErrorConfiguration, "duplicate model name %q", name)
		}
		seen[name] = true
	}

	names := make([]string, len(modelNames))
	copy(names, modelNames)
	return &BayesianModelAverager{
		modelNames: names,
	}, nil
}

func (b *BayesianModelAverager) ModelNames() []string {
	names := make([]string, len(b.modelNames))
	copy(names, b.modelNames)
	return names
}

// UniformPriors returns a fresh 1/n prior over the configured model names.
func (b *BayesianModelAverager) UniformPriors() map[string]float64 {
	priors := make(map[string]float64, len(b.modelNames))
	for _, name := range b.modelNames {
		priors[name] = 1 / float64(len(b.modelNames))
	}
	return priors
}

// ComputeWeights estimates every model's error variance and posterior weight
// from its predictions against observations. priors may be nil for a uniform
// prior; names missing from priors get 1/n. Configured models absent from
// predictions are skipped and the weights renormalized over the rest.
func (b *BayesianModelAverager) ComputeWeights(predictions map[string][]float64,
	observations []float64, priors map[string]float64) (map[string]float64, error) {
	if len(predictions) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "model predictions are empty")
	}
	if len(observations) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "observations are empty")
	}
	if !utils.AllFinite(observations) {
		return nil, errors.Wrap(common.ErrorConfiguration, "observations must be finite")
	}
	if err := checkPriors(priors); err != nil {
		return nil, err
	}

	defaultPrior := 1 / float64(len(b.modelNames))

	names := []string{}
	logPosteriors := []float64{}
	variances := map[string]float64{}

	for _, name := range b.modelNames {
		preds, ok := predictions[name]
		if !ok {
			continue
		}
		if len(preds) != len(observations) {
			return nil, errors.Wrapf(common.ErrorConfiguration,
				"model %q has %d predictions for %d observations", name, len(preds), len(observations))
		}
		if !utils.AllFinite(preds) {
			return nil, errors.Wrapf(common.ErrorConfiguration, "predictions of model %q must be finite", name)
		}

		variance := EstimateVariance(preds, observations)
		prior := defaultPrior
		if p, ok := priors[name]; ok {
			prior = p
		}

		names = append(names, name)
		variances[name] = variance
		logPosteriors = append(logPosteriors, math.Log(prior)+LogLikelihood(preds, observations, variance))
	}

	if len(names) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "no configured model has predictions")
	}

	logEvidence := floats.LogSumExp(logPosteriors)
	if math.IsInf(logEvidence, -1) || math.IsNaN(logEvidence) {
		return nil, errors.Wrap(common.ErrorConfiguration, "priors give zero mass to every model")
	}

	weights := make(map[string]float64, len(names))
	for i, name := range names {
		weights[name] = math.Exp(logPosteriors[i] - logEvidence)
	}

	b.posteriorWeights = weights
	b.modelVariances = variances
	return copyMap(weights), nil
}

// Predict combines predictions with the stored posterior weights. Only models
// known to both predictions and the fitted weights take part, and their
// weights are used as fitted, so a subset contributes only its own mass.
func (b *BayesianModelAverager) Predict(predictions map[string][]float64) (*model.BmaPrediction, error) {
	if b.posteriorWeights == nil {
		return nil, errors.Wrap(common.ErrorState, "ComputeWeights must be called before Predict")
	}

	names := []string{}
	for name := range predictions {
		if _, ok := b.posteriorWeights[name]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "no predictions for any weighted model")
	}
	sort.Strings(names)

	steps := len(predictions[names[0]])
	totalWeight := 0.0
	for _, name := range names {
		if len(predictions[name]) != steps {
			return nil, errors.Wrapf(common.ErrorConfiguration,
				"model %q has %d predictions, expected %d", name, len(predictions[name]), steps)
		}
		if !utils.AllFinite(predictions[name]) {
			return nil, errors.Wrapf(common.ErrorConfiguration, "predictions of model %q must be finite", name)
		}
		totalWeight += b.posteriorWeights[name]
	}
	if totalWeight <= 0 {
		return nil, errors.Wrap(common.ErrorConfiguration, "weighted models carry zero posterior mass")
	}

	weights := make([]float64, len(names))
	for i, name := range names {
		weights[i] = b.posteriorWeights[name]
	}

	res := &model.BmaPrediction{
		Mean:            make([]float64, steps),
		Std:             make([]float64, steps),
		Lower95:         make([]float64, steps),
		Upper95:         make([]float64, steps),
		Variance:        make([]float64, steps),
		WithinVariance:  make([]float64, steps),
		BetweenVariance: make([]float64, steps),
	}

	for t := 0; t < steps; t++ {
		mean := 0.0
		within := 0.0
		for i, name := range names {
			mean += weights[i] * predictions[name][t]
			within += weights[i] * b.modelVariances[name]
		}

		between := 0.0
		for i, name := range names {
			d := predictions[name][t] - mean
			between += weights[i] * d * d
		}

		variance := within + between
		std := math.Sqrt(variance)

		res.Mean[t] = mean
		res.WithinVariance[t] = within
		res.BetweenVariance[t] = between
		res.Variance[t] = variance
		res.Std[t] = std
		res.Lower95[t] = mean - IntervalZ*std
		res.Upper95[t] = mean + IntervalZ*std
	}

	return res, nil
}

// Weights returns a copy of the posterior weights, nil before ComputeWeights.
func (b *BayesianModelAverager) Weights() map[string]float64 {
	return copyMap(b.posteriorWeights)
}

// Variances returns a copy of the per model error variances.
func (b *BayesianModelAverager) Variances() map[string]float64 {
	return copyMap(b.modelVariances)
}

// EstimateVariance is the maximum likelihood error variance
// mean((obs - pred)^2), plus VarianceFloor.
func EstimateVariance(predictions, observations []float64) float64 {
	sum := 0.0
	for i := range observations {
		d := observations[i] - predictions[i]
		sum += d * d
	}
	return sum/float64(len(observations)) + VarianceFloor
}

// LogLikelihood of the observations under N(pred, variance),
//
//	-n/2 log(2π variance) - RSS / (2 variance)
func LogLikelihood(predictions, observations []float64, variance float64) float64 {
	n := float64(len(observations))
	rss := 0.0
	for i := range observations {
		d := observations[i] - predictions[i]
		rss += d * d
	}
	return -n/2*math.Log(2*math.Pi*variance) - rss/(2*variance)
}

func checkPriors(priors map[string]float64) error {
	for name, p := range priors {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return errors.Wrapf(common.ErrorConfiguration, "invalid prior %v for model %q", p, name)
		}
	}
	return nil
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	res := make(map[string]float64, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}
