package qmap

import (
	"math"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/utils"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// QuantileMappingCorrector maps model output onto the observed distribution,
//
//	x_corrected = F_obs^-1(F_mod(x))
//
// F_mod and F_obs are empirical, normal, gamma or kernel smoothed CDFs
// depending on the method. The fitted state is replaced as a whole by every
// Fit call and never touched by Transform.
type QuantileMappingCorrector struct {
	method       Method
	fittedMethod Method
	fitted       bool

	empirical *empiricalMapping
	normal    *normalMapping
	gamma     *gammaMapping
	kernel    *kernelMapping
}

func NewQuantileMappingCorrector(method Method) (*QuantileMappingCorrector, error) {
	if !method.Valid() {
		return nil, errors.Wrapf(common.ErrorConfiguration, "unsupported correction method %q", method)
	}
	return &QuantileMappingCorrector{
		method: method,
	}, nil
}

func (c *QuantileMappingCorrector) Method() Method {
	return c.method
}

// FittedMethod is the method used by the last Fit. It differs from Method
// when parametric_gamma fell back to empirical.
func (c *QuantileMappingCorrector) FittedMethod() Method {
	return c.fittedMethod
}

func (c *QuantileMappingCorrector) Fitted() bool {
	return c.fitted
}

func (c *QuantileMappingCorrector) Fit(modelData, obsData []float64) error {
	if err := checkSeries("model", modelData); err != nil {
		return err
	}
	if err := checkSeries("observation", obsData); err != nil {
		return err
	}

	fitted := &QuantileMappingCorrector{method: c.method, fittedMethod: c.method, fitted: true}

	switch c.method {
	case MethodEmpirical:
		fitted.empirical = newEmpiricalMapping(modelData, obsData)
	case MethodParametricNormal:
		fitted.normal = newNormalMapping(modelData, obsData)
	case MethodParametricGamma:
		modelPos, obsPos := positiveValues(modelData), positiveValues(obsData)
		if len(modelPos) < MinGammaPoints || len(obsPos) < MinGammaPoints {
			// not enough wet values, map the unfiltered data empirically
			fitted.fittedMethod = MethodEmpirical
			fitted.empirical = newEmpiricalMapping(modelData, obsData)
		} else {
			fitted.gamma = &gammaMapping{
				model: fitGamma(modelPos),
				obs:   fitGamma(obsPos),
			}
		}
	case MethodKernel:
		fitted.kernel = newKernelMapping(modelData, obsData)
	default:
		return errors.Wrapf(common.ErrorConfiguration, "unsupported correction method %q", c.method)
	}

	*c = *fitted
	return nil
}

func (c *QuantileMappingCorrector) Transform(values []float64) ([]float64, error) {
	if !c.fitted {
		return nil, errors.Wrap(common.ErrorState, "must call Fit before Transform")
	}

	var apply func(float64) float64
	switch c.fittedMethod {
	case MethodEmpirical:
		apply = c.empirical.apply
	case MethodParametricNormal:
		apply = c.normal.apply
	case MethodParametricGamma:
		apply = c.gamma.apply
	case MethodKernel:
		apply = c.kernel.apply
	default:
		return nil, errors.Wrapf(common.ErrorState, "corrector fitted with unknown method %q", c.fittedMethod)
	}

	corrected := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			corrected[i] = v
			continue
		}
		corrected[i] = apply(v)
	}
	return corrected, nil
}

// GammaParams returns the fitted (model, observation) gamma parameters, ok is
// false unless the gamma method was actually fitted.
func (c *QuantileMappingCorrector) GammaParams() (modelParams, obsParams GammaParams, ok bool) {
	if c.gamma == nil {
		return GammaParams{}, GammaParams{}, false
	}
	return c.gamma.model, c.gamma.obs, true
}

func checkSeries(name string, values []float64) error {
	if len(values) < MinFitPoints {
		return errors.Wrapf(common.ErrorConfiguration,
			"%s series needs at least %d points, got %d", name, MinFitPoints, len(values))
	}
	if !utils.AllFinite(values) {
		return errors.Wrapf(common.ErrorConfiguration, "%s series contains non-finite values", name)
	}
	return nil
}

func positiveValues(values []float64) []float64 {
	res := []float64{}
	for _, v := range values {
		if v > 0 {
			res = append(res, v)
		}
	}
	return res
}

type empiricalMapping struct {
	modelSorted    []float64
	modelQuantiles []float64
	obsSorted      []float64
	obsQuantiles   []float64
}

func newEmpiricalMapping(modelData, obsData []float64) *empiricalMapping {
	modelSorted, obsSorted := utils.SortedCopy(modelData), utils.SortedCopy(obsData)
	return &empiricalMapping{
		modelSorted:    modelSorted,
		modelQuantiles: plottingPositions(len(modelSorted)),
		obsSorted:      obsSorted,
		obsQuantiles:   plottingPositions(len(obsSorted)),
	}
}

func (m *empiricalMapping) apply(x float64) float64 {
	q := interpolate(m.modelSorted, m.modelQuantiles, x, 0, 1)
	return interpolate(m.obsQuantiles, m.obsSorted, q, m.obsSorted[0], m.obsSorted[len(m.obsSorted)-1])
}

type normalMapping struct {
	modelMean, modelStd float64
	obsMean, obsStd     float64
}

func newNormalMapping(modelData, obsData []float64) *normalMapping {
	modelMean, modelVar := stat.PopMeanVariance(modelData, nil)
	obsMean, obsVar := stat.PopMeanVariance(obsData, nil)
	return &normalMapping{
		modelMean: modelMean,
		modelStd:  math.Sqrt(modelVar),
		obsMean:   obsMean,
		obsStd:    math.Sqrt(obsVar),
	}
}

func (m *normalMapping) apply(x float64) float64 {
	if m.modelStd <= Epsilon {
		// constant model output carries no spread to rescale, shift only
		return x - m.modelMean + m.obsMean
	}
	z := (x - m.modelMean) / m.modelStd
	return z*m.obsStd + m.obsMean
}

type gammaMapping struct {
	model GammaParams
	obs   GammaParams
}

func (m *gammaMapping) apply(x float64) float64 {
	if x <= 0 {
		return 0
	}
	p := m.model.Distribution().CDF(x)
	p = math.Min(math.Max(p, 0), maxGammaProbability)
	return m.obs.Distribution().Quantile(p)
}

// GammaParams is a two parameter gamma with location fixed at 0.
type GammaParams struct {
	Shape float64 `json:"shape" yaml:"shape"`
	Scale float64 `json:"scale" yaml:"scale"`
}

func (g GammaParams) Distribution() distuv.Gamma {
	return distuv.Gamma{Alpha: g.Shape, Beta: 1 / g.Scale}
}
