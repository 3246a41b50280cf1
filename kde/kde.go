package kde

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultCut         = 3.0
	DefaultMinGridSize = 100
)

// KDEUnivariate is a Gaussian kernel density estimate of one sample series.
// The CDF is tabulated once on a grid spanning the samples plus cut
// bandwidths on both sides, Quantile interpolates inside that table.
type KDEUnivariate struct {
	// Endog is the sorted sample
	Endog []float64

	gridSize int
	// An adjustment factor for the bw. Bandwidth becomes bw * adjust.
	bwAdjust float64
	cut      float64

	bw     float64
	kernel *GaussianKernel
	cdf    []model.Cdf
}

func NewKDEUnivariate(endog []float64, bwAdjust float64, cut float64, minGridSize int) (*KDEUnivariate, error) {
	if len(endog) == 0 || !utils.AllFinite(endog) {
		return nil, errors.Wrap(common.ErrorInvalidValue, "kde needs a non-empty finite sample")
	}
	if bwAdjust <= 0 {
		bwAdjust = 1
	}
	if cut <= 0 {
		cut = DefaultCut
	}
	if minGridSize <= 0 {
		minGridSize = DefaultMinGridSize
	}

	sorted := utils.SortedCopy(endog)

	kernel := NewGaussianKernel()
	bw := NewNormalReferenceBandWidth(kernel).BandWidth(sorted) * bwAdjust
	kernel.SetH(bw)

	kde := &KDEUnivariate{
		Endog:    sorted,
		gridSize: max(len(sorted), minGridSize),
		bwAdjust: bwAdjust,
		cut:      cut,
		bw:       bw,
		kernel:   kernel,
	}
	kde.cdf = kde.tabulate()
	return kde, nil
}

func (kde *KDEUnivariate) BandWidth() float64 {
	return kde.bw
}

// Support is the tabulated interval, Quantile never leaves it.
func (kde *KDEUnivariate) Support() (lower, upper float64) {
	return kde.cdf[0].X, kde.cdf[len(kde.cdf)-1].X
}

func (kde *KDEUnivariate) Density(x float64) float64 {
	return kde.kernel.Density(kde.Endog, x)
}

func (kde *KDEUnivariate) CDF(x float64) float64 {
	return kde.kernel.Cdf(kde.Endog, x)
}

func (kde *KDEUnivariate) tabulate() []model.Cdf {
	a := floats.Min(kde.Endog) - kde.cut*kde.bw
	b := floats.Max(kde.Endog) + kde.cut*kde.bw
	grid := utils.Linspace(a, b, kde.gridSize)

	res := make([]model.Cdf, 0, len(grid))
	for _, x := range grid {
		res = append(res, model.Cdf{
			X:     x,
			Value: kde.CDF(x),
		})
	}
	return res
}

func (kde *KDEUnivariate) Quantile(p float64) *model.QuantileValue {
	cdf := kde.cdf
	if p <= cdf[0].Value {
		return &model.QuantileValue{
			Quantile: p,
			Value:    cdf[0].X,
		}
	}

	if p >= cdf[len(cdf)-1].Value {
		return &model.QuantileValue{
			Quantile: p,
			Value:    cdf[len(cdf)-1].X,
		}
	}

	i := sort.Search(len(cdf), func(i int) bool { return cdf[i].Value > p })
	lowerX, lowerP := cdf[i-1].X, cdf[i-1].Value
	upperX, upperP := cdf[i].X, cdf[i].Value
	value := lowerX
	if upperP > lowerP {
		value = lowerX + (upperX-lowerX)*(p-lowerP)/(upperP-lowerP)
	}
	return &model.QuantileValue{
		Quantile: p,
		Value:    value,
	}
}
