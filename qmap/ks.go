package qmap

import (
	"math"

	"github.com/uyouii/weather-calibration/model"
	"github.com/uyouii/weather-calibration/utils"
	"gonum.org/v1/gonum/stat"
)

// KolmogorovSmirnov runs the two-sample KS test. The statistic is the
// largest distance between the two empirical CDFs, the p-value comes from
// the asymptotic Kolmogorov distribution with Stephens' small sample
// correction.
func KolmogorovSmirnov(x, y []float64) model.KsResult {
	if len(x) == 0 || len(y) == 0 {
		return model.KsResult{Statistic: 0, PValue: 1}
	}
	d := stat.KolmogorovSmirnov(utils.SortedCopy(x), nil, utils.SortedCopy(y), nil)

	n, m := float64(len(x)), float64(len(y))
	en := math.Sqrt(n * m / (n + m))
	return model.KsResult{
		Statistic: d,
		PValue:    kolmogorovQ((en + 0.12 + 0.11/en) * d),
	}
}

// kolmogorovQ is the survival function of the Kolmogorov distribution,
// Q(l) = 2 * sum_{j>=1} (-1)^(j-1) exp(-2 j^2 l^2).
func kolmogorovQ(lambda float64) float64 {
	a2 := -2 * lambda * lambda
	fac := 2.0
	sum, prev := 0.0, 0.0
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= 0.001*prev || math.Abs(term) <= 1e-8*sum {
			return math.Min(math.Max(sum, 0), 1)
		}
		fac = -fac
		prev = math.Abs(term)
	}
	// the series only fails to converge for tiny lambda
	return 1
}
