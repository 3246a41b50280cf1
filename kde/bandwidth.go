package kde

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// minBandWidth keeps the kernel proper for constant samples.
const minBandWidth = 1e-10

type BandWidth interface {
	BandWidth(sorted []float64) float64
}

// NormalReferenceBandWidth is Silverman's rule of thumb, C * A * n^(-1/5).
type NormalReferenceBandWidth struct {
	kernel Kernel
}

func NewNormalReferenceBandWidth(kernel Kernel) *NormalReferenceBandWidth {
	if kernel == nil {
		kernel = NewGaussianKernel()
	}
	return &NormalReferenceBandWidth{
		kernel: kernel,
	}
}

// BandWidth expects x sorted ascending.
func (bw *NormalReferenceBandWidth) BandWidth(x []float64) float64 {
	C := bw.kernel.NormalReferenceConstant()
	A := selectSigma(x)
	n := len(x)
	return math.Max(C*A*math.Pow(float64(n), -0.2), minBandWidth)
}

// selectSigma returns min(std, IQR/1.349), std alone when the IQR is zero.
func selectSigma(x []float64) float64 {
	normalize := 1.349

	q75 := stat.Quantile(0.75, stat.Empirical, x, nil)
	q25 := stat.Quantile(0.25, stat.Empirical, x, nil)
	iqr := (q75 - q25) / normalize

	stdDev := stat.StdDev(x, nil)
	if math.IsNaN(stdDev) {
		stdDev = 0
	}

	if iqr > 0 {
		if stdDev < iqr {
			return stdDev
		}
		return iqr
	}
	return stdDev
}
